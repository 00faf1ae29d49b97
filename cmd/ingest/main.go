// Command ingest loads the source CSV into the record store outside the
// server process.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/campprojects/dashboard/internal/config"
	"github.com/campprojects/dashboard/internal/db"
	"github.com/campprojects/dashboard/internal/ingest"
	"github.com/campprojects/dashboard/internal/logging"
	"github.com/campprojects/dashboard/internal/store"
)

func main() {
	_ = godotenv.Load(".env.local")
	cfg, err := config.Parse()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	var (
		csvPath   = flag.String("csv", cfg.SourceCSV, "path to the source CSV")
		driver    = flag.String("driver", cfg.DatabaseDriver, "postgres or sqlite")
		dbURL     = flag.String("db", cfg.DatabaseURL, "DATABASE_URL")
		mode      = flag.String("mode", string(ingest.ModeAlways), "always, if-empty or never")
		namespace = flag.String("namespace", cfg.IDNamespace, "UUID namespace for synthesized ids (stable forever)")
		columns   = flag.String("columns", cfg.ColumnsFile, "YAML header mapping")
		delimiter = flag.String("delimiter", cfg.CSVDelimiter, "field separator; blank sniffs it")
	)
	flag.Parse()

	cfg.SourceCSV, cfg.DatabaseDriver, cfg.DatabaseURL = *csvPath, *driver, *dbURL
	cfg.IDNamespace, cfg.ColumnsFile, cfg.CSVDelimiter = *namespace, *columns, *delimiter

	if cfg.SourceCSV == "" || cfg.DatabaseURL == "" {
		flag.Usage()
		os.Exit(2)
	}

	log, err := logging.New(cfg.LogLevel, "console")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer log.Sync()

	res, err := run(context.Background(), cfg, *mode, log)
	if err != nil {
		log.Fatal("ingest failed", zap.Error(err))
	}
	if res.Skipped {
		fmt.Println("skipped: store already has rows")
		return
	}
	fmt.Printf("ingested %d rows in %s\n", res.Rows, res.Duration)
}

func run(ctx context.Context, cfg config.Config, modeName string, log *zap.Logger) (ingest.Result, error) {
	mode, err := ingest.ParseMode(modeName)
	if err != nil {
		return ingest.Result{}, err
	}
	ns, err := cfg.Namespace()
	if err != nil {
		return ingest.Result{}, err
	}
	delim, err := cfg.Delimiter()
	if err != nil {
		return ingest.Result{}, err
	}
	schema, err := cfg.Schema()
	if err != nil {
		return ingest.Result{}, err
	}

	d, err := db.Connect(db.Options{Driver: cfg.DatabaseDriver, DSN: cfg.DatabaseURL, Schema: cfg.DatabaseSchema, Debug: cfg.DatabaseDebug}, log)
	if err != nil {
		return ingest.Result{}, err
	}
	defer db.Close(d)

	st, err := store.New(d, schema, log)
	if err != nil {
		return ingest.Result{}, err
	}
	return ingest.Run(ctx, st, ingest.Config{
		Path:    cfg.SourceCSV,
		Mode:    mode,
		Schema:  schema,
		Options: ingest.Options{Delimiter: delim, Namespace: ns},
	}, log)
}
