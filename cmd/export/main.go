// Command export writes a filtered report from the record store and prints
// its KPIs.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/campprojects/dashboard/internal/config"
	"github.com/campprojects/dashboard/internal/db"
	"github.com/campprojects/dashboard/internal/ingest"
	"github.com/campprojects/dashboard/internal/logging"
	"github.com/campprojects/dashboard/internal/project"
	"github.com/campprojects/dashboard/internal/store"
)

// multiFlag collects a repeatable string flag. Never setting it selects all.
type multiFlag struct{ values []string }

func (m *multiFlag) String() string { return strings.Join(m.values, ",") }

func (m *multiFlag) Set(v string) error {
	m.values = append(m.values, v)
	return nil
}

func main() {
	_ = godotenv.Load(".env.local")
	cfg, err := config.Parse()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	var contractors, sources, statuses multiFlag
	var (
		driver = flag.String("driver", cfg.DatabaseDriver, "postgres or sqlite")
		dbURL  = flag.String("db", cfg.DatabaseURL, "DATABASE_URL")
		out    = flag.String("out", "report.csv", "output file; - for stdout")
	)
	flag.Var(&contractors, "contractor", "keep rows with this contractor (repeatable)")
	flag.Var(&sources, "funding-source", "keep rows with this funding source (repeatable)")
	flag.Var(&statuses, "closure-status", "keep rows with this closure status (repeatable)")
	flag.Parse()

	cfg.DatabaseDriver, cfg.DatabaseURL = *driver, *dbURL

	log, err := logging.New(cfg.LogLevel, "console")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer log.Sync()

	sel := project.Selection{
		project.DimContractor:    contractors.values,
		project.DimFundingSource: sources.values,
		project.DimClosureStatus: statuses.values,
	}
	k, err := run(context.Background(), cfg, sel, *out, log)
	if err != nil {
		log.Fatal("export failed", zap.Error(err))
	}

	disp := k.Display(language.English)
	fmt.Fprintf(os.Stderr, "projects: %s\nestimated: %s\ncontract: %s\ndelta: %s\nclosed: %s\n",
		disp.ProjectCount, disp.TotalEstimated, disp.TotalContract, disp.BudgetDelta, disp.ClosedCount)
}

func run(ctx context.Context, cfg config.Config, sel project.Selection, out string, log *zap.Logger) (project.KPIs, error) {
	schema, err := cfg.Schema()
	if err != nil {
		return project.KPIs{}, err
	}
	d, err := db.Connect(db.Options{Driver: cfg.DatabaseDriver, DSN: cfg.DatabaseURL, Schema: cfg.DatabaseSchema}, log)
	if err != nil {
		return project.KPIs{}, err
	}
	defer db.Close(d)

	st, err := store.New(d, schema, log)
	if err != nil {
		return project.KPIs{}, err
	}
	t, err := st.Load(ctx)
	if err != nil {
		return project.KPIs{}, err
	}
	sub := project.Filter(t, sel)

	w := os.Stdout
	if out != "-" {
		f, err := os.Create(out)
		if err != nil {
			return project.KPIs{}, err
		}
		defer f.Close()
		w = f
	}
	if err := ingest.WriteCSV(w, sub); err != nil {
		return project.KPIs{}, err
	}
	return project.Aggregate(sub.Records, cfg.ClosedMarker), nil
}
