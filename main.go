package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/campprojects/dashboard/internal/auth"
	"github.com/campprojects/dashboard/internal/config"
	"github.com/campprojects/dashboard/internal/dashboard"
	"github.com/campprojects/dashboard/internal/db"
	"github.com/campprojects/dashboard/internal/ingest"
	"github.com/campprojects/dashboard/internal/logging"
	"github.com/campprojects/dashboard/internal/metrics"
	"github.com/campprojects/dashboard/internal/middleware"
	"github.com/campprojects/dashboard/internal/store"
)

func RootHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, "Server is up!")
}

func main() {
	_ = godotenv.Load(".env.local")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(2)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d, err := db.Connect(db.Options{
		Driver: cfg.DatabaseDriver,
		DSN:    cfg.DatabaseURL,
		Schema: cfg.DatabaseSchema,
		Debug:  cfg.DatabaseDebug,
	}, log)
	if err != nil {
		return err
	}
	defer db.Close(d)

	schema, err := cfg.Schema()
	if err != nil {
		return err
	}
	st, err := store.New(d, schema, log)
	if err != nil {
		return err
	}
	if err := auth.Init(d); err != nil {
		return err
	}

	mode, err := ingest.ParseMode(cfg.IngestMode)
	if err != nil {
		return err
	}
	ns, _ := cfg.Namespace()
	delim, _ := cfg.Delimiter()
	ingestCfg := ingest.Config{
		Path:    cfg.SourceCSV,
		Mode:    mode,
		Schema:  schema,
		Options: ingest.Options{Delimiter: delim, Namespace: ns},
	}

	// A bad source file at startup leaves whatever the store already holds.
	if _, err := ingest.Run(ctx, st, ingestCfg, log); err != nil {
		if !ingest.IsSourceError(err) {
			return err
		}
		log.Warn("starting without a fresh ingest", zap.Error(err))
	}

	reingest := func(ctx context.Context) (ingest.Result, error) {
		c := ingestCfg
		c.Mode = ingest.ModeAlways
		return ingest.Run(ctx, st, c, log)
	}

	gate, err := auth.NewStaticSecret(cfg.AdminPassword, cfg.AdminPasswordHash)
	if err != nil {
		return err
	}
	authHandler := auth.NewHandler(d, gate, log, auth.Options{
		SessionTTL:    cfg.SessionTTL,
		SecureCookies: cfg.SecureCookies,
		LoginRate:     cfg.LoginRate,
		LoginBurst:    cfg.LoginBurst,
	})
	dash := dashboard.NewHandler(st, reingest, log, dashboard.Options{ClosedMarker: cfg.ClosedMarker})

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(log))
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))
	r.Get("/", RootHandler)
	r.Handle("/metrics", metrics.Handler())

	r.Mount("/auth", authHandler.SetupRoutes())
	r.Mount("/projects", dash.SetupRoutes(auth.SessionInfo{DB: d}))

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
