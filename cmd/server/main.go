package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yuin/goldmark"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"

	emailPkg "firesim/internal/adapters/email"
	"firesim/internal/adapters/filestore"
	web "firesim/internal/adapters/http"
	"firesim/internal/adapters/http/perf"
	"firesim/internal/adapters/imagegen"
	"firesim/internal/adapters/realtime"
	"firesim/internal/adapters/storage"
	auditStorePkg "firesim/internal/adapters/storage/audit"
	outboxStorePkg "firesim/internal/adapters/storage/outbox"
	participantStorePkg "firesim/internal/adapters/storage/participant"
	reportStorePkg "firesim/internal/adapters/storage/report"
	sessionStorePkg "firesim/internal/adapters/storage/session"
	"firesim/internal/application/orchestrators"
	"firesim/internal/application/projections"
	"firesim/internal/config"
	"firesim/internal/domain/outbox"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := run(); err != nil {
		slog.Error("server_event", "event", "fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfgPath := os.Getenv("FIRESIM_CONFIG")
	if cfgPath == "" {
		cfgPath = config.DefaultPath
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	slog.SetDefault(cfg.NewLogger(os.Stdout))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// WAL mode, foreign keys and busy timeout on every connection
	dsn := cfg.Database.Path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return err
	}
	defer db.Close()
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	if err := db.PingContext(ctx); err != nil {
		return err
	}
	if err := storage.MigrateDB(db); err != nil {
		return err
	}

	// Performance instrumentation: wrap DB with timing, create collector
	collector := perf.NewCollector(perf.DefaultRingSize)
	timedDB := storage.NewTimedDB(db, collector, cfg.Database.SlowQuery())

	stores := &web.Stores{
		SessionStore:     sessionStorePkg.NewSQLiteStore(timedDB),
		ParticipantStore: participantStorePkg.NewSQLiteStore(timedDB),
		ReportStore:      reportStorePkg.NewSQLiteStore(timedDB),
		OutboxStore:      outboxStorePkg.NewSQLiteStore(timedDB),
		AuditStore:       auditStorePkg.NewSQLiteStore(timedDB),
	}

	if keep := cfg.Database.AuditRetention(); keep > 0 {
		n, err := stores.AuditStore.Prune(ctx, time.Now().Add(-keep))
		if err != nil {
			return err
		}
		slog.Info("audit_event", "event", "pruned", "deleted", n, "retention_days", cfg.Database.AuditRetentionDays)
	}

	passwordHash, err := orchestrators.HashAdminPassword(cfg.Admin.Password, bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	broadcaster := realtime.NewBroadcaster(slog.Default())
	defer broadcaster.Close()
	notifier := &projections.LiveNotifier{
		Publisher:    broadcaster,
		Sessions:     stores.SessionStore,
		Participants: stores.ParticipantStore,
		Reports:      stores.ReportStore,
		Now:          time.Now,
	}

	if cfg.SeedDemoSession() {
		if _, err := orchestrators.ExecuteSeedDemoSession(ctx, orchestrators.SessionAdminDeps{
			SessionStore: stores.SessionStore,
			Now:          time.Now,
		}); err != nil {
			return err
		}
	}

	// Report notifications go through the outbox so a Resend outage never blocks a submission
	var sender emailPkg.Sender
	if cfg.Email.ResendKey != "" {
		sender = emailPkg.NewResendSender(cfg.Email.ResendKey, cfg.Email.From)
		slog.Info("config_event", "event", "email_sender", "provider", "resend")
	} else {
		sender = emailPkg.NewNoopSender()
		slog.Info("config_event", "event", "email_sender", "provider", "noop")
	}
	processor := orchestrators.NewOutboxProcessor(stores.OutboxStore, map[string]orchestrators.ActionExecutor{
		outbox.ActionTypeReportEmail: &orchestrators.ReportEmailExecutor{
			Reports:  stores.ReportStore,
			Sessions: stores.SessionStore,
			Sender:   sender,
			Markdown: goldmark.New(),
		},
	}, time.Now)
	orchestrators.StartBackgroundWorker(ctx, processor, time.Minute)

	var generator orchestrators.ImageGenerator = imagegen.Disabled{}
	if cfg.ImageGen.APIKey != "" {
		g, err := imagegen.NewGeminiGenerator(ctx, imagegen.GeminiConfig{
			APIKey:  cfg.ImageGen.APIKey,
			Model:   cfg.ImageGen.Model,
			Timeout: cfg.ImageGen.Timeout,
		})
		if err != nil {
			return err
		}
		generator = g
	} else {
		slog.Warn("config_event", "event", "imagegen_disabled", "detail", "GEMINI_API_KEY is not set")
	}

	files, err := filestore.NewLocal(cfg.Uploads.Dir)
	if err != nil {
		return err
	}

	handler, err := web.NewMux(cfg.Server.StaticDir, stores, &web.Services{
		PasswordHash: passwordHash,
		Generator:    generator,
		Files:        files,
		FilesHandler: files.Handler(),
		Broadcaster:  broadcaster,
		Notifier:     notifier,
		Outbox:       processor,
		NotifyTo:     cfg.Email.NotifyTo,
		InfoCards:    cfg.Scenario.InfoCards,
		CSRFKey:      cfg.Server.CSRFKey,
		Production:   cfg.IsProduction(),
		SlowRequest:  cfg.Server.SlowRequest(),
		RateLimit:    cfg.Server.RateLimit,
	}, collector)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server_event", "event", "started", "version", version, "addr", cfg.Server.Addr,
			"env", cfg.Server.Env, "schema", storage.LatestSchemaVersion())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("server_event", "event", "shutting_down")
	// Open SSE streams end when the broadcaster closes their channels.
	broadcaster.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
