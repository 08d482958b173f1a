package cmd

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/shaharia-lab/restock-notifier/internal/catalog"
	"github.com/shaharia-lab/restock-notifier/internal/config"
	"github.com/shaharia-lab/restock-notifier/internal/dispatch"
	"github.com/shaharia-lab/restock-notifier/internal/eventbus"
	"github.com/shaharia-lab/restock-notifier/internal/metrics"
	"github.com/shaharia-lab/restock-notifier/internal/notification"
	"github.com/shaharia-lab/restock-notifier/internal/registration"
	"github.com/shaharia-lab/restock-notifier/internal/service"
	"github.com/shaharia-lab/restock-notifier/internal/storage"
)

// app is the wired dispatch pipeline shared by serve and notify.
type app struct {
	catalog      *catalog.Catalog
	composer     *notification.Composer
	registration *registration.Client
	bus          eventbus.EventBus
	metrics      *metrics.Metrics
	db           *sql.DB
	deliverySvc  service.DeliveryService // nil when the audit log is disabled
	restockSvc   service.RestockService
	logger       *slog.Logger
}

func buildApp(cfg *config.AppConfig, logger *slog.Logger) (*app, error) {
	cat, err := catalog.Load(cfg.FallbackLanguage)
	if err != nil {
		return nil, fmt.Errorf("loading localization catalog: %w", err)
	}

	a := &app{
		catalog:      cat,
		composer:     notification.NewComposer(cat, cfg.ShopBaseURL),
		registration: registration.New(cfg.Registration(), logger),
		bus:          eventbus.New(0, logger),
		metrics:      metrics.New(),
		logger:       logger,
	}
	a.bus.Subscribe(a.metrics.Listen)

	if cfg.AuditLogEnabled() {
		db, fresh, err := storage.NewSQLiteDB(cfg.DatabasePath)
		if err != nil {
			a.bus.Close()
			return nil, fmt.Errorf("opening delivery log: %w", err)
		}
		if fresh {
			logger.Info("created delivery log database", "path", cfg.DatabasePath)
		}
		a.db = db
		a.deliverySvc = service.NewDeliveryService(storage.NewSQLiteDeliveryStore(db), logger)
		a.bus.Subscribe(a.deliverySvc.Listen)
	}

	engine, err := dispatch.New(dispatch.Config{
		Renderer:       a.composer,
		Provider:       notification.NewSMTPProvider(cfg.SMTP()),
		Deleter:        a.registration,
		From:           cfg.EmailFrom,
		MaxConcurrency: cfg.MaxConcurrentSends,
		SendTimeout:    cfg.SendTimeout,
		Logger:         logger,
		EventPublisher: a.bus,
	})
	if err != nil {
		a.close()
		return nil, fmt.Errorf("creating dispatch engine: %w", err)
	}

	a.restockSvc = service.NewRestockService(a.registration, engine, cat.Fallback(), a.metrics, logger)
	return a, nil
}

// close drains pending outcome events before the database goes away.
func (a *app) close() {
	a.bus.Close()
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close delivery log", "error", err)
		}
	}
}
