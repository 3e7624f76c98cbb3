package internal

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/nats-io/nats.go"
	process "github.com/s-larionov/process-manager"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/podsync-labs/podsync-storage/internal/config"
	"github.com/podsync-labs/podsync-storage/internal/deletion"
	"github.com/podsync-labs/podsync-storage/internal/devicelog"
	"github.com/podsync-labs/podsync-storage/internal/events"
	"github.com/podsync-labs/podsync-storage/internal/subscription"
	"github.com/podsync-labs/podsync-storage/internal/user"
	"github.com/podsync-labs/podsync-storage/pkg/health"
	"github.com/podsync-labs/podsync-storage/pkg/prometheus"
)

type Application struct {
	sigChan <-chan os.Signal
	manager *process.Manager
	cfg     config.App
	db      *gorm.DB

	publisher *events.Publisher

	us  *user.Service
	sub *subscription.Service
	del *deletion.Service
	dl  *devicelog.Service

	subRepo *subscription.Repo
	delRepo *deletion.Repo
}

func NewApplication(cfg config.App) (*Application, error) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	a := &Application{
		sigChan: sigChan,
		cfg:     cfg,
		manager: process.NewManager(),
	}

	err := a.bootstrap()
	if err != nil {
		return nil, err
	}

	return a, nil
}

func (a *Application) Run() {
	a.manager.StartAll()
	a.registerShutdown()
}

func (a *Application) bootstrap() error {
	initializers := []func() error{
		a.initDB,

		// Init Dependencies
		a.initNats,
		a.initServices,

		// Init Workers: Application
		a.initDeletionWorker,
		a.initAPI,

		// Init Workers: System
		a.initPrometheusWorker,
		a.initHealthWorker,
	}

	for _, initializer := range initializers {
		if err := initializer(); err != nil {
			return err
		}
	}

	return nil
}

func (a *Application) initDB() error {
	db, err := gorm.Open(postgres.Open(a.cfg.DB.DSN), &gorm.Config{})
	if err != nil {
		return err
	}

	ps, err := db.DB()
	if err != nil {
		return err
	}
	ps.SetMaxOpenConns(a.cfg.DB.MaxOpenConnections)

	a.db = db
	if a.cfg.DB.Debug {
		a.db = db.Debug()
	}

	return a.db.AutoMigrate(
		&user.User{},
		&user.Session{},
		&subscription.Subscription{},
		&subscription.UserSubscription{},
		&subscription.SubscriptionFeed{},
		&subscription.SubscriptionGuid{},
		&deletion.Task{},
		&devicelog.Device{},
		&devicelog.Change{},
	)
}

func (a *Application) initNats() error {
	nc, err := nats.Connect(
		a.cfg.Nats.URL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(a.cfg.Nats.MaxReconnects),
		nats.ReconnectWait(a.cfg.Nats.ReconnectTimeout),
	)
	if err != nil {
		return err
	}

	a.publisher = events.NewPublisher(nc)

	return nil
}

func (a *Application) initServices() error {
	a.us = user.NewService(user.NewRepo(a.db), user.NewSessionRepo(a.db))

	a.subRepo = subscription.NewRepo(a.db)
	a.sub = subscription.NewService(a.subRepo, a.publisher)

	a.delRepo = deletion.NewRepo(a.db)
	a.del = deletion.NewService(a.delRepo, a.subRepo)

	a.dl = devicelog.NewService(devicelog.NewRepo(a.db))

	return nil
}

func (a *Application) initDeletionWorker() error {
	worker := deletion.NewWorker(
		a.delRepo,
		a.subRepo,
		a.publisher,
		a.cfg.Deletion.CheckInterval,
		a.cfg.Deletion.BatchSize,
	)

	a.manager.AddWorker(process.NewCallbackWorker("deletion worker", worker.Start))

	return nil
}

func (a *Application) initAPI() error {
	router := mux.NewRouter()

	user.NewServer(a.us).RegisterRoutes(router)

	authed := router.PathPrefix("/").Subrouter()
	authed.Use(a.us.Authenticate)

	subscription.NewServer(a.sub).RegisterRoutes(authed)
	deletion.NewServer(a.del).RegisterRoutes(authed)
	devicelog.NewServer(a.dl).RegisterRoutes(authed)

	srv := &http.Server{
		Addr:    a.cfg.API.Bind,
		Handler: router,
	}

	a.manager.AddWorker(process.NewServerWorker("API", srv))

	return nil
}

func (a *Application) initPrometheusWorker() error {
	srv := prometheus.NewServer(a.cfg.Prometheus.Listen, "/metrics")
	a.manager.AddWorker(process.NewServerWorker("prometheus", srv))

	return nil
}

func (a *Application) initHealthWorker() error {
	srv := health.NewHealthCheckServer(a.cfg.Health.Listen, "/status", health.DefaultHandler(a.manager))
	a.manager.AddWorker(process.NewServerWorker("health", srv))

	return nil
}

func (a *Application) registerShutdown() {
	go func(manager *process.Manager) {
		<-a.sigChan

		manager.StopAll()
	}(a.manager)

	a.manager.AwaitAll()
}
