package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/jmoiron/sqlx"

	echoapi "github.com/trezcool/paes/apps/api/echo"
	"github.com/trezcool/paes/core"
	"github.com/trezcool/paes/core/trust"
	emailsvc "github.com/trezcool/paes/services/email"
	eventsvc "github.com/trezcool/paes/services/events"
	logsvc "github.com/trezcool/paes/services/logger"
	"github.com/trezcool/paes/storage/database"
	sqlxrepos "github.com/trezcool/paes/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	sugar, err := logsvc.NewZap(conf)
	if err != nil {
		log.Fatalf("setting up zap: %v", err)
	}
	logger := logsvc.NewRollbarLogger(sugar.Named("api"), conf)
	logger.Enable(!conf.Debug)
	defer logger.Close()

	dbLogger := logsvc.NewRollbarLogger(sugar.Named("db"), conf)
	dbLogger.Enable(!conf.Debug)

	// set up DB
	ctx := context.Background()
	db, err := setUpDB(ctx, conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Error("Failed to close", err)
		}
	}()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(log.New(os.Stdout, "MAIL : ", log.LstdFlags), conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(logger, conf)
	}

	var publisher core.EventPublisher
	if conf.Redis.Addr != "" {
		redisPub, err := eventsvc.NewRedisPublisher(ctx, conf)
		if err != nil {
			logger.Fatal(fmt.Sprintf("setting up event publisher: %v", err), err)
		}
		defer func() {
			if err := redisPub.Close(); err != nil {
				logger.Error("closing event publisher", err)
			}
		}()
		publisher = redisPub
	} else {
		logger.Warn("REDIS_ADDR not set: trust events stay in memory")
		publisher = eventsvc.NewMemoryPublisher()
	}

	validate, translator := trust.NewValidator()

	trustSvc, err := trust.NewService(trust.Deps{
		Repo:      sqlxrepos.NewTrustRepository(db),
		Validate:  validate,
		Logger:    logger,
		Mailer:    mailSvc,
		Publisher: publisher,
	}, trust.ConfigFrom(conf))
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up trust service: %v", err), err)
	}

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:       conf,
		Logger:     logger,
		TrustSvc:   trustSvc,
		Validate:   validate,
		Translator: translator,
	})

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(ctx, conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(ctx context.Context, conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		return nil, err
	}

	db, err := database.Open(ctx, conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
