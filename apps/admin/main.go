package main

import (
	"context"
	"log"
	"os"

	"github.com/trezcool/paes/core"
	"github.com/trezcool/paes/core/trust"
	emailsvc "github.com/trezcool/paes/services/email"
	eventsvc "github.com/trezcool/paes/services/events"
	logsvc "github.com/trezcool/paes/services/logger"
	"github.com/trezcool/paes/storage/database"
	sqlxrepos "github.com/trezcool/paes/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	sugar, err := logsvc.NewZap(conf)
	if err != nil {
		log.Fatalf("setting up zap: %v", err)
	}
	logger := logsvc.NewRollbarLogger(sugar.Named("admin"), conf)
	logger.Enable(!conf.Debug)

	// set up DB
	ctx := context.Background()
	db, err := database.Open(ctx, conf)
	if err != nil {
		logger.Fatal("opening database", err)
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(log.New(os.Stdout, "MAIL : ", log.LstdFlags), conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(logger, conf)
	}
	var publisher core.EventPublisher = eventsvc.NewMemoryPublisher()
	var redisPub *eventsvc.RedisPublisher
	if conf.Redis.Addr != "" {
		if redisPub, err = eventsvc.NewRedisPublisher(ctx, conf); err != nil {
			logger.Fatal("setting up event publisher", err)
		}
		publisher = redisPub
	}

	validate, _ := trust.NewValidator()
	trustSvc, err := trust.NewService(trust.Deps{
		Repo:      sqlxrepos.NewTrustRepository(db),
		Validate:  validate,
		Logger:    logger,
		Mailer:    mailSvc,
		Publisher: publisher,
	}, trust.ConfigFrom(conf))
	if err != nil {
		logger.Fatal("setting up trust service", err)
	}

	// start CLI
	cli := commandLine{
		db:       db,
		trustSvc: trustSvc,
		out:      os.Stdout,
		jsonOut:  !isTerminalFunc(int(os.Stdout.Fd())),
	}
	code := 0
	if err = cli.run(ctx, os.Args); err != nil {
		if err != errHelp {
			logger.Error("admin command failed", err)
		}
		code = 1
	}

	if redisPub != nil {
		_ = redisPub.Close()
	}
	_ = db.Close()
	logger.Close()
	os.Exit(code)
}
