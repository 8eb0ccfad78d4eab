package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-playground/validator/v10"

	echoapi "github.com/trezcool/masomo-dashboard/apps/api/echo"
	"github.com/trezcool/masomo-dashboard/core"
	"github.com/trezcool/masomo-dashboard/core/user"
	appfs "github.com/trezcool/masomo-dashboard/fs"
	emailsvc "github.com/trezcool/masomo-dashboard/services/email"
	logsvc "github.com/trezcool/masomo-dashboard/services/logger"
	"github.com/trezcool/masomo-dashboard/storage/database"
	inmemdb "github.com/trezcool/masomo-dashboard/storage/database/inmem"
	sqlxrepos "github.com/trezcool/masomo-dashboard/storage/database/sqlx"
)

// TODO: persist token revocations so that a restart does not revive signed out sessions.
func main() {
	// =========================================================================
	// Set up Dependencies

	conf, err := core.NewConfig()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	defer logger.Close()

	// set up DB
	repo, closeDB, err := setUpUserRepository(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer closeDB()

	// set up services
	tmpls, err := core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("parsing email templates: %v", err), err)
	}
	var mailSvc core.EmailService
	if conf.Debug || conf.SendgridApiKey == "" {
		mailSvc = emailsvc.NewConsoleService(conf, tmpls, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, tmpls, logger)
	}
	usrSvc := user.NewService(repo, mailSvc, conf)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator, conf.PhoneRegion)

	// =========================================================================
	// Start API Service

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	server := echoapi.NewServer(
		&echoapi.Options{Address: conf.Server.Address},
		&echoapi.Deps{
			Conf:       conf,
			Logger:     logger,
			UserSvc:    usrSvc,
			Validate:   validate,
			Translator: translator,
		},
		func() { shutdown <- syscall.SIGTERM },
	)

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("API listening on " + conf.Server.Address)
		serverErrors <- server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-serverErrors:
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-shutdown:
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		if err = server.Stop(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)
		}
	}
}

// setUpUserRepository uses Postgres when a database host is configured, memory otherwise.
func setUpUserRepository(conf *core.Config) (user.Repository, func(), error) {
	if !conf.Database.Enabled() {
		return inmemdb.NewUserRepository(inmemdb.Open()), func() {}, nil
	}

	ctx := context.Background()
	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		return nil, nil, err
	}
	db, err := database.Open(ctx, conf)
	if err != nil {
		return nil, nil, err
	}
	if err = database.Migrate(ctx, db.DB, "up"); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return sqlxrepos.NewUserRepository(db), func() { _ = db.Close() }, nil
}
