package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/masomo-dashboard/core"
	"github.com/trezcool/masomo-dashboard/core/user"
	appfs "github.com/trezcool/masomo-dashboard/fs"
	emailsvc "github.com/trezcool/masomo-dashboard/services/email"
	logsvc "github.com/trezcool/masomo-dashboard/services/logger"
	"github.com/trezcool/masomo-dashboard/storage/database"
	sqlxrepos "github.com/trezcool/masomo-dashboard/storage/database/sqlx"
)

func main() {
	conf, err := core.NewConfig()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	defer logger.Close()

	// set up DB
	ctx := context.Background()
	db, err := database.Open(ctx, conf)
	errAndDie(logger, "opening database", err)
	defer db.Close()

	tmpls, err := core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, conf)
	errAndDie(logger, "parsing email templates", err)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator, conf.PhoneRegion)

	// start CLI
	usrRepo := sqlxrepos.NewUserRepository(db)
	cli := commandLine{
		db:       db.DB,
		usrSvc:   user.NewService(usrRepo, emailsvc.NewConsoleService(conf, tmpls, logger), conf),
		usrRepo:  usrRepo,
		validate: validate,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("\nerror: %s\n", err), err)
		}
		logger.Close()
		os.Exit(1)
	}
}

func errAndDie(logger *logsvc.RollbarLogger, msg string, err error) {
	if err != nil {
		logger.Fatal(fmt.Sprintf("%s: %v", msg, err), err)
	}
}
