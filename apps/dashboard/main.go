package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/trezcool/masomo-dashboard/core"
	logsvc "github.com/trezcool/masomo-dashboard/services/logger"
	credstore "github.com/trezcool/masomo-dashboard/storage/credentials"
)

func main() {
	conf, err := core.NewConfig()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	// stdout belongs to the command output
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stderr, "DASHBOARD : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := newApp(Deps{
		Conf:      conf,
		Logger:    logger,
		Creds:     credstore.NewFileStore(conf.Dashboard.CredentialsPath, conf.Dashboard.SessionTTL),
		CredsPath: conf.Dashboard.CredentialsPath,
		Out:       os.Stdout,
	})
	if err = a.run(ctx, os.Args); err != nil {
		a.printError(err)
		stop()
		logger.Close()
		os.Exit(1)
	}
}
