package main

import (
	"context"
	"fmt"
	"log"
	"time"

	echoweb "github.com/trezcool/classroom/apps/web/echo"
	"github.com/trezcool/classroom/core"
	logsvc "github.com/trezcool/classroom/services/logger"
	"github.com/trezcool/classroom/storage"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// =========================================================================
	// Set up Dependencies

	conf, err := core.NewConfig()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	logger := logsvc.New(conf, "WEB : ")

	store, err := storage.NewProvider(context.Background(), conf.Storage)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up storage: %v", err), err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("closing storage", err)
		}
	}()

	// =========================================================================
	// Start Web Shell

	logger.Info(fmt.Sprintf("Application initializing : version %q, backend %s", conf.Build, conf.API.BaseURL))
	defer logger.Info("Application stopped")

	server := echoweb.NewServer(echoweb.Deps{
		Conf:    conf,
		Logger:  logger,
		Storage: store,
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
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}
