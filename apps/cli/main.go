package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/core/events"
	"github.com/trezcool/classroom/core/session"
	logsvc "github.com/trezcool/classroom/services/logger"
	"github.com/trezcool/classroom/storage"
	"github.com/trezcool/classroom/ui"
)

var logger core.Logger

func main() {
	defer os.Exit(0)

	conf, err := core.NewConfig()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	logger = logsvc.New(conf, "CLI : ")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// set up token storage: the token of a login is kept for the next commands
	store, err := storage.NewProvider(ctx, conf.Storage)
	errAndDie(err)
	defer store.Close()

	bus := events.NewBus()
	sess, err := session.New(session.Options{
		BaseURL: conf.API.BaseURL,
		Store:   store.Store(storage.Origin(conf.API.BaseURL)),
		Logger:  logger,
		Bus:     bus,
		Timeout: conf.API.Timeout,
	})
	errAndDie(err)

	validate, translator := core.NewValidator()
	login, err := ui.NewLoginBox(sess, ui.Options{Bus: bus, Logger: logger, Validate: validate, Translator: translator})
	errAndDie(err)

	// start CLI
	cli := commandLine{
		sess:       sess,
		login:      login,
		validate:   validate,
		translator: translator,
		in:         bufio.NewReader(os.Stdin),
		out:        os.Stdout,
	}
	if err := cli.run(ctx, os.Args); err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "error: %s\n", err)
		}
		stop()
		store.Close()
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
}
