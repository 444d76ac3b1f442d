// Package main runs the AccessGate interactive shell over a local entry store.
package main

import (
	"cmp"
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/atinyakov/accessgate/internal/client/console"
	"github.com/atinyakov/accessgate/internal/config"
	"github.com/atinyakov/accessgate/internal/db"
	"github.com/atinyakov/accessgate/internal/enrollment"
	"github.com/atinyakov/accessgate/internal/logger"
	"github.com/atinyakov/accessgate/internal/method"
	"github.com/atinyakov/accessgate/internal/repository"
	"github.com/atinyakov/accessgate/internal/service"
)

var (
	version   string
	buildDate string
)

func main() {
	options, err := config.Parse()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	log := logger.New()
	if err := log.Init(cmp.Or(options.LogLevel, "error")); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer func() { _ = log.Log.Sync() }()

	conn, err := db.Open(options.Driver, options.Source())
	if err != nil {
		log.Log.Fatal("cannot init database", zap.Error(err))
	}
	defer conn.Close()
	repo, err := repository.NewEntryRepository(options.Driver, conn, nil)
	if err != nil {
		log.Log.Fatal("cannot init repository", zap.Error(err))
	}

	registry := method.Default()
	repl := &console.REPL{
		Console: console.New(os.Stdin, os.Stdout, nil),
		Entries: service.NewEntryService(repo),
		Auth:    service.NewAuthService(repo, registry, log.Log),
		Methods: registry,
		NewMachine: func() *enrollment.Machine {
			return enrollment.NewMachine(repo, registry, nil, log.Log)
		},
	}

	fmt.Printf("AccessGate %s (%s)\n", cmp.Or(version, "dev"), cmp.Or(buildDate, "N/A"))
	fmt.Println("Type 'help' for a list of commands.")
	if err := repl.Run(context.Background()); err != nil {
		log.Log.Error("shell stopped", zap.Error(err))
		os.Exit(1)
	}
}
