package main

// Creates or upgrades the tables of the local store.

import (
	"github.com/alexflint/go-arg"
	"github.com/sirupsen/logrus"

	"github.com/denysvitali/wms-backend/pkg/cli"
	"github.com/denysvitali/wms-backend/pkg/logutils"
	"github.com/denysvitali/wms-backend/pkg/storage"
)

var args struct {
	PostgresDSN string `arg:"--postgres-dsn,env:POSTGRES_DSN,required"`
	LogLevel    string `arg:"--log-level,env:LOG_LEVEL" default:"info"`
}

var log = logrus.StandardLogger()

func main() {
	arg.MustParse(&args)
	if err := cli.FillKeychainValues(&args); err != nil {
		log.Fatalf("fill keychain values: %v", err)
	}
	logutils.SetLoggerLevel(args.LogLevel)

	store, closeFn, err := storage.SetupGorm(args.PostgresDSN)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer closeFn()

	if err := store.Migrate(); err != nil {
		log.Fatalf("migrate: %v", err)
	}
}
