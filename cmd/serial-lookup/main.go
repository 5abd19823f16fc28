package main

// Resolves serial numbers against SAP, the same way the invoice form does,
// and prints the result as JSON. Useful to check the SQL query deployed on
// the Service Layer.

import (
	"context"
	"encoding/json"
	"os"

	"github.com/alexflint/go-arg"
	"github.com/sirupsen/logrus"

	"github.com/denysvitali/wms-backend/pkg/cli"
	"github.com/denysvitali/wms-backend/pkg/logutils"
	"github.com/denysvitali/wms-backend/pkg/lookup"
	"github.com/denysvitali/wms-backend/pkg/sap"
	"github.com/denysvitali/wms-backend/pkg/storage/memory"
)

var args struct {
	sap.Args

	SerialNumbers []string `arg:"positional,required"`
	LogLevel      string   `arg:"--log-level,env:LOG_LEVEL" default:"info"`
}

var log = logrus.StandardLogger()

type output struct {
	SerialNumber string         `json:"serial_number"`
	Result       *lookup.Result `json:"result,omitempty"`
	Error        string         `json:"error,omitempty"`
}

func main() {
	arg.MustParse(&args)
	if err := cli.FillKeychainValues(&args); err != nil {
		log.Fatalf("fill keychain values: %v", err)
	}
	logutils.SetLoggerLevel(args.LogLevel)

	c, err := args.NewClient()
	if err != nil {
		log.Fatalf("create sap client: %v", err)
	}
	ctx := context.Background()
	if err := c.Login(ctx); err != nil {
		log.Fatalf("login: %v", err)
	}

	cache := lookup.New(memory.NewLookupStore(), c)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	failed := false
	for _, sn := range args.SerialNumbers {
		out := output{SerialNumber: sn}
		res, err := cache.Refresh(ctx, sn)
		if err != nil {
			failed = true
			out.Error = err.Error()
		} else {
			out.Result = res
		}
		if err := enc.Encode(out); err != nil {
			log.Fatalf("encode: %v", err)
		}
	}
	if failed {
		os.Exit(1)
	}
}
