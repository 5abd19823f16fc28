package main

// This tool mirrors the invoices of the given users to OpenSearch again, to
// apply a new index mapping or to recover invoices whose mirroring failed.

import (
	"context"

	"github.com/alexflint/go-arg"
	"github.com/sirupsen/logrus"

	"github.com/denysvitali/wms-backend/pkg/auditindex"
	"github.com/denysvitali/wms-backend/pkg/cli"
	"github.com/denysvitali/wms-backend/pkg/logutils"
	"github.com/denysvitali/wms-backend/pkg/storage"
)

var args struct {
	UserIDs []string `arg:"positional,required"`

	LogLevel           string `arg:"--log-level,env:LOG_LEVEL" default:"info"`
	OpenSearchAddr     string `arg:"--opensearch-addr,required,env:OPENSEARCH_ADDR"`
	OpenSearchIndex    string `arg:"--opensearch-index,env:OPENSEARCH_INDEX" default:"invoices"`
	OpenSearchPassword string `arg:"--opensearch-password,env:OPENSEARCH_PASSWORD"`
	OpenSearchSkipTLS  bool   `arg:"--opensearch-skip-tls,env:OPENSEARCH_SKIP_TLS"`
	OpenSearchUsername string `arg:"--opensearch-username,env:OPENSEARCH_USERNAME"`
	PostgresDSN        string `arg:"--postgres-dsn,env:POSTGRES_DSN,required"`
	Workers            int    `arg:"-w,--workers" default:"4"`
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

	idx, err := auditindex.New(auditindex.Config{
		Addr:               args.OpenSearchAddr,
		Index:              args.OpenSearchIndex,
		Username:           args.OpenSearchUsername,
		Password:           args.OpenSearchPassword,
		InsecureSkipVerify: args.OpenSearchSkipTLS,
	})
	if err != nil {
		log.Fatalf("create indexer: %v", err)
	}
	ctx := context.Background()
	if err := idx.EnsureIndex(ctx); err != nil {
		log.Fatalf("create index: %v", err)
	}

	ids := make(chan string)
	go func() {
		defer close(ids)
		for _, u := range args.UserIDs {
			docs, err := store.ListByUser(ctx, u)
			if err != nil {
				log.Errorf("list invoices of %s: %v", u, err)
				continue
			}
			log.Infof("found %d invoices for %s", len(docs), u)
			for _, d := range docs {
				ids <- d.ID
			}
		}
	}()

	stats := auditindex.Reindex(ctx, store, idx, ids, args.Workers)
	if stats.Failed.Load() > 0 {
		log.Fatalf("%d invoices could not be indexed", stats.Failed.Load())
	}
}
