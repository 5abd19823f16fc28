package main

import (
	"context"
	"time"

	"github.com/alexflint/go-arg"
	"github.com/sirupsen/logrus"

	backend "github.com/denysvitali/wms-backend"
	"github.com/denysvitali/wms-backend/pkg/auditindex"
	"github.com/denysvitali/wms-backend/pkg/cli"
	"github.com/denysvitali/wms-backend/pkg/invoice"
	"github.com/denysvitali/wms-backend/pkg/logutils"
	"github.com/denysvitali/wms-backend/pkg/lookup"
	"github.com/denysvitali/wms-backend/pkg/sap"
	"github.com/denysvitali/wms-backend/pkg/storage"
)

var args struct {
	sap.Args
	storage.Config

	ListenAddr           string        `arg:"-L,--listen-addr,env:LISTEN_ADDR" default:"127.0.0.1:8085"`
	LogLevel             string        `arg:"--log-level,env:LOG_LEVEL" default:"info"`
	LogFormat            string        `arg:"--log-format,env:LOG_FORMAT" default:"text" help:"text or json"`
	LookupTTL            time.Duration `arg:"--lookup-ttl,env:LOOKUP_TTL" default:"1h" help:"how long a serial number lookup is trusted"`
	OsAddr               string        `arg:"--opensearch-addr,env:OPENSEARCH_ADDR" help:"mirror invoices to OpenSearch (optional)"`
	OsIndex              string        `arg:"--opensearch-index,env:OPENSEARCH_INDEX" default:"invoices"`
	OsInsecureSkipVerify bool          `arg:"--opensearch-skip-tls,env:OPENSEARCH_SKIP_TLS"`
	OsPassword           string        `arg:"--opensearch-password,env:OPENSEARCH_PASSWORD"`
	OsUsername           string        `arg:"--opensearch-username,env:OPENSEARCH_USERNAME"`
	TaxCode              string        `arg:"--tax-code,env:TAX_CODE" default:"CSGST@18"`
}

var log = logrus.StandardLogger()

func main() {
	arg.MustParse(&args)
	if err := cli.FillKeychainValues(&args); err != nil {
		log.Fatalf("fill keychain values: %v", err)
	}
	logutils.SetLoggerLevel(args.LogLevel)
	logutils.SetLoggerFormat(args.LogFormat)

	ctx := context.Background()
	stores, err := storage.Setup(ctx, args.Config)
	if err != nil {
		log.Fatalf("setup storage: %v", err)
	}
	defer stores.Close()

	sapClient, err := args.NewClient()
	if err != nil {
		log.Fatalf("create sap client: %v", err)
	}

	cache := lookup.New(stores.Lookups, sapClient, lookup.WithTTL(args.LookupTTL))

	config := invoice.Config{
		Resolver:  cache,
		Submitter: sapClient,
		Store:     stores.Invoices,
		TaxCode:   args.TaxCode,
	}
	var opts []backend.Option
	if args.OsAddr != "" {
		idx, err := auditindex.New(auditindex.Config{
			Addr:               args.OsAddr,
			Index:              args.OsIndex,
			Username:           args.OsUsername,
			Password:           args.OsPassword,
			InsecureSkipVerify: args.OsInsecureSkipVerify,
		})
		if err != nil {
			log.Fatalf("create audit index: %v", err)
		}
		if err := idx.EnsureIndex(ctx); err != nil {
			log.Warnf("unable to create index %s: %v", args.OsIndex, err)
		}
		config.Mirror = idx
		opts = append(opts, backend.WithSearcher(idx))
	}

	svc, err := invoice.NewService(config)
	if err != nil {
		log.Fatalf("create invoice service: %v", err)
	}

	s := backend.New(svc, sapClient, opts...)
	log.Infof("listening on %s", args.ListenAddr)
	err = s.Run(args.ListenAddr)
	if err != nil {
		log.Fatalf("listen: %v", err)
	}
}
