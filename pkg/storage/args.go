package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/denysvitali/wms-backend/pkg/storage/gormstore"
	"github.com/denysvitali/wms-backend/pkg/storage/memory"
	"github.com/denysvitali/wms-backend/pkg/storage/model"
	"github.com/denysvitali/wms-backend/pkg/storage/redisstore"
	"github.com/denysvitali/wms-backend/pkg/storage/sqlstore"
)

var log = logrus.StandardLogger().WithField("package", "storage")

const (
	TypePostgres = "postgres"
	TypeMemory   = "memory"

	CacheRedis = "redis"
)

type Config struct {
	StorageType   string `arg:"--storage-type,env:STORAGE_TYPE" default:"postgres" help:"postgres or memory"`
	PostgresDSN   string `arg:"--postgres-dsn,env:POSTGRES_DSN"`
	CacheBackend  string `arg:"--cache-backend,env:CACHE_BACKEND" default:"postgres" help:"where serial lookups are kept: postgres or redis"`
	RedisAddr     string `arg:"--redis-addr,env:REDIS_ADDR" default:"127.0.0.1:6379"`
	RedisPassword string `arg:"--redis-password,env:REDIS_PASSWORD"`
	RedisDB       int    `arg:"--redis-db,env:REDIS_DB" default:"0"`
}

// Stores is the set of backends the service runs on.
type Stores struct {
	Lookups  model.LookupStore
	Invoices model.InvoiceStore

	db *sql.DB
}

func (s *Stores) Close() error {
	if closer, ok := s.Lookups.(*redisstore.LookupStore); ok {
		_ = closer.Close()
	}
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func Setup(ctx context.Context, args Config) (*Stores, error) {
	switch args.StorageType {
	case TypeMemory:
		log.Warn("using in-memory storage, data is lost on restart")
		return &Stores{
			Lookups:  memory.NewLookupStore(),
			Invoices: memory.NewInvoiceStore(),
		}, nil
	case TypePostgres:
	default:
		return nil, fmt.Errorf("invalid storage type %q", args.StorageType)
	}

	if args.PostgresDSN == "" {
		return nil, fmt.Errorf("--postgres-dsn is required for storage type %s", TypePostgres)
	}
	db, err := sqlstore.Open(args.PostgresDSN)
	if err != nil {
		return nil, err
	}
	invoices, err := gormstore.New(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	stores := &Stores{Invoices: invoices, db: db}

	switch args.CacheBackend {
	case CacheRedis:
		rs := redisstore.New(args.RedisAddr, args.RedisPassword, args.RedisDB)
		if err := pingOrClose(ctx, rs); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("unable to reach redis at %s: %w", args.RedisAddr, err)
		}
		stores.Lookups = rs
	case TypePostgres, "":
		stores.Lookups = sqlstore.NewLookupStore(db)
	default:
		_ = db.Close()
		return nil, fmt.Errorf("invalid cache backend %q", args.CacheBackend)
	}
	return stores, nil
}

// pingOrClose releases the client when Redis can't be reached.
func pingOrClose(ctx context.Context, rs *redisstore.LookupStore) error {
	if err := rs.Ping(ctx); err != nil {
		_ = rs.Close()
		return err
	}
	return nil
}

// SetupGorm opens the gorm store alone, for schema management.
func SetupGorm(dsn string) (*gormstore.Store, func(), error) {
	db, err := sqlstore.Open(dsn)
	if err != nil {
		return nil, nil, err
	}
	store, err := gormstore.New(db)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return store, func() { _ = db.Close() }, nil
}
