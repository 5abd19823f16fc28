// Package lookup resolves serial numbers to item attributes, answering from
// the local store while an entry is fresh and asking SAP otherwise.
package lookup

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/denysvitali/wms-backend/pkg/apperr"
	"github.com/denysvitali/wms-backend/pkg/models"
	"github.com/denysvitali/wms-backend/pkg/sap"
	"github.com/denysvitali/wms-backend/pkg/storage/model"
)

var log = logrus.StandardLogger().WithField("package", "lookup")

const DefaultTTL = time.Hour

// Remote looks a serial number up in SAP. An empty result means not found.
type Remote interface {
	LookupSerial(ctx context.Context, serial string) ([]sap.SerialRecord, error)
}

type Result struct {
	Attributes models.ItemAttributes `json:"attributes"`
	// Cached is true when no remote call was made.
	Cached      bool      `json:"cached"`
	LastUpdated time.Time `json:"lastUpdated"`
}

type Cache struct {
	store  model.LookupStore
	remote Remote
	ttl    time.Duration
	now    func() time.Time
}

type Option func(*Cache)

func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

func New(store model.LookupStore, remote Remote, opts ...Option) *Cache {
	c := &Cache{
		store:  store,
		remote: remote,
		ttl:    DefaultTTL,
		now:    time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Resolve returns the attributes of serial, from the store if the entry was
// refreshed less than the TTL ago.
func (c *Cache) Resolve(ctx context.Context, serial string) (*Result, error) {
	serial = strings.TrimSpace(serial)
	if serial == "" {
		return nil, apperr.Validationf("serial number is required")
	}

	now := c.now()
	entry, err := c.store.Get(ctx, serial)
	if err != nil {
		log.Warnf("unable to read cached lookup for %s, asking SAP: %v", serial, err)
	} else if entry != nil && entry.Fresh(now, c.ttl) {
		log.Debugf("cache hit for %s", serial)
		return &Result{Attributes: entry.Attributes(), Cached: true, LastUpdated: entry.LastUpdated}, nil
	}
	return c.fetch(ctx, serial, now)
}

// Refresh asks SAP regardless of the cached entry.
func (c *Cache) Refresh(ctx context.Context, serial string) (*Result, error) {
	serial = strings.TrimSpace(serial)
	if serial == "" {
		return nil, apperr.Validationf("serial number is required")
	}
	return c.fetch(ctx, serial, c.now())
}

func (c *Cache) fetch(ctx context.Context, serial string, now time.Time) (*Result, error) {
	records, err := c.remote.LookupSerial(ctx, serial)
	if err != nil {
		if e, ok := apperr.As(err); ok {
			return nil, e.WithSerial(serial)
		}
		return nil, apperr.Unavailable(err).WithSerial(serial)
	}
	if len(records) == 0 {
		return nil, apperr.NotFoundf("not found in SAP or not available").WithSerial(serial)
	}
	if len(records) > 1 {
		log.Debugf("SAP returned %d records for %s, using the first one", len(records), serial)
	}

	rec := records[0]
	attrs := rec.ItemAttributes
	if attrs.DistNumber == "" {
		attrs.DistNumber = serial
	}

	entry := models.NewSerialLookup(serial, attrs, string(rec.Raw), now)
	if err := c.store.Upsert(ctx, entry); err != nil {
		log.Errorf("unable to store lookup for %s: %v", serial, err)
	}
	return &Result{Attributes: attrs, Cached: false, LastUpdated: now}, nil
}
