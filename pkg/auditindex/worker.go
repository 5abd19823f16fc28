package auditindex

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/denysvitali/wms-backend/pkg/models"
)

// Loader reads a full invoice record, lines included.
type Loader interface {
	Get(ctx context.Context, id string) (*models.InvoiceDocument, error)
}

// Target receives the loaded invoices, usually an *Indexer.
type Target interface {
	Mirror(ctx context.Context, doc *models.InvoiceDocument) error
}

type Worker struct {
	id     int
	ch     <-chan string
	loader Loader
	target Target
	stats  *Stats
}

type Stats struct {
	Indexed atomic.Int64
	Skipped atomic.Int64
	Failed  atomic.Int64
}

func (w *Worker) do(ctx context.Context, invoiceID string) {
	log.Debugf("[W%d]: loading %s", w.id, invoiceID)
	doc, err := w.loader.Get(ctx, invoiceID)
	if err != nil {
		log.Errorf("[W%d]: %s cannot be loaded: %v", w.id, invoiceID, err)
		w.stats.Failed.Add(1)
		return
	}
	if doc.Status == models.StatusDraft {
		log.Debugf("[W%d]: %s is still a draft, skipping", w.id, invoiceID)
		w.stats.Skipped.Add(1)
		return
	}
	if err := w.target.Mirror(ctx, doc); err != nil {
		log.Errorf("[W%d]: %s cannot be indexed: %v", w.id, invoiceID, err)
		w.stats.Failed.Add(1)
		return
	}
	w.stats.Indexed.Add(1)
	log.Debugf("[W%d]: done indexing %s", w.id, invoiceID)
}

func (w *Worker) Start(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	for v := range w.ch {
		w.do(ctx, v)
	}
}

// Reindex mirrors every invoice id received on ids with the given number of
// workers. It returns once ids is closed and drained.
func Reindex(ctx context.Context, loader Loader, target Target, ids <-chan string, workers int) *Stats {
	if workers < 1 {
		workers = 1
	}
	stats := &Stats{}
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		w := Worker{id: i, ch: ids, loader: loader, target: target, stats: stats}
		wg.Add(1)
		go w.Start(ctx, &wg)
	}
	wg.Wait()
	log.Infof("done indexing: %d indexed, %d skipped, %d failed",
		stats.Indexed.Load(), stats.Skipped.Load(), stats.Failed.Load())
	return stats
}
