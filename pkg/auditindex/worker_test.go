package auditindex

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denysvitali/wms-backend/pkg/models"
	"github.com/denysvitali/wms-backend/pkg/storage/memory"
)

type recordingMirror struct {
	mutex sync.Mutex
	ids   []string
	fail  string
}

func (r *recordingMirror) Mirror(_ context.Context, doc *models.InvoiceDocument) error {
	if doc.ID == r.fail {
		return errors.New("opensearch returned an invalid status 429")
	}
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.ids = append(r.ids, doc.ID)
	return nil
}

func TestReindex(t *testing.T) {
	ctx := context.Background()
	store := memory.NewInvoiceStore()
	for _, id := range []string{"a", "b", "c", "d"} {
		doc := &models.InvoiceDocument{ID: id, UserID: "u1", Status: models.StatusDraft}
		require.NoError(t, store.CreateDraft(ctx, doc))
		if id == "d" {
			continue
		}
		require.NoError(t, doc.Transition(models.StatusCreated))
		require.NoError(t, store.Finalize(ctx, doc))
	}

	ids := make(chan string)
	go func() {
		for _, id := range []string{"a", "b", "c", "d", "missing"} {
			ids <- id
		}
		close(ids)
	}()

	target := &recordingMirror{fail: "c"}
	stats := Reindex(ctx, store, target, ids, 3)
	assert.Equal(t, int64(2), stats.Indexed.Load())
	assert.Equal(t, int64(1), stats.Skipped.Load())
	assert.Equal(t, int64(2), stats.Failed.Load())
	assert.ElementsMatch(t, []string{"a", "b"}, target.ids)
}
