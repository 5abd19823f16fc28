package apperr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/denysvitali/wms-backend/pkg/apperr"
)

func TestErrorIsKind(t *testing.T) {
	err := fmt.Errorf("resolve: %w", apperr.NotFoundf("serial number not found").WithSerial("SN1"))
	assert.True(t, errors.Is(err, apperr.NotFound))
	assert.False(t, errors.Is(err, apperr.Validation))
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
	assert.Equal(t, "resolve: serial number SN1: serial number not found", err.Error())
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, apperr.PersistenceFailed, apperr.KindOf(errors.New("boom")))
	assert.Equal(t, apperr.Kind(""), apperr.KindOf(nil))
}

func TestRetryable(t *testing.T) {
	assert.True(t, apperr.Unavailable(errors.New("timeout")).Retryable())
	assert.False(t, apperr.Rejected(400, "no stock").Retryable())
	assert.True(t, apperr.Rejected(503, "service unavailable").Retryable())
	assert.False(t, apperr.Validationf("bad").Retryable())
}

func TestPublicHidesCauses(t *testing.T) {
	err := apperr.Unavailable(errors.New("dial tcp 10.0.0.1:50000: connection refused"))
	assert.Contains(t, err.Error(), "connection refused")
	assert.NotContains(t, apperr.Public(err), "10.0.0.1")

	assert.Equal(t, "local storage error", apperr.Public(apperr.Persistence(errors.New("pq: password authentication failed"))))
	assert.Equal(t, "internal server error", apperr.Public(errors.New("x")))
	assert.Equal(t, "item is out of stock", apperr.Public(apperr.Rejected(400, "item is out of stock")))
}
