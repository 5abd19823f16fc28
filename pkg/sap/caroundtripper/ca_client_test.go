package caroundtripper_test

import (
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denysvitali/wms-backend/pkg/sap/caroundtripper"
)

func writeCA(t *testing.T, srv *httptest.Server) string {
	p := filepath.Join(t.TempDir(), "ca.pem")
	b := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: srv.Certificate().Raw})
	require.NoError(t, os.WriteFile(p, b, 0600))
	return p
}

func TestTrustsGivenCA(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	rt, err := caroundtripper.New(writeCA(t, srv))
	require.NoError(t, err)

	c := &http.Client{Transport: rt}
	res, err := c.Get(srv.URL)
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusNoContent, res.StatusCode)
}

func TestInvalidBundle(t *testing.T) {
	p := filepath.Join(t.TempDir(), "ca.pem")
	require.NoError(t, os.WriteFile(p, []byte("not a certificate"), 0600))
	_, err := caroundtripper.New(p)
	assert.Error(t, err)

	key := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: []byte{1, 2, 3}})
	require.NoError(t, os.WriteFile(p, key, 0600))
	_, err = caroundtripper.New(p)
	assert.Error(t, err)

	_, err = caroundtripper.New(filepath.Join(t.TempDir(), "missing.pem"))
	assert.Error(t, err)
}
