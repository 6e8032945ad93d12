package billsvc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Success(t *testing.T) {
	entryID := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/validate", r.URL.Path)

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, entryID.String(), req["entry_id"])
		assert.Equal(t, "bill-ref-77", req["document_ref"])

		json.NewEncoder(w).Encode(map[string]string{"verdict": "VALID"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	verdict, err := c.Validate(context.Background(), entryID, "bill-ref-77")

	require.NoError(t, err)
	assert.Equal(t, "VALID", verdict)
}

func TestValidate_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	_, err := c.Validate(context.Background(), uuid.New(), "bill-ref-77")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestValidate_EmptyVerdict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	_, err := c.Validate(context.Background(), uuid.New(), "bill-ref-77")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty verdict")
}

func TestValidate_Unreachable(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", 500*time.Millisecond)
	_, err := c.Validate(context.Background(), uuid.New(), "bill-ref-77")
	require.Error(t, err)
}
