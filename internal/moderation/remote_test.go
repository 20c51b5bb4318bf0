package moderation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoteClassifier(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req remoteRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, http.MethodPost, r.Method)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(remoteResponse{
			Probability:  0.83,
			Label:        true,
			FoundLexical: []string{req.Text},
		})
	}))
	defer srv.Close()

	c := NewRemoteClassifier(srv.URL, srv.Client())
	res, err := c.Classify(context.Background(), "loser")
	require.NoError(t, err)
	assert.InDelta(t, 0.83, res.Probability, 1e-9)
	assert.True(t, res.Flagged)
	assert.Equal(t, []string{"loser"}, res.Terms)
}

func TestRemoteClassifierNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model warming up", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewRemoteClassifier(srv.URL, srv.Client())
	_, err := c.Classify(context.Background(), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}
