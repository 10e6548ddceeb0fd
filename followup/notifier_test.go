package followup

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_DeliversPayload(t *testing.T) {
	var (
		gotPath    string
		gotKey     string
		gotPayload WebhookPayload
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("X-Internal-Key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	notifier := NewNotifier(server.URL, "clave-interna")
	notifier.Notify(WebhookPayload{
		FollowUpID: 15,
		Verdict: Verdict{
			Urgency:           UrgencyHigh,
			RequiresAttention: true,
			Sentiment:         SentimentNegative,
		},
		Timestamp: time.Now().UTC(),
	})

	assert.Equal(t, "/api/seguimiento/webhook-ia", gotPath)
	assert.Equal(t, "clave-interna", gotKey)
	assert.Equal(t, 15, gotPayload.FollowUpID)
	assert.Equal(t, UrgencyHigh, gotPayload.Verdict.Urgency)
}

func TestNotifier_FailureDoesNotPanic(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	notifier := NewNotifier(server.URL, "clave-interna")
	assert.NotPanics(t, func() {
		notifier.Notify(WebhookPayload{FollowUpID: 1})
	})
}

func TestNotifier_UnreachableBackend(t *testing.T) {
	notifier := NewNotifier("http://127.0.0.1:1", "clave-interna")
	assert.NotPanics(t, func() {
		notifier.Notify(WebhookPayload{FollowUpID: 1})
	})
}
