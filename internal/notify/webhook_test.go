package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/nuntius/internal/common"
)

func TestWebhookNotifier_Notify_PostsTextPayload(t *testing.T) {
	var received map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &received)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
	}))
	defer server.Close()

	notifier := NewWebhookNotifier(common.NotifyConfig{
		WebhookURL:     server.URL,
		RequestTimeout: 5 * time.Second,
	}, arbor.NewLogger())

	err := notifier.Notify(context.Background(), "Daily report 2025-06-15")
	require.NoError(t, err)
	assert.Equal(t, "Daily report 2025-06-15", received["text"])
}

func TestWebhookNotifier_Notify_UnsetURLIsNoop(t *testing.T) {
	notifier := NewWebhookNotifier(common.NotifyConfig{}, arbor.NewLogger())
	assert.NoError(t, notifier.Notify(context.Background(), "dropped"))
}

func TestWebhookNotifier_Notify_ErrorStatusReturned(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	notifier := NewWebhookNotifier(common.NotifyConfig{
		WebhookURL:     server.URL,
		RequestTimeout: 5 * time.Second,
	}, arbor.NewLogger())

	assert.Error(t, notifier.Notify(context.Background(), "alert"))
}
