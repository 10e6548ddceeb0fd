package followup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/arludent/assistant/pkg/logx"
)

const webhookPath = "/api/seguimiento/webhook-ia"

// Notifier posts analysis verdicts to the clinic backend's webhook.
type Notifier struct {
	baseURL     string
	internalKey string
	httpClient  *http.Client
}

// NewNotifier creates a notifier for the given backend base URL.
func NewNotifier(baseURL, internalKey string) *Notifier {
	return &Notifier{
		baseURL:     baseURL,
		internalKey: internalKey,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Notify delivers the payload. Failures are logged, never propagated:
// the analysis result has already been returned to the caller.
func (n *Notifier) Notify(payload WebhookPayload) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := n.send(ctx, payload); err != nil {
		logx.WithFields(logx.Fields{
			"followup_id": payload.FollowUpID,
		}).WithError(err).Error("Webhook delivery failed")
		return
	}

	logx.WithField("followup_id", payload.FollowUpID).Info("Webhook delivered")
}

func (n *Notifier) send(ctx context.Context, payload WebhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL+webhookPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Internal-Key", n.internalKey)

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, string(snippet))
	}

	return nil
}
