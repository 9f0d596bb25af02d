package notify

import (
	"context"
	"fmt"
	"net/http"

	httpx "github.com/randalmurphal/alertflow/http"
)

// =============================================================================
// WebhookNotifier
// =============================================================================

// WebhookNotifier posts events as JSON to a generic HTTP endpoint. It
// rides the shared retrying client, so transient delivery failures get
// retried with backoff.
type WebhookNotifier struct {
	client *httpx.Client
}

// NewWebhookNotifier creates a webhook notifier for url. The headers are
// set on every delivery.
func NewWebhookNotifier(url string, headers map[string]string) *WebhookNotifier {
	return &WebhookNotifier{
		client: httpx.NewClient(httpx.ClientConfig{
			BaseURL:     url,
			ServiceName: "webhook",
			BeforeRequest: func(req *http.Request) {
				for k, v := range headers {
					req.Header.Set(k, v)
				}
			},
		}),
	}
}

// Notify implements Notifier.
func (n *WebhookNotifier) Notify(ctx context.Context, event Event) error {
	if err := n.client.Post(ctx, "", event, nil); err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	return nil
}
