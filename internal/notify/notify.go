// Package notify closes the loop with the customer when a complaint is
// resolved. It is driven by the HTTP layer, not by the triage engine.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/resolvr/backend/internal/models"
)

type Notifier interface {
	ComplaintResolved(ctx context.Context, c models.Complaint) error
}

type LogNotifier struct {
	Logger zerolog.Logger
}

func (n LogNotifier) ComplaintResolved(_ context.Context, c models.Complaint) error {
	n.Logger.Info().Str("complaint_id", c.ID).Str("phone", c.CustomerPhone).Msg("customer notified of resolution")
	return nil
}

// WebhookNotifier posts the resolved complaint to an external dialer.
type WebhookNotifier struct {
	URL    string
	Client *http.Client
}

type webhookPayload struct {
	ComplaintID   string    `json:"complaint_id"`
	CustomerName  string    `json:"customer_name"`
	CustomerPhone string    `json:"customer_phone"`
	ResolvedAt    time.Time `json:"resolved_at"`
}

func (n WebhookNotifier) ComplaintResolved(ctx context.Context, c models.Complaint) error {
	client := n.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	p := webhookPayload{
		ComplaintID:   c.ID,
		CustomerName:  c.CustomerName,
		CustomerPhone: c.CustomerPhone,
	}
	if c.ResolvedAt != nil {
		p.ResolvedAt = *c.ResolvedAt
	}
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.URL, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notify webhook error: %s", resp.Status)
	}
	return nil
}
