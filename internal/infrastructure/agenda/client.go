// Package agenda commits approved schedules to an HTTP batch endpoint.
package agenda

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"WorkshopScheduler/internal/domain"
	"WorkshopScheduler/internal/ports"
)

const serviceName = "agenda"

// Client posts schedule rows to the storage backend's batch endpoint.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

var _ ports.ScheduleSink = (*Client)(nil)

// NewClient creates a reusable HTTP client.
func NewClient(endpoint, apiKey string) *Client {
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   apiKey,
		http:     &http.Client{Timeout: 15 * time.Second},
	}
}

type entry struct {
	Date      string `json:"date"`
	Resource  string `json:"mecanico"`
	Slot      string `json:"horario"`
	Reference string `json:"placa"`
	Category  string `json:"tipo"`
	CardID    string `json:"card_id,omitempty"`
}

// InsertBatch sends every record in one request; any non-2xx answer means nothing was committed.
func (c *Client) InsertBatch(ctx context.Context, records []domain.ScheduleRecord) error {
	if len(records) == 0 {
		return nil
	}

	payload := struct {
		Records []entry `json:"records"`
	}{Records: make([]entry, 0, len(records))}

	for _, rec := range records {
		payload.Records = append(payload.Records, entry{
			Date:      rec.Date,
			Resource:  rec.Resource,
			Slot:      rec.Slot,
			Reference: rec.ReferenceCode,
			Category:  rec.Category,
			CardID:    rec.CardID,
		})
	}

	return c.post(ctx, "/agenda/batch", payload)
}

func (c *Client) post(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode agenda batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build agenda request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Upstream(serviceName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.Upstream(serviceName, fmt.Errorf("status %s: %s", resp.Status, bytes.TrimSpace(snippet)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
