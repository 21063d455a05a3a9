// Package trello reads board snapshots from the Trello REST API.
package trello

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"WorkshopScheduler/internal/domain"
	"WorkshopScheduler/internal/kanban"
	"WorkshopScheduler/internal/ports"
)

const (
	defaultBaseURL = "https://api.trello.com"
	serviceName    = "trello"
)

// Config identifies the board and credentials.
type Config struct {
	BaseURL       string
	APIKey        string
	Token         string
	BoardID       string
	EligibleLists []string
}

// Client implements CardSource against one board.
type Client struct {
	cfg      Config
	eligible map[string]struct{}
	http     *http.Client
	logger   *slog.Logger
}

var _ ports.CardSource = (*Client)(nil)

// NewClient wires an HTTP client; a nil client gets a 20 second timeout.
func NewClient(cfg Config, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	eligible := make(map[string]struct{}, len(cfg.EligibleLists))
	for _, name := range cfg.EligibleLists {
		if name = strings.ToLower(strings.TrimSpace(name)); name != "" {
			eligible[name] = struct{}{}
		}
	}

	return &Client{cfg: cfg, eligible: eligible, http: httpClient, logger: logger}
}

// FetchSnapshot reads lists, custom fields and open cards of the board.
func (c *Client) FetchSnapshot(ctx context.Context) (kanban.Snapshot, error) {
	if c.cfg.BoardID == "" || c.cfg.APIKey == "" || c.cfg.Token == "" {
		return kanban.Snapshot{}, fmt.Errorf("trello client misconfigured")
	}

	var lists []kanban.List
	if err := c.get(ctx, "lists", nil, &lists); err != nil {
		return kanban.Snapshot{}, err
	}

	var fields []kanban.CustomField
	if err := c.get(ctx, "customFields", nil, &fields); err != nil {
		return kanban.Snapshot{}, err
	}

	var cards []kanban.Card
	params := url.Values{}
	params.Set("customFieldItems", "true")
	params.Set("members", "true")
	params.Set("filter", "open")
	if err := c.get(ctx, "cards", params, &cards); err != nil {
		return kanban.Snapshot{}, err
	}

	board := kanban.Board{
		Lists:        make(map[string]string, len(lists)),
		CustomFields: fields,
	}
	for _, l := range lists {
		board.Lists[l.ID] = l.Name
	}

	kept := make([]kanban.Card, 0, len(cards))
	for _, card := range cards {
		if card.Closed || !c.isEligible(board.ListName(card.IDList)) {
			continue
		}
		kept = append(kept, card)
	}

	c.debug("board snapshot fetched",
		"lists", len(lists),
		"custom_fields", len(fields),
		"cards", len(cards),
		"kept", len(kept))

	return kanban.Snapshot{Board: board, Cards: kept}, nil
}

func (c *Client) isEligible(listName string) bool {
	if len(c.eligible) == 0 {
		return true
	}
	_, ok := c.eligible[strings.ToLower(strings.TrimSpace(listName))]
	return ok
}

func (c *Client) get(ctx context.Context, resource string, params url.Values, v any) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("key", c.cfg.APIKey)
	params.Set("token", c.cfg.Token)

	endpoint := fmt.Sprintf("%s/1/boards/%s/%s?%s",
		c.cfg.BaseURL, url.PathEscape(c.cfg.BoardID), resource, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Upstream(serviceName, fmt.Errorf("get %s: %w", resource, stripURL(err)))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Upstream(serviceName, fmt.Errorf("get %s: unexpected status %s", resource, resp.Status))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return domain.Upstream(serviceName, fmt.Errorf("decode %s: %w", resource, err))
	}
	return nil
}

// stripURL drops the request URL, which carries credentials, from transport errors.
func stripURL(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s request: %w", strings.ToLower(urlErr.Op), urlErr.Err)
	}
	return err
}

func (c *Client) debug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}
