/*
workclient.go implements the worker side of the dealer's wire protocol
(spec.md §4.7, §6 "Worker → Dealer protocol contract"): plain net/http
and encoding/json calls against /work, /complete, /insert, and /alias,
with bounded retry/backoff on non-2xx responses. This replaces the
teacher's gRPC+mTLS pkg/client.Client, since the dealer speaks JSON over
HTTP rather than RPC; the retry-with-backoff shape is new to this
package (no ecosystem HTTP retry client appears anywhere in the
retrieval pack, so it is hand-rolled over net/http — see DESIGN.md).
*/
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cuemby/netwatch/pkg/log"
	"github.com/rs/zerolog"
)

// WorkClient is the stateless worker's handle to one dealer.
type WorkClient struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger

	maxRetries int
	baseDelay  time.Duration
}

// NewWorkClient builds a WorkClient against a dealer at baseURL (e.g.
// "http://127.0.0.1:8080").
func NewWorkClient(baseURL string) *WorkClient {
	return &WorkClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:     log.WithComponent("client"),
		maxRetries: 3,
		baseDelay:  500 * time.Millisecond,
	}
}

// WorkItem is one row dict returned by /work; its shape is deliberately
// open since a worker only needs to read recognized fields out of it by
// key (the rows returned may be aliases, imports, or services).
type WorkItem map[string]interface{}

// FetchWork polls /work advertising stackType ("v4", "v6", or "dual")
// and an optional tableType filter ("" means no filter).
func (c *WorkClient) FetchWork(ctx context.Context, stackType, tableType string) ([]WorkItem, error) {
	body := map[string]interface{}{"stack_type": stackType}
	if tableType != "" {
		body["table_type"] = tableType
	}

	var items []WorkItem
	if err := c.postJSON(ctx, "/work", body, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// CompleteEntry reports the outcome of probing one status_id.
type CompleteEntry struct {
	StatusID  uint64 `json:"status_id"`
	IsSuccess bool   `json:"is_success"`
}

// ReportComplete calls /complete for a batch of finished probes.
func (c *WorkClient) ReportComplete(ctx context.Context, entries []CompleteEntry) error {
	body := map[string]interface{}{"statuses": entries}
	var results []int
	return c.postJSON(ctx, "/complete", body, &results)
}

// DiscoveredService is one service a successful import probe learned
// about, destined for /insert.
type DiscoveredService struct {
	Type     string  `json:"type"`
	AF       string  `json:"af"`
	Proto    string  `json:"proto"`
	IP       string  `json:"ip"`
	Port     int     `json:"port"`
	User     *string `json:"user,omitempty"`
	Password *string `json:"password,omitempty"`
	AliasID  *uint64 `json:"alias_id,omitempty"`
}

// InsertServices calls /insert with the groups of services discovered by
// one import probe and the status_id of that import's work item.
func (c *WorkClient) InsertServices(ctx context.Context, groups [][]DiscoveredService, statusID uint64) error {
	body := map[string]interface{}{"imports_list": groups, "status_id": statusID}
	var results []interface{}
	return c.postJSON(ctx, "/insert", body, &results)
}

// UpdateAlias calls /alias with a freshly resolved DNS IP.
func (c *WorkClient) UpdateAlias(ctx context.Context, aliasID uint64, ip string) error {
	body := map[string]interface{}{"alias_id": aliasID, "ip": ip}
	var results []interface{}
	return c.postJSON(ctx, "/alias", body, &results)
}

// postJSON sends body as a JSON POST to path, retrying non-2xx
// responses up to maxRetries times with exponential backoff (spec.md
// §7, "InvalidInput... respond with a non-200 so workers retry after
// backoff"). The final attempt's error, if any, is returned.
func (c *WorkClient) postJSON(ctx context.Context, path string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("client: marshaling request for %s: %w", path, err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.baseDelay * time.Duration(1<<uint(attempt-1))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = c.doOnce(ctx, path, payload, out)
		if lastErr == nil {
			return nil
		}
		c.logger.Warn().Err(lastErr).Str("path", path).Int("attempt", attempt).Msg("request failed, retrying")
	}
	return fmt.Errorf("client: %s failed after %d attempts: %w", path, c.maxRetries+1, lastErr)
}

func (c *WorkClient) doOnce(ctx context.Context, path string, payload []byte, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("dealer returned %d: %s", resp.StatusCode, string(data))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}
