// Package auggie integrates an optional sibling semantic search engine into
// dual.search. The engine is invoked only when a transport is configured;
// otherwise responses carry a hint so the caller can fan out itself.
package auggie

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/zoonderkins/augment-lite/internal/store"
)

// EnvURL configures the external engine's HTTP endpoint. Unset means
// hint-only mode; the transport is never guessed.
const EnvURL = "AUGGIE_MCP_URL"

// Client talks to the external engine when configured.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client from the environment.
func New() *Client {
	return &Client{
		baseURL: os.Getenv(EnvURL),
		http:    &http.Client{Timeout: 90 * time.Second},
	}
}

// Available reports whether a transport is configured.
func (c *Client) Available() bool {
	return c.baseURL != ""
}

// Hint returns the manual fan-out instruction for the caller.
func Hint(query string) string {
	return fmt.Sprintf(
		"For comprehensive results, also call: "+
			"mcp__auggie-mcp__codebase-retrieval(information_request=%q)", query)
}

type searchRequest struct {
	InformationRequest string `json:"information_request"`
}

type searchResponse struct {
	Results []struct {
		Text   string  `json:"text"`
		Source string  `json:"source"`
		Score  float64 `json:"score"`
	} `json:"results"`
}

// Search queries the external engine. Callers must check Available first.
func (c *Client) Search(ctx context.Context, query string) ([]*store.Hit, error) {
	if !c.Available() {
		return nil, fmt.Errorf("no auggie transport configured (set %s)", EnvURL)
	}

	body, err := json.Marshal(searchRequest{InformationRequest: query})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/codebase-retrieval", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auggie request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("auggie returned %d: %s", resp.StatusCode, bytes.TrimSpace(detail))
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode auggie response: %w", err)
	}

	hits := make([]*store.Hit, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		hits = append(hits, &store.Hit{Text: r.Text, Source: r.Source, Score: r.Score})
	}
	return hits, nil
}

// Merge combines local and external hits deduplicated by source (local wins)
// and caps the total.
func Merge(local, external []*store.Hit, maxTotal int) []*store.Hit {
	seen := make(map[string]struct{}, len(local)+len(external))
	out := make([]*store.Hit, 0, len(local)+len(external))

	for _, h := range local {
		if _, dup := seen[h.Source]; dup {
			continue
		}
		seen[h.Source] = struct{}{}
		out = append(out, h)
	}
	for _, h := range external {
		if _, dup := seen[h.Source]; dup {
			continue
		}
		seen[h.Source] = struct{}{}
		out = append(out, h)
	}

	if maxTotal > 0 && len(out) > maxTotal {
		out = out[:maxTotal]
	}
	return out
}
