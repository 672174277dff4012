package pokeapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	domain "pokedex-user-service/internal/domain/user"
	pkgerrors "pokedex-user-service/pkg/errors"
)

// Client fetches Pokemon name data from an external lookup service exposing
// GET {base}/pokemon/{id}.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *zap.Logger
}

// NewClient creates a new lookup client. The timeout bounds every individual
// request so a stalled upstream cannot hold a request open indefinitely.
func NewClient(baseURL string, timeout time.Duration, log *zap.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

// Fetch resolves the given species ids to id/name pairs, one request per id
// fanned out concurrently. The result order matches the input order. If any
// single lookup fails the whole batch fails and partial results are
// discarded.
func (c *Client) Fetch(ctx context.Context, ids []int64) ([]domain.Pokemon, error) {
	if len(ids) == 0 {
		return []domain.Pokemon{}, nil
	}

	results := make([]domain.Pokemon, len(ids))

	g, ctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			p, err := c.fetchOne(ctx, id)
			if err != nil {
				return err
			}
			results[i] = p
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		c.log.Error("pokemon lookup failed", zap.Int("count", len(ids)), zap.Error(err))
		return nil, err
	}

	c.log.Debug("pokemon lookup completed", zap.Int("count", len(ids)))
	return results, nil
}

func (c *Client) fetchOne(ctx context.Context, id int64) (domain.Pokemon, error) {
	url := fmt.Sprintf("%s/pokemon/%d", c.baseURL, id)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.Pokemon{}, pkgerrors.NewUpstreamError("pokeapi", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Pokemon{}, pkgerrors.NewUpstreamError("pokeapi", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Pokemon{}, pkgerrors.NewUpstreamError("pokeapi",
			fmt.Errorf("unexpected status %d for pokemon %d", resp.StatusCode, id))
	}

	var payload struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.Pokemon{}, pkgerrors.NewUpstreamError("pokeapi",
			fmt.Errorf("failed to decode response for pokemon %d: %w", id, err))
	}

	return domain.Pokemon{ID: payload.ID, Name: payload.Name}, nil
}
