package polymarket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/alanyoungcy/mirrorbot/internal/domain"
)

const (
	// positionsPageSize is the Data API page size for /positions.
	positionsPageSize = 500

	// fetchMaxTries bounds the retry attempts per page for transient errors.
	fetchMaxTries = 4
)

// DataClient is the REST client for the Polymarket Data API. It implements
// domain.MarketDataSource: each FetchPositions call returns a fully
// normalized account snapshot, absorbing the venue's pagination, field-shape
// variance, and missing-metadata cases so callers never see them.
type DataClient struct {
	baseURL    string
	httpClient *http.Client
	gamma      *GammaClient       // optional metadata fallback
	markets    domain.MarketCache // optional metadata cache
	logger     *slog.Logger
}

var _ domain.MarketDataSource = (*DataClient)(nil)

// NewDataClient creates a Data API client.
//
// baseURL is the Data API root, e.g. "https://data-api.polymarket.com".
// gamma and markets may be nil; they are only used to resolve market metadata
// the position rows do not carry inline.
func NewDataClient(baseURL string, gamma *GammaClient, markets domain.MarketCache, logger *slog.Logger) *DataClient {
	return &DataClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		gamma:   gamma,
		markets: markets,
		logger:  logger.With(slog.String("component", "data_client")),
	}
}

// FetchPositions returns the full set of address's open positions as one
// snapshot. Transient HTTP failures are retried with capped exponential
// backoff before the error is surfaced; the caller keeps its previous
// snapshot on failure.
func (d *DataClient) FetchPositions(ctx context.Context, address string) (domain.AccountSnapshot, error) {
	now := time.Now().UTC()
	snap := domain.AccountSnapshot{
		Address:    address,
		Positions:  make(map[string]domain.Position),
		CapturedAt: now,
	}

	offset := 0
	for {
		page, err := d.fetchPage(ctx, address, positionsPageSize, offset)
		if err != nil {
			return domain.AccountSnapshot{}, fmt.Errorf("polymarket/data: fetch positions for %s: %w", address, err)
		}

		for i := range page {
			raw := &page[i]
			if raw.Asset == "" || float64(raw.Size) <= 0 {
				continue
			}
			market := d.resolveMarket(ctx, raw)
			pos := raw.ToDomainPosition(market, now)
			snap.Positions[pos.ID] = pos
			snap.TotalValue += pos.Value
		}

		if len(page) < positionsPageSize {
			break
		}
		offset += positionsPageSize
	}

	return snap, nil
}

// fetchPage retrieves one page of positions, retrying transient failures.
// The Data API has shipped the user filter under two parameter names over
// time; a 404 on "user" falls back to "address".
func (d *DataClient) fetchPage(ctx context.Context, address string, limit, offset int) ([]APIPosition, error) {
	page, err := d.fetchPageParam(ctx, "user", address, limit, offset)
	if err != nil && errors.Is(err, domain.ErrNotFound) {
		d.logger.Debug("positions endpoint rejected user param, retrying with address param")
		return d.fetchPageParam(ctx, "address", address, limit, offset)
	}
	return page, err
}

func (d *DataClient) fetchPageParam(ctx context.Context, param, address string, limit, offset int) ([]APIPosition, error) {
	params := url.Values{}
	params.Set(param, address)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))
	path := "/positions?" + params.Encode()

	operation := func() ([]APIPosition, error) {
		body, err := d.doGet(ctx, path)
		if err != nil {
			// Client-side errors will not heal on retry.
			if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrUnauthorized) {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		var page []APIPosition
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, backoff.Permanent(fmt.Errorf("decode positions: %w", err))
		}
		return page, nil
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(fetchMaxTries),
	)
}

// resolveMarket produces the market for a position row: inline metadata
// first, then the cache, then a Gamma lookup by slug, and finally the
// "Unknown market" placeholder. The placeholder is a normal market to
// downstream components, never an error.
func (d *DataClient) resolveMarket(ctx context.Context, raw *APIPosition) domain.Market {
	if m, ok := raw.InlineMarket(); ok {
		if d.markets != nil {
			if err := d.markets.Set(ctx, m); err != nil {
				d.logger.Debug("market cache set failed", slog.String("error", err.Error()))
			}
		}
		return m
	}

	if d.markets != nil && raw.ConditionID != "" {
		if m, err := d.markets.Get(ctx, raw.ConditionID); err == nil {
			return m
		}
	}

	if d.gamma != nil && raw.Slug != "" {
		if m, err := d.gamma.GetMarketBySlug(ctx, raw.Slug); err == nil {
			if d.markets != nil {
				_ = d.markets.Set(ctx, m)
			}
			return m
		} else {
			d.logger.Debug("gamma metadata lookup failed",
				slog.String("slug", raw.Slug),
				slog.String("error", err.Error()),
			)
		}
	}

	return domain.PlaceholderMarket(raw.ConditionID)
}

// doGet sends an unauthenticated GET request to the Data API.
func (d *DataClient) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}

	return body, nil
}
