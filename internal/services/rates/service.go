// Package rates converts amounts between supported currencies using
// 1-unit exchange rates fetched from an external source and cached in
// Redis for five minutes per ordered pair.
package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Sharon404/wallet-app/internal/apperr"
	"github.com/Sharon404/wallet-app/internal/models"

	"github.com/shopspring/decimal"
)

const (
	cacheTTL = 5 * time.Minute
	// Converted amounts are money, rounded half-up to 2 decimal places.
	// The rate itself keeps 8 places for auditability.
	amountScale = 2
	rateScale   = 8
)

var one = decimal.NewFromInt(1)

// Service converts amounts between currency codes.
type Service interface {
	// Convert returns the converted amount (scale 2) and the rate used
	// (scale 8). Same-currency conversions short-circuit with rate 1 and
	// no external call.
	Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, decimal.Decimal, error)
}

// RateCache is the subset of the cache service the rates service needs.
type RateCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type Config struct {
	// BaseURL is the external rate source; the pair endpoint is
	// BaseURL + "/" + FROM.
	BaseURL string
	Timeout time.Duration
}

type service struct {
	cache  RateCache
	client *http.Client
	cfg    Config
}

func NewService(cache RateCache, cfg Config) Service {
	if cache == nil {
		panic("cache is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://open.er-api.com/v6/latest"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &service{
		cache:  cache,
		client: &http.Client{Timeout: cfg.Timeout},
		cfg:    cfg,
	}
}

func (s *service) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, decimal.Decimal, error) {
	from = models.NormalizeCurrency(from)
	to = models.NormalizeCurrency(to)

	if from == to {
		return amount.Round(amountScale), one, nil
	}

	rate, err := s.rateFor(ctx, from, to)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	converted := amount.Mul(rate).Round(amountScale)
	return converted, rate, nil
}

func (s *service) rateFor(ctx context.Context, from, to string) (decimal.Decimal, error) {
	key := fmt.Sprintf("rate:%s:%s", from, to)

	var cached string
	if found, err := s.cache.Get(ctx, key, &cached); err == nil && found {
		if rate, derr := decimal.NewFromString(cached); derr == nil {
			return rate, nil
		}
	}

	rate, err := s.fetchRate(ctx, from, to)
	if err != nil {
		return decimal.Zero, err
	}

	// Refreshes may race; last write wins, all writers fetched the same
	// external truth within the window.
	_ = s.cache.SetWithTTL(ctx, key, rate.String(), cacheTTL)
	return rate, nil
}

// ratePayload covers the two known response layouts of the external rate
// source. Decoding tries conversion_rates first, then rates; anything else
// is treated as rate-unavailable.
type ratePayload struct {
	ConversionRates map[string]json.Number `json:"conversion_rates"`
	Rates           map[string]json.Number `json:"rates"`
}

func (p *ratePayload) rate(to string) (decimal.Decimal, bool) {
	for _, table := range []map[string]json.Number{p.ConversionRates, p.Rates} {
		raw, ok := table[to]
		if !ok {
			continue
		}
		rate, err := decimal.NewFromString(raw.String())
		if err != nil || !rate.IsPositive() {
			continue
		}
		return rate.Round(rateScale), true
	}
	return decimal.Zero, false
}

func (s *service) fetchRate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	url := fmt.Sprintf("%s/%s", s.cfg.BaseURL, from)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", apperr.ErrRateUnavailable, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", apperr.ErrRateUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("%w: rate source returned %d", apperr.ErrRateUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", apperr.ErrRateUnavailable, err)
	}

	var payload ratePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return decimal.Zero, fmt.Errorf("%w: unparseable response", apperr.ErrRateUnavailable)
	}

	rate, ok := payload.rate(to)
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: no rate for %s/%s", apperr.ErrRateUnavailable, from, to)
	}
	return rate, nil
}

// IsRateUnavailable reports whether err is the retryable rate failure.
func IsRateUnavailable(err error) bool {
	return errors.Is(err, apperr.ErrRateUnavailable)
}
