// Package provider defines the upstream market-data interface and the
// fallback chain that tries providers in order.
package provider

import (
	"context"
	"time"

	"github.com/xldl/etf-rotor/internal/market"
	"github.com/xldl/etf-rotor/pkg/logger"
)

// Provider fetches daily history for one symbol. Implementations return
// bars in date-ascending order and wrap failures in *market.ProviderError.
type Provider interface {
	// Name identifies the provider in logs and error messages.
	Name() string

	// FetchDaily returns all daily bars for symbol in [from, to].
	FetchDaily(ctx context.Context, symbol string, from, to time.Time) ([]market.PriceBar, error)
}

// Chain tries each provider in order until one succeeds. A permanent
// error from one provider does not stop the chain; the next provider may
// still know the symbol.
type Chain struct {
	providers []Provider
	logger    *logger.Logger
}

// NewChain creates a fallback chain. Order matters: the first provider is
// the primary source.
func NewChain(log *logger.Logger, providers ...Provider) *Chain {
	return &Chain{providers: providers, logger: log}
}

// Name returns the chain's composite name.
func (c *Chain) Name() string {
	return "chain"
}

// FetchDaily tries each provider in order. On total failure the last
// error is returned; it stays transient only if every provider failed
// transiently, so callers can tell "retry later" from "give up".
func (c *Chain) FetchDaily(ctx context.Context, symbol string, from, to time.Time) ([]market.PriceBar, error) {
	var lastErr error
	allTransient := true

	for _, p := range c.providers {
		bars, err := p.FetchDaily(ctx, symbol, from, to)
		if err == nil {
			return bars, nil
		}
		if !market.IsTransient(err) {
			allTransient = false
		}
		c.logger.WithFields(map[string]interface{}{
			"provider": p.Name(),
			"symbol":   symbol,
		}).WithError(err).Warn("Provider failed, trying next")
		lastErr = err

		if ctx.Err() != nil {
			return nil, &market.ProviderError{
				Provider: c.Name(), Symbol: symbol, Transient: true, Err: ctx.Err(),
			}
		}
	}

	return nil, &market.ProviderError{
		Provider:  c.Name(),
		Symbol:    symbol,
		Transient: allTransient,
		Err:       lastErr,
	}
}
