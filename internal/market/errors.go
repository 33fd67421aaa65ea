package market

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for the data layer.
var (
	// ErrNoData means no cached history exists and no provider could
	// supply any. Callers exclude the symbol rather than failing the run.
	ErrNoData = errors.New("no price data available")

	// ErrEmptyPool means a ranking run ended with zero usable symbols.
	ErrEmptyPool = errors.New("no symbols with usable data in pool")
)

// InsufficientHistoryError is returned when a series is too short for the
// requested indicator windows.
type InsufficientHistoryError struct {
	Symbol string
	Need   int
	Have   int
}

func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("%s: insufficient history: need %d bars, have %d", e.Symbol, e.Need, e.Have)
}

// ProviderError wraps a failed upstream fetch. Transient errors (network,
// 5xx, rate limiting) may be retried or absorbed by serving stale data;
// permanent errors (unknown symbol, malformed response) should not.
type ProviderError struct {
	Provider  string
	Symbol    string
	Transient bool
	Err       error
}

func (e *ProviderError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	return fmt.Sprintf("%s: fetch %s failed (%s): %v", e.Provider, e.Symbol, kind, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is (or wraps) a transient provider error.
func IsTransient(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Transient
}

// StaleWarning records that a symbol was served from an out-of-date cache
// because the provider could not refresh it.
type StaleWarning struct {
	Symbol  string
	LastBar time.Time
	Cause   error
}

func (w *StaleWarning) String() string {
	return fmt.Sprintf("%s: serving stale data (last bar %s): %v",
		w.Symbol, w.LastBar.Format("2006-01-02"), w.Cause)
}
