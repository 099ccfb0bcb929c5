// Package platform implements the bitemporal data platform: point-in-time
// correct storage and retrieval of bars, events, corporate actions, and
// security identities, plus on-read resampling and split/dividend
// adjustment.
package platform

import (
	"errors"
	"time"
)

// Security is the platform's sole record of a tradable instrument's
// identity over time. The platform exclusively owns security creation;
// securities are never destroyed.
type Security struct {
	InternalID uint64
	Ticker     string
	Start      time.Time
	End        *time.Time // nil means open-ended coverage
	Extra      map[string]any
}

// Covers reports whether the security's [Start,End) interval contains t.
func (s Security) Covers(t time.Time) bool {
	if t.Before(s.Start) {
		return false
	}
	if s.End == nil {
		return true
	}
	return t.Before(*s.End)
}

// CorporateActionKind is the kind of a CorporateAction: SPLIT or DIVIDEND.
type CorporateActionKind string

const (
	CorporateActionSplit    CorporateActionKind = "SPLIT"
	CorporateActionDividend CorporateActionKind = "DIVIDEND"
)

// IsValid reports whether k is a recognized corporate action kind.
func (k CorporateActionKind) IsValid() bool {
	switch k {
	case CorporateActionSplit, CorporateActionDividend:
		return true
	default:
		return false
	}
}

// CorporateAction is a discrete event that alters historical prices for
// comparability. For SPLIT, Value is the split ratio (2.0 = 2-for-1). For
// DIVIDEND, Value is the cash amount per share.
type CorporateAction struct {
	InternalID uint64
	ExDate     time.Time
	Kind       CorporateActionKind
	Value      float64
}

// Bar is a single OHLCV observation. Timestamp is event time; Knowledge is
// when the bar became known to the system (arrival or restatement).
type Bar struct {
	InternalID uint64
	Timestamp  time.Time
	Timeframe  Timeframe
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Volume     float64
	Knowledge  time.Time

	// TickerHint, when set and InternalID is zero (the sentinel id), lets
	// the platform resolve the internal id before persistence. Used by
	// streaming providers that only know tickers.
	TickerHint string
}

// Validate enforces the OHLC sanity invariants from spec.md §3. Bars
// failing validation are dropped silently at write, never surfaced as an
// error to the caller — see ValidationRejection in the error taxonomy.
func (b Bar) Validate() error {
	if b.Close <= 0 {
		return errValidation
	}
	if b.Volume < 0 {
		return errValidation
	}
	maxOC := b.Open
	if b.Close > maxOC {
		maxOC = b.Close
	}
	if b.High < maxOC || b.High < b.Low {
		return errValidation
	}
	minOC := b.Open
	if b.Close < minOC {
		minOC = b.Close
	}
	if b.Low > minOC {
		return errValidation
	}
	return nil
}

var errValidation = errors.New("platform: bar failed OHLC validation")

// Event is an opaque, bitemporal record (earnings, news, corporate
// announcements, ...). Value is left as an opaque payload — the platform
// never interprets it.
type Event struct {
	InternalID uint64
	Timestamp  time.Time
	EventType  string
	Value      string // opaque JSON-encoded payload
	Knowledge  time.Time
}

// ErrContextMissing is returned when a side-channel query (e.g. GetEvents
// through the alpha engine's scoped context) is attempted with no bound
// as_of — a programmer error, surfaced loudly per spec.md §7.
var ErrContextMissing = errors.New("platform: query attempted outside a bound as_of context")
