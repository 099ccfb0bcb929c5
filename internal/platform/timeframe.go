package platform

import "fmt"

// Timeframe is a bar aggregation period. Exhaustive handling is required at
// every switch over this type — see pkg/formulas and internal/alpha for the
// same discipline applied to other tagged variants in this codebase.
type Timeframe string

const (
	Timeframe1Min  Timeframe = "1min"
	Timeframe5Min  Timeframe = "5min"
	Timeframe30Min Timeframe = "30min"
	Timeframe1Hour Timeframe = "1h"
	Timeframe1Day  Timeframe = "1D"
)

// AllTimeframes lists every recognized timeframe, finest-first.
var AllTimeframes = []Timeframe{
	Timeframe1Min, Timeframe5Min, Timeframe30Min, Timeframe1Hour, Timeframe1Day,
}

// Minutes returns the timeframe's length in minutes. 1D is treated as a
// 24h session length for resampling math; calendar/holiday logic is out of
// scope per spec.md Non-goals.
func (tf Timeframe) Minutes() int {
	switch tf {
	case Timeframe1Min:
		return 1
	case Timeframe5Min:
		return 5
	case Timeframe30Min:
		return 30
	case Timeframe1Hour:
		return 60
	case Timeframe1Day:
		return 60 * 24
	default:
		return 0
	}
}

// IsIntraday reports whether the timeframe is shorter than a full session.
func (tf Timeframe) IsIntraday() bool {
	switch tf {
	case Timeframe1Min, Timeframe5Min, Timeframe30Min, Timeframe1Hour:
		return true
	case Timeframe1Day:
		return false
	default:
		return false
	}
}

// IsValid reports whether tf is one of the recognized variants.
func (tf Timeframe) IsValid() bool {
	switch tf {
	case Timeframe1Min, Timeframe5Min, Timeframe30Min, Timeframe1Hour, Timeframe1Day:
		return true
	default:
		return false
	}
}

// ParseTimeframe validates a raw string against the recognized variants.
func ParseTimeframe(s string) (Timeframe, error) {
	tf := Timeframe(s)
	if !tf.IsValid() {
		return "", fmt.Errorf("platform: unrecognized timeframe %q", s)
	}
	return tf, nil
}

// MinimumTimeframe is the finest-grained timeframe the platform stores
// directly; coarser requests that miss the table are resampled from it.
const MinimumTimeframe = Timeframe1Min
