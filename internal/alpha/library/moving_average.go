package library

import (
	"github.com/aristath/systrader/internal/alpha"
	"github.com/aristath/systrader/internal/platform"
	talib "github.com/markcheno/go-talib"
)

// AllTimeframes is the set every multi-timeframe feature in this package
// expands across, matching the timeframes the platform itself recognizes.
var AllTimeframes = platform.AllTimeframes

func init() {
	alpha.MultiTF("sma_10", AllTimeframes, nil, smaCompute(10))
	alpha.MultiTF("ema_12", AllTimeframes, nil, emaCompute(12))
	alpha.MultiTF("ema_26", AllTimeframes, nil, emaCompute(26))
	alpha.MultiTF("rsi_14", AllTimeframes, nil, rsiCompute(14))
	alpha.MultiTF("macd", AllTimeframes, []string{"ema_12", "ema_26"}, macdCompute)
	alpha.MultiTF("ofi", AllTimeframes, nil, ofiCompute)
}

// smaCompute mirrors original_source's sma_10 (rolling mean of close,
// grouped by internal_id) using talib.Sma per id series instead of
// pandas's rolling().mean().
func smaCompute(period int) func(tf platform.Timeframe) alpha.ComputeFunc {
	return func(tf platform.Timeframe) alpha.ComputeFunc {
		return func(frame platform.Frame) map[alpha.RowKey]float64 {
			out := make(map[alpha.RowKey]float64)
			for _, s := range groupByID(frame, closeColumn(tf)) {
				if len(s.values) < period {
					continue
				}
				sma := talib.Sma(s.values, period)
				for i, v := range sma {
					if !isNaN(v) {
						out[s.keys[i]] = v
					}
				}
			}
			return out
		}
	}
}

// emaCompute computes an exponential moving average of close per id,
// grounded on the teacher's pkg/formulas/ema.go CalculateEMA — here kept
// as a full series rather than a single latest value, since the alpha
// engine hydrates a column for every timestamp in the frame, not just the
// most recent one.
func emaCompute(period int) func(tf platform.Timeframe) alpha.ComputeFunc {
	return func(tf platform.Timeframe) alpha.ComputeFunc {
		return func(frame platform.Frame) map[alpha.RowKey]float64 {
			out := make(map[alpha.RowKey]float64)
			for _, s := range groupByID(frame, closeColumn(tf)) {
				if len(s.values) < period {
					continue
				}
				ema := talib.Ema(s.values, period)
				for i, v := range ema {
					if !isNaN(v) {
						out[s.keys[i]] = v
					}
				}
			}
			return out
		}
	}
}

// rsiCompute mirrors original_source's rsi_14.
func rsiCompute(period int) func(tf platform.Timeframe) alpha.ComputeFunc {
	return func(tf platform.Timeframe) alpha.ComputeFunc {
		return func(frame platform.Frame) map[alpha.RowKey]float64 {
			out := make(map[alpha.RowKey]float64)
			for _, s := range groupByID(frame, closeColumn(tf)) {
				if len(s.values) < period+1 {
					continue
				}
				rsi := talib.Rsi(s.values, period)
				for i, v := range rsi {
					if !isNaN(v) {
						out[s.keys[i]] = v
					}
				}
			}
			return out
		}
	}
}

// macdCompute reads its two EMA dependencies (already hydrated columns)
// rather than recomputing them, matching original_source's macd feature
// (ewm(12) - ewm(26)) but expressed as a dependency the registry enforces
// hydration order for instead of an inline recomputation.
func macdCompute(tf platform.Timeframe) alpha.ComputeFunc {
	fast := "ema_12_" + string(tf)
	slow := "ema_26_" + string(tf)
	return func(frame platform.Frame) map[alpha.RowKey]float64 {
		out := make(map[alpha.RowKey]float64)
		for _, row := range frame {
			f, okF := row.Columns[fast]
			s, okS := row.Columns[slow]
			if !okF || !okS || isNaN(f) || isNaN(s) {
				continue
			}
			out[alpha.RowKey{InternalID: row.InternalID, Timestamp: row.Timestamp.Unix()}] = f - s
		}
		return out
	}
}

// ofiCompute is the simplified order-flow-imbalance proxy from
// original_source: signed volume by whether the bar closed up or down.
// Real buy/sell volume is unavailable at the bar level (spec.md's
// Non-goals exclude a tick-level order book), so this is the same
// simplification the source itself documents.
func ofiCompute(tf platform.Timeframe) alpha.ComputeFunc {
	closeCol := closeColumn(tf)
	openCol := openColumn(tf)
	volCol := volumeColumn(tf)
	return func(frame platform.Frame) map[alpha.RowKey]float64 {
		out := make(map[alpha.RowKey]float64)
		for _, row := range frame {
			c, okC := row.Columns[closeCol]
			o, okO := row.Columns[openCol]
			v, okV := row.Columns[volCol]
			if !okC || !okO || !okV {
				continue
			}
			sign := -1.0
			if c >= o {
				sign = 1.0
			}
			out[alpha.RowKey{InternalID: row.InternalID, Timestamp: row.Timestamp.Unix()}] = v * sign
		}
		return out
	}
}

func isNaN(v float64) bool { return v != v }
