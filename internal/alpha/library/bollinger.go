package library

import (
	"github.com/aristath/systrader/internal/alpha"
	"github.com/aristath/systrader/internal/platform"
	"github.com/aristath/systrader/pkg/formulas"
)

const bollingerPeriod = 20
const bollingerStdDev = 2.0

func init() {
	alpha.MultiTF("bollinger_position_20", AllTimeframes, nil, bollingerCompute(bollingerPeriod, bollingerStdDev))
}

// bollingerCompute mirrors original_source's Bollinger Band position
// feature, rolling formulas.CalculateBollingerPosition (itself grounded
// on talib.BBands) over each id's close series one window at a time.
func bollingerCompute(period int, stdDev float64) func(tf platform.Timeframe) alpha.ComputeFunc {
	return func(tf platform.Timeframe) alpha.ComputeFunc {
		return func(frame platform.Frame) map[alpha.RowKey]float64 {
			out := make(map[alpha.RowKey]float64)
			for _, s := range groupByID(frame, closeColumn(tf)) {
				if len(s.values) < period {
					continue
				}
				for i := period - 1; i < len(s.values); i++ {
					window := s.values[i-period+1 : i+1]
					pos := formulas.CalculateBollingerPosition(window, period, stdDev)
					if pos != nil {
						out[s.keys[i]] = pos.Position
					}
				}
			}
			return out
		}
	}
}
