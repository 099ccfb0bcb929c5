// Package library registers the engine's concrete feature set (moving
// averages, RSI, MACD, order flow imbalance) against internal/alpha's
// process-wide registry. Import this package (blank or otherwise) once at
// startup so its init() registrations run before any model is executed.
package library

import (
	"sort"

	"github.com/aristath/systrader/internal/alpha"
	"github.com/aristath/systrader/internal/platform"
)

// idSeries is one security's column values ordered by timestamp ascending
// — the shape talib's array functions expect, and the natural grouping
// for any rolling-window feature.
type idSeries struct {
	keys   []alpha.RowKey
	values []float64
}

// groupByID partitions frame into per-id series for column, sorted by
// timestamp ascending. Rows missing the column are skipped.
func groupByID(frame platform.Frame, column string) map[uint64]*idSeries {
	type row struct {
		ts  int64
		val float64
	}
	byID := make(map[uint64][]row)
	for _, r := range frame {
		v, ok := r.Columns[column]
		if !ok {
			continue
		}
		byID[r.InternalID] = append(byID[r.InternalID], row{r.Timestamp.Unix(), v})
	}

	out := make(map[uint64]*idSeries, len(byID))
	for id, rows := range byID {
		sort.Slice(rows, func(i, j int) bool { return rows[i].ts < rows[j].ts })
		s := &idSeries{keys: make([]alpha.RowKey, len(rows)), values: make([]float64, len(rows))}
		for i, r := range rows {
			s.keys[i] = alpha.RowKey{InternalID: id, Timestamp: r.ts}
			s.values[i] = r.val
		}
		out[id] = s
	}
	return out
}

// closeColumn is the canonical close column name for timeframe tf.
func closeColumn(tf platform.Timeframe) string {
	return "close_" + string(tf)
}

func openColumn(tf platform.Timeframe) string {
	return "open_" + string(tf)
}

func volumeColumn(tf platform.Timeframe) string {
	return "volume_" + string(tf)
}
