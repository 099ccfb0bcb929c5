package platform

import (
	"sort"
	"time"
)

// GetReturns computes daily percentage-change return series from adjusted
// close for each id over [start,end]. When benchmarkID is non-nil, each
// id's return series has the benchmark's same-index return subtracted
// row-wise, producing benchmark-relative returns. Ids with fewer than two
// bars contribute an empty series rather than an error.
func (s *Store) GetReturns(ids []uint64, start, end time.Time, benchmarkID *uint64) (map[uint64][]float64, error) {
	queryIDs := append([]uint64{}, ids...)
	if benchmarkID != nil {
		queryIDs = append(queryIDs, *benchmarkID)
	}

	frame, err := s.GetBars(queryIDs, BarQuery{Start: start, End: end, Timeframe: Timeframe1Day, Adjust: true})
	if err != nil {
		return nil, err
	}

	closesByID := make(map[uint64][]float64)
	for id := range groupFrameByID(frame) {
		closesByID[id] = closeSeries(frame, id, Timeframe1Day)
	}

	var benchmarkReturns []float64
	if benchmarkID != nil {
		benchmarkReturns = pctChange(closesByID[*benchmarkID])
	}

	out := make(map[uint64][]float64, len(ids))
	for _, id := range ids {
		rets := pctChange(closesByID[id])
		if benchmarkID != nil {
			rets = subtractAligned(rets, benchmarkReturns)
		}
		out[id] = rets
	}
	return out, nil
}

func groupFrameByID(frame Frame) map[uint64][]FrameRow {
	byID := make(map[uint64][]FrameRow)
	for _, row := range frame {
		byID[row.InternalID] = append(byID[row.InternalID], row)
	}
	return byID
}

func closeSeries(frame Frame, id uint64, tf Timeframe) []float64 {
	var rows []FrameRow
	for _, row := range frame {
		if row.InternalID == id {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Timestamp.Before(rows[j].Timestamp) })

	col := "close_" + string(tf)
	closes := make([]float64, len(rows))
	for i, row := range rows {
		closes[i] = row.Columns[col]
	}
	return closes
}

func pctChange(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	rets := make([]float64, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			rets[i-1] = 0
			continue
		}
		rets[i-1] = (closes[i] - closes[i-1]) / closes[i-1]
	}
	return rets
}

func subtractAligned(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		if i < len(b) {
			out[i] = a[i] - b[i]
		} else {
			out[i] = a[i]
		}
	}
	return out
}
