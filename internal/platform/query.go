package platform

import (
	"sort"
	"time"
)

// FrameRow is one point of the cross-section returned by GetBars: a single
// id/timestamp pair with its OHLCV columns, named with the requested
// timeframe's suffix so multiple timeframes of the same id can be merged
// into one wider frame downstream.
type FrameRow struct {
	InternalID uint64
	Timestamp  time.Time
	Columns    map[string]float64
}

// Frame is the cross-sectional history the alpha engine hydrates features
// onto.
type Frame []FrameRow

// BarQuery parameters the PIT-correct bar query. AsOf defaults to now when
// zero.
type BarQuery struct {
	Start     time.Time
	End       time.Time
	Timeframe Timeframe
	AsOf      time.Time
	Adjust    bool
}

type rawBar struct {
	internalID uint64
	timestamp  time.Time
	open       float64
	high       float64
	low        float64
	close      float64
	volume     float64
	knowledge  time.Time
}

// GetBars is the platform's core query: point-in-time filtering, on-read
// resampling when the requested timeframe's table has nothing in range,
// and optional split/dividend adjustment. A missing id or an empty window
// never errors — it simply contributes no rows to the frame.
func (s *Store) GetBars(ids []uint64, q BarQuery) (Frame, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if q.AsOf.IsZero() {
		q.AsOf = time.Now().UTC()
	}
	if !q.Timeframe.IsValid() {
		return nil, nil
	}

	raw, err := s.fetchRawBars(ids, q.Timeframe, q.Start, q.End, q.AsOf)
	if err != nil {
		return nil, err
	}
	bars := dedupBarsByKnowledge(raw)

	if len(bars) == 0 && q.Timeframe.IsIntraday() && q.Timeframe != MinimumTimeframe {
		minRaw, err := s.fetchRawBars(ids, MinimumTimeframe, q.Start, q.End, q.AsOf)
		if err != nil {
			return nil, err
		}
		minBars := dedupBarsByKnowledge(minRaw)
		bars = resample(minBars, q.Timeframe)
	}

	if q.Adjust {
		byID := groupByID(bars)
		adjusted := make([]Bar, 0, len(bars))
		for id, group := range byID {
			actions, err := s.corporateActionsUpTo(id, q.End)
			if err != nil {
				return nil, err
			}
			if len(actions) > 0 {
				applyAdjustments(group, actions)
			}
			adjusted = append(adjusted, group...)
		}
		bars = adjusted
	}

	return toFrame(bars, q.Timeframe), nil
}

func (s *Store) fetchRawBars(ids []uint64, tf Timeframe, start, end, asOf time.Time) ([]rawBar, error) {
	query := `SELECT internal_id, timestamp, open, high, low, close, volume, knowledge
	          FROM bars WHERE internal_id IN (` + placeholders(len(ids)) + `) AND timeframe = ?`
	args := idArgs(ids)
	args = append(args, string(tf))

	if !start.IsZero() {
		query += ` AND timestamp >= ?`
		args = append(args, start.Unix())
	}
	if !end.IsZero() {
		query += ` AND timestamp <= ?`
		args = append(args, end.Unix())
	}
	query += ` AND knowledge <= ?`
	args = append(args, asOf.Unix())

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []rawBar
	for rows.Next() {
		var (
			b              rawBar
			tsUnix, knUnix int64
		)
		if err := rows.Scan(&b.internalID, &tsUnix, &b.open, &b.high, &b.low, &b.close, &b.volume, &knUnix); err != nil {
			return nil, err
		}
		b.timestamp = time.Unix(tsUnix, 0).UTC()
		b.knowledge = time.Unix(knUnix, 0).UTC()
		out = append(out, b)
	}
	return out, rows.Err()
}

// dedupBarsByKnowledge applies the bitemporal projection: within each
// (internal_id, timestamp) group, only the row with the greatest knowledge
// time survives. Bars in the result are ordered by internal id, then by
// timestamp ascending.
func dedupBarsByKnowledge(raw []rawBar) []Bar {
	type key struct {
		id uint64
		ts int64
	}
	latest := make(map[key]rawBar, len(raw))
	for _, b := range raw {
		k := key{b.internalID, b.timestamp.Unix()}
		if cur, ok := latest[k]; !ok || b.knowledge.After(cur.knowledge) {
			latest[k] = b
		}
	}
	out := make([]Bar, 0, len(latest))
	for _, b := range latest {
		out = append(out, Bar{
			InternalID: b.internalID,
			Timestamp:  b.timestamp,
			Open:       b.open,
			High:       b.high,
			Low:        b.low,
			Close:      b.close,
			Volume:     b.volume,
			Knowledge:  b.knowledge,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].InternalID != out[j].InternalID {
			return out[i].InternalID < out[j].InternalID
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

// resample aggregates finer-grained bars into the requested coarser
// timeframe: open=first, high=max, low=min, close=last, volume=sum,
// grouped by (id, floor(timestamp to the requested frequency)).
func resample(bars []Bar, target Timeframe) []Bar {
	bucketLen := time.Duration(target.Minutes()) * time.Minute
	if bucketLen <= 0 {
		return nil
	}

	type key struct {
		id     uint64
		bucket int64
	}
	order := make([]key, 0)
	groups := make(map[key][]Bar)
	for _, b := range bars {
		bucket := b.Timestamp.Unix() / int64(bucketLen.Seconds()) * int64(bucketLen.Seconds())
		k := key{b.InternalID, bucket}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], b)
	}

	out := make([]Bar, 0, len(groups))
	for _, k := range order {
		group := groups[k]
		sort.Slice(group, func(i, j int) bool { return group[i].Timestamp.Before(group[j].Timestamp) })

		agg := Bar{
			InternalID: k.id,
			Timestamp:  time.Unix(k.bucket, 0).UTC(),
			Timeframe:  target,
			Open:       group[0].Open,
			Close:      group[len(group)-1].Close,
		}
		agg.High = group[0].High
		agg.Low = group[0].Low
		for _, b := range group {
			if b.High > agg.High {
				agg.High = b.High
			}
			if b.Low < agg.Low {
				agg.Low = b.Low
			}
			agg.Volume += b.Volume
			if b.Knowledge.After(agg.Knowledge) {
				agg.Knowledge = b.Knowledge
			}
		}
		out = append(out, agg)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].InternalID != out[j].InternalID {
			return out[i].InternalID < out[j].InternalID
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

func groupByID(bars []Bar) map[uint64][]Bar {
	byID := make(map[uint64][]Bar)
	for _, b := range bars {
		byID[b.InternalID] = append(byID[b.InternalID], b)
	}
	return byID
}

func toFrame(bars []Bar, tf Timeframe) Frame {
	frame := make(Frame, 0, len(bars))
	for _, b := range bars {
		frame = append(frame, FrameRow{
			InternalID: b.InternalID,
			Timestamp:  b.Timestamp,
			Columns: map[string]float64{
				"open_" + string(tf):   b.Open,
				"high_" + string(tf):   b.High,
				"low_" + string(tf):    b.Low,
				"close_" + string(tf):  b.Close,
				"volume_" + string(tf): b.Volume,
			},
		})
	}
	return frame
}
