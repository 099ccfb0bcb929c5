package platform

import (
	"sort"
	"time"
)

// BarOption configures AddBars.
type BarOption func(*barOptions)

type barOptions struct {
	fillGaps bool
}

// WithGapFill forward-fills missing 1-minute bars between two known bars
// of the same id with flat, zero-volume synthetic bars before persisting.
// Off by default: the platform's append-only semantics are preserved
// unless a caller explicitly asks for contiguous source windows (the
// aggregation-on-write step needs these to reach the required bar count).
func WithGapFill() BarOption {
	return func(o *barOptions) { o.fillGaps = true }
}

// AddBars validates and persists bars. Bars failing OHLC validation are
// dropped and logged, never surfaced as an error — per the platform's
// failure semantics, a caller feeding bad data never sees a write fail.
// A bar carrying a TickerHint with no InternalID has its id resolved
// (auto-registering the ticker if necessary) before persistence.
func (s *Store) AddBars(bars []Bar, opts ...BarOption) error {
	var o barOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.fillGaps {
		bars = fillMinuteGaps(bars)
	}

	now := time.Now().UTC()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO bars (internal_id, timeframe, timestamp, open, high, low, close, volume, knowledge)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, b := range bars {
		if b.InternalID == sentinelInternalID && b.TickerHint != "" {
			id, err := s.GetInternalID(b.TickerHint, b.Timestamp)
			if err != nil {
				s.log.Warn().Err(err).Str("ticker", b.TickerHint).Msg("failed to resolve ticker hint, dropping bar")
				continue
			}
			b.InternalID = id
		}
		if !b.Timeframe.IsValid() {
			s.log.Warn().Str("timeframe", string(b.Timeframe)).Msg("dropping bar with invalid timeframe")
			continue
		}
		if err := b.Validate(); err != nil {
			s.log.Warn().Uint64("internal_id", b.InternalID).Time("timestamp", b.Timestamp).Msg("dropping bar failing OHLC validation")
			continue
		}
		knowledge := b.Knowledge
		if knowledge.IsZero() {
			knowledge = now
		}
		if _, err := stmt.Exec(b.InternalID, string(b.Timeframe), b.Timestamp.Unix(), b.Open, b.High, b.Low, b.Close, b.Volume, knowledge.Unix()); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// fillMinuteGaps forward-fills missing 1-minute bars between consecutive
// known bars of the same (internal_id, timeframe) with flat, zero-volume
// bars priced at the prior close. Bars on timeframes other than 1min pass
// through untouched — the gap is only ever meaningful at the minimum
// timeframe.
func fillMinuteGaps(bars []Bar) []Bar {
	byKey := make(map[uint64][]Bar)
	var other []Bar
	for _, b := range bars {
		if b.Timeframe != Timeframe1Min {
			other = append(other, b)
			continue
		}
		byKey[b.InternalID] = append(byKey[b.InternalID], b)
	}

	out := append([]Bar{}, other...)
	for _, group := range byKey {
		sort.Slice(group, func(i, j int) bool { return group[i].Timestamp.Before(group[j].Timestamp) })
		out = append(out, group[0])
		for i := 1; i < len(group); i++ {
			prev, cur := group[i-1], group[i]
			for t := prev.Timestamp.Add(time.Minute); t.Before(cur.Timestamp); t = t.Add(time.Minute) {
				out = append(out, Bar{
					InternalID: prev.InternalID,
					Timestamp:  t,
					Timeframe:  Timeframe1Min,
					Open:       prev.Close,
					High:       prev.Close,
					Low:        prev.Close,
					Close:      prev.Close,
					Volume:     0,
					Knowledge:  prev.Knowledge,
				})
			}
			out = append(out, cur)
		}
	}
	return out
}
