package platform

import "time"

// WithTargetTimeframes configures the store to materialize higher
// timeframe bars on every write — an optional acceleration so frequent
// readers of, say, 30min bars don't pay the on-read resampling cost.
// Aggregation never depends on prior in-memory state: each write
// re-queries the persisted source window, so a crash between writes
// leaves nothing to reconcile.
func WithTargetTimeframes(tfs ...Timeframe) func(*Store) {
	return func(s *Store) {
		s.targetTimeframes = append(s.targetTimeframes, tfs...)
	}
}

// AddBarsAggregating is AddBars followed by on-write aggregation into
// every configured target timeframe whose source window is now complete.
func (s *Store) AddBarsAggregating(bars []Bar, opts ...BarOption) error {
	if err := s.AddBars(bars, opts...); err != nil {
		return err
	}
	for _, b := range bars {
		for _, target := range s.targetTimeframes {
			if err := s.materializeAggregate(b.InternalID, b.Timestamp, target); err != nil {
				return err
			}
		}
	}
	return nil
}

// materializeAggregate checks whether the minimum-timeframe source window
// covering t is now fully populated and, if so, writes the aggregated bar
// for target. The check re-reads from the table rather than trusting any
// cached count.
func (s *Store) materializeAggregate(id uint64, t time.Time, target Timeframe) error {
	bucketMinutes := target.Minutes()
	if bucketMinutes <= 0 || target == MinimumTimeframe {
		return nil
	}
	bucketLen := time.Duration(bucketMinutes) * time.Minute
	bucketStart := time.Unix(t.Unix()/int64(bucketLen.Seconds())*int64(bucketLen.Seconds()), 0).UTC()
	bucketEnd := bucketStart.Add(bucketLen - time.Minute)

	raw, err := s.fetchRawBars([]uint64{id}, MinimumTimeframe, bucketStart, bucketEnd, time.Now().UTC())
	if err != nil {
		return err
	}
	source := dedupBarsByKnowledge(raw)
	if len(source) < bucketMinutes {
		return nil // window not yet complete
	}

	agg := resample(source, target)
	if len(agg) == 0 {
		return nil
	}
	return s.AddBars(agg)
}
