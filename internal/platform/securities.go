package platform

import (
	"database/sql"
	"encoding/json"
	"time"
)

// RegisterSecurity returns the internal id covering [start,end) for ticker,
// minting a fresh monotonically increasing id if no existing record covers
// the interval. The store is the sole source of id allocation: callers
// never supply an id.
func (s *Store) RegisterSecurity(ticker string, start time.Time, end *time.Time, extra map[string]any) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sec := range s.securities {
		endCovered := sec.End == nil || (end != nil && !end.After(*sec.End))
		if sec.Ticker == ticker && sec.Covers(start) && endCovered {
			return sec.InternalID, nil
		}
	}

	id := s.nextID
	s.nextID++

	extraJSON, err := json.Marshal(extra)
	if err != nil {
		return 0, err
	}

	var endTS sql.NullInt64
	if end != nil {
		endTS = sql.NullInt64{Int64: end.Unix(), Valid: true}
	}
	if _, err := s.db.Exec(
		`INSERT INTO securities (internal_id, ticker, start_ts, end_ts, extra) VALUES (?, ?, ?, ?, ?)`,
		id, ticker, start.Unix(), endTS, string(extraJSON),
	); err != nil {
		return 0, err
	}

	s.securities = append(s.securities, Security{
		InternalID: id,
		Ticker:     ticker,
		Start:      start,
		End:        end,
		Extra:      extra,
	})
	return id, nil
}

// GetInternalID returns the id whose coverage contains date, auto-registering
// a new open-ended record starting at date if none covers it. This resolves
// the registration-vs-raise open question in favor of auto-registration: the
// original data platform never raises on an unseen ticker.
func (s *Store) GetInternalID(ticker string, date time.Time) (uint64, error) {
	s.mu.RLock()
	for _, sec := range s.securities {
		if sec.Ticker == ticker && sec.Covers(date) {
			s.mu.RUnlock()
			return sec.InternalID, nil
		}
	}
	s.mu.RUnlock()
	return s.RegisterSecurity(ticker, date, nil, nil)
}

// GetUniverse returns every internal id whose coverage includes date.
func (s *Store) GetUniverse(date time.Time) []uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]uint64, 0, len(s.securities))
	for _, sec := range s.securities {
		if sec.Covers(date) {
			ids = append(ids, sec.InternalID)
		}
	}
	return ids
}

func scanSecurity(rows *sql.Rows) (Security, error) {
	var (
		id      uint64
		ticker  string
		startTS int64
		endTS   sql.NullInt64
		extraS  string
	)
	if err := rows.Scan(&id, &ticker, &startTS, &endTS, &extraS); err != nil {
		return Security{}, err
	}
	sec := Security{
		InternalID: id,
		Ticker:     ticker,
		Start:      time.Unix(startTS, 0).UTC(),
	}
	if endTS.Valid {
		t := time.Unix(endTS.Int64, 0).UTC()
		sec.End = &t
	}
	if extraS != "" && extraS != "null" {
		var extra map[string]any
		if err := json.Unmarshal([]byte(extraS), &extra); err == nil {
			sec.Extra = extra
		}
	}
	return sec, nil
}
