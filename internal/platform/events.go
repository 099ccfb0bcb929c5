package platform

import "time"

// AddEvents persists events with the same bitemporal rules as AddBars:
// knowledge time defaults to now, and nothing here ever returns an error
// for bad domain data — Event.Value is an opaque payload the platform
// never validates.
func (s *Store) AddEvents(events []Event) error {
	now := time.Now().UTC()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO events (internal_id, timestamp, event_type, value, knowledge) VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range events {
		knowledge := e.Knowledge
		if knowledge.IsZero() {
			knowledge = now
		}
		if _, err := stmt.Exec(e.InternalID, e.Timestamp.Unix(), e.EventType, e.Value, knowledge.Unix()); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetEvents returns events for ids within [start,end] matching any of types
// (all types if empty), bitemporally projected the same way GetBars is:
// within each (internal_id, timestamp, event_type) group, only the row with the
// greatest knowledge time not exceeding asOf survives.
func (s *Store) GetEvents(ids []uint64, types []string, start, end, asOf time.Time) ([]Event, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `SELECT internal_id, timestamp, event_type, value, knowledge FROM events WHERE internal_id IN (` + placeholders(len(ids)) + `)`
	args := idArgs(ids)

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
	if len(types) > 0 {
		query += ` AND event_type IN (` + placeholders(len(types)) + `)`
		for _, t := range types {
			args = append(args, t)
		}
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var all []Event
	for rows.Next() {
		var (
			e         Event
			tsUnix    int64
			knowUnix  int64
		)
		if err := rows.Scan(&e.InternalID, &tsUnix, &e.EventType, &e.Value, &knowUnix); err != nil {
			return nil, err
		}
		e.Timestamp = time.Unix(tsUnix, 0).UTC()
		e.Knowledge = time.Unix(knowUnix, 0).UTC()
		all = append(all, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return dedupEventsByKnowledge(all), nil
}

// dedupEventsByKnowledge keeps, within each (internal_id, timestamp, event_type)
// group, only the row with the greatest knowledge time — the bitemporal
// projection applied at read.
func dedupEventsByKnowledge(events []Event) []Event {
	type key struct {
		id   uint64
		ts   int64
		kind string
	}
	latest := make(map[key]Event, len(events))
	for _, e := range events {
		k := key{e.InternalID, e.Timestamp.Unix(), e.EventType}
		if cur, ok := latest[k]; !ok || e.Knowledge.After(cur.Knowledge) {
			latest[k] = e
		}
	}
	out := make([]Event, 0, len(latest))
	for _, e := range latest {
		out = append(out, e)
	}
	return out
}
