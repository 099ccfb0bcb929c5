package platform

import (
	"fmt"
	"sync"

	"github.com/aristath/systrader/internal/database"
	"github.com/rs/zerolog"
)

// sentinelInternalID marks a Bar/Event that arrived with only a TickerHint
// and needs id resolution before persistence.
const sentinelInternalID = 0

// firstInternalID is the first id minted by RegisterSecurity, matching the
// platform's own monotonic counter rather than sqlite's rowid sequence so
// that id allocation survives a swap of the backing store.
const firstInternalID = 1000

// Store is the sqlite-backed bitemporal data platform: append-only bar,
// event and corporate-action tables plus the security master. Reads run
// directly against sqlite; the only state kept in memory is the security
// registry, which is small, changes rarely, and is read on every bar write
// to resolve ticker hints.
type Store struct {
	db  *database.DB
	log zerolog.Logger

	mu         sync.RWMutex
	securities []Security
	nextID     uint64

	targetTimeframes []Timeframe
}

// NewStore opens the bitemporal schema on db, creating tables if absent,
// and hydrates the in-memory security registry. Functional options
// (currently just WithTargetTimeframes) configure optional behavior.
func NewStore(db *database.DB, log zerolog.Logger, opts ...func(*Store)) (*Store, error) {
	s := &Store{
		db:     db,
		log:    log.With().Str("component", "platform.store").Logger(),
		nextID: firstInternalID,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("platform: migrate: %w", err)
	}
	if err := s.loadSecurities(); err != nil {
		return nil, fmt.Errorf("platform: load securities: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS securities (
			internal_id INTEGER PRIMARY KEY,
			ticker      TEXT NOT NULL,
			start_ts    INTEGER NOT NULL,
			end_ts      INTEGER,
			extra       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_securities_ticker ON securities(ticker)`,
		`CREATE TABLE IF NOT EXISTS bars (
			internal_id INTEGER NOT NULL,
			timeframe   TEXT NOT NULL,
			timestamp   INTEGER NOT NULL,
			open        REAL NOT NULL,
			high        REAL NOT NULL,
			low         REAL NOT NULL,
			close       REAL NOT NULL,
			volume      REAL NOT NULL,
			knowledge   INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bars_lookup ON bars(internal_id, timeframe, timestamp, knowledge)`,
		`CREATE TABLE IF NOT EXISTS events (
			internal_id INTEGER NOT NULL,
			timestamp   INTEGER NOT NULL,
			event_type  TEXT NOT NULL,
			value       TEXT NOT NULL,
			knowledge   INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_lookup ON events(internal_id, timestamp, knowledge)`,
		`CREATE TABLE IF NOT EXISTS corporate_actions (
			internal_id INTEGER NOT NULL,
			ex_date     INTEGER NOT NULL,
			kind        TEXT NOT NULL,
			value       REAL NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ca_lookup ON corporate_actions(internal_id, ex_date)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *Store) loadSecurities() error {
	rows, err := s.db.Query(`SELECT internal_id, ticker, start_ts, end_ts, extra FROM securities ORDER BY internal_id`)
	if err != nil {
		return err
	}
	defer rows.Close()

	s.mu.Lock()
	defer s.mu.Unlock()
	for rows.Next() {
		sec, err := scanSecurity(rows)
		if err != nil {
			return err
		}
		s.securities = append(s.securities, sec)
		if sec.InternalID >= s.nextID {
			s.nextID = sec.InternalID + 1
		}
	}
	return rows.Err()
}
