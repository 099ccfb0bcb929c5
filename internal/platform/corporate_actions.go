package platform

import (
	"sort"
	"strings"
	"time"
)

// AddCorporateActions persists split/dividend records. Unrecognized kinds
// are dropped and logged, matching the silent-rejection policy for bars.
func (s *Store) AddCorporateActions(actions []CorporateAction) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO corporate_actions (internal_id, ex_date, kind, value) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, ca := range actions {
		if !ca.Kind.IsValid() {
			s.log.Warn().Str("kind", string(ca.Kind)).Msg("dropping corporate action with unrecognized kind")
			continue
		}
		if _, err := stmt.Exec(ca.InternalID, ca.ExDate.Unix(), string(ca.Kind), ca.Value); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// corporateActionsUpTo returns the corporate actions for id with ex_date <=
// end, sorted newest-ex-date-first — the iteration order applyAdjustments
// requires so a cumulative split factor compounds correctly.
func (s *Store) corporateActionsUpTo(id uint64, end time.Time) ([]CorporateAction, error) {
	rows, err := s.db.Query(
		`SELECT internal_id, ex_date, kind, value FROM corporate_actions WHERE internal_id = ? AND ex_date <= ? ORDER BY ex_date DESC`,
		id, end.Unix(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var actions []CorporateAction
	for rows.Next() {
		var (
			ca     CorporateAction
			exUnix int64
			kind   string
		)
		if err := rows.Scan(&ca.InternalID, &exUnix, &kind, &ca.Value); err != nil {
			return nil, err
		}
		ca.ExDate = time.Unix(exUnix, 0).UTC()
		ca.Kind = CorporateActionKind(kind)
		actions = append(actions, ca)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// ORDER BY already sorts descending; re-sort defensively in case of ties.
	sort.SliceStable(actions, func(i, j int) bool { return actions[i].ExDate.After(actions[j].ExDate) })
	return actions, nil
}

// applyAdjustments applies split/dividend corporate actions to bars in
// place, iterating ex-dates from newest to oldest while accumulating a
// cumulative split factor f. A SPLIT of ratio r divides OHLC by r and
// folds 1/r into f. A DIVIDEND of amount d subtracts d*f from OHLC — the
// scaled-subtractive form, which keeps a dividend paid before a later
// split expressed in the same share base as the rest of the series.
func applyAdjustments(bars []Bar, actions []CorporateAction) {
	f := 1.0
	for _, ca := range actions {
		switch ca.Kind {
		case CorporateActionSplit:
			ratio := ca.Value
			if ratio == 0 {
				continue
			}
			for i := range bars {
				if bars[i].Timestamp.Before(ca.ExDate) {
					bars[i].Open /= ratio
					bars[i].High /= ratio
					bars[i].Low /= ratio
					bars[i].Close /= ratio
				}
			}
			f *= 1 / ratio
		case CorporateActionDividend:
			sub := ca.Value * f
			for i := range bars {
				if bars[i].Timestamp.Before(ca.ExDate) {
					bars[i].Open -= sub
					bars[i].High -= sub
					bars[i].Low -= sub
					bars[i].Close -= sub
				}
			}
		}
	}
}

func placeholders(n int) string {
	ph := make([]string, n)
	for i := range ph {
		ph[i] = "?"
	}
	return strings.Join(ph, ",")
}

func idArgs(ids []uint64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
