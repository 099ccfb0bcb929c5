package database

import (
	"database/sql"
	"fmt"
)

// WithTransaction runs fn inside a transaction on db, committing if fn
// returns nil and rolling back otherwise — including when fn panics, in
// which case the panic is converted into an error rather than propagated,
// so a single misbehaving caller can't leave the connection mid-transaction.
func WithTransaction(db *sql.DB, fn func(*sql.Tx) error) (err error) {
	if db == nil {
		return fmt.Errorf("database: WithTransaction: nil database connection")
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("database: transaction: begin: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			err = fmt.Errorf("database: transaction: recovered from panic: %v", p)
		}
	}()

	if fnErr := fn(tx); fnErr != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("database: transaction: rollback failed after error %v: %w", fnErr, rbErr)
		}
		return fmt.Errorf("database: transaction: %w", fnErr)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("database: transaction: commit: %w", err)
	}
	return nil
}
