// package repositories provides the SQLite send log archive.
package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/pitch/internal/shared"
)

// NextPosition returns the next log position for a run inside tx.
//
// Positions are dense and start at 0, so lines read back in delivery order.
func NextPosition(tx *sql.Tx, runID string) (int, error) {
	var pos sql.NullInt64
	err := tx.QueryRow("SELECT MAX(position) FROM send_log_lines WHERE run_id = ?", runID).Scan(&pos)
	if err != nil {
		return 0, fmt.Errorf("failed to get log position: %w", err)
	}
	if !pos.Valid {
		return 0, nil
	}
	return int(pos.Int64) + 1, nil
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func notFound(id string) error {
	return fmt.Errorf("%w: %s", shared.ErrRunNotFound, id)
}
