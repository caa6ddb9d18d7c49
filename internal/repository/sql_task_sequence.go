package repository

import (
	"context"
	"fmt"

	"github.com/alexanderramin/signoff/internal/db"
)

// SQLTaskSequenceRepo allocates per-day task number suffixes atomically
// using the task_sequences table.
type SQLTaskSequenceRepo struct {
	db db.DBTX
}

// NewSQLTaskSequenceRepo creates a new SQLTaskSequenceRepo.
func NewSQLTaskSequenceRepo(conn db.DBTX) *SQLTaskSequenceRepo {
	return &SQLTaskSequenceRepo{db: conn}
}

// NextTaskSeq returns the next sequence value for day (yyyymmdd), starting
// at 1. Allocation is atomic and safe under concurrent writes.
func (r *SQLTaskSequenceRepo) NextTaskSeq(ctx context.Context, day string) (int, error) {
	seedQuery := `INSERT INTO task_sequences (day, next_seq) VALUES (?, 1)
		ON CONFLICT (day) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, seedQuery, day); err != nil {
		return 0, fmt.Errorf("seeding task sequence for %s: %w", day, err)
	}

	var next int
	allocQuery := `UPDATE task_sequences
		SET next_seq = next_seq + 1
		WHERE day = ?
		RETURNING next_seq - 1`
	if err := r.db.QueryRowContext(ctx, allocQuery, day).Scan(&next); err != nil {
		return 0, fmt.Errorf("allocating task sequence for %s: %w", day, err)
	}
	return next, nil
}
