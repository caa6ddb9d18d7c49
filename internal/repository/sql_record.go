package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/signoff/internal/db"
	"github.com/alexanderramin/signoff/internal/domain"
)

// SQLRecordRepo implements RecordRepo over any supported SQL dialect.
type SQLRecordRepo struct {
	db db.DBTX
}

// NewSQLRecordRepo creates a new SQLRecordRepo.
func NewSQLRecordRepo(conn db.DBTX) *SQLRecordRepo {
	return &SQLRecordRepo{db: conn}
}

const recordColumns = `id, task_id, node_id, node_order, entry_round, approver_id, approver_name,
	action, result, comment, reject_to_node_id, transfer_to_user_id, transfer_to_name,
	approval_time, created_at`

func (r *SQLRecordRepo) Insert(ctx context.Context, rec *domain.ApprovalRecord) error {
	if rec.Action == "" {
		rec.Action = domain.ActionNone
	}
	query := `INSERT INTO approval_records (` + recordColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		rec.ID,
		rec.TaskID,
		rec.NodeID,
		rec.NodeOrder,
		rec.Round,
		rec.ApproverID,
		rec.ApproverName,
		string(rec.Action),
		string(rec.Result),
		rec.Comment,
		nullableStringToValue(rec.RejectToNodeID),
		nullableStringToValue(rec.TransferToUserID),
		nullableStringToValue(rec.TransferToName),
		nullableTimeToString(rec.ApprovalTime),
		formatTime(rec.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting approval record: %w", err)
	}
	return nil
}

// ResolvePending writes the resolution only if the record is still
// PENDING. A false return means another action already claimed it.
func (r *SQLRecordRepo) ResolvePending(ctx context.Context, id string, result domain.RecordResult, res domain.Resolution) (bool, error) {
	query := `UPDATE approval_records
		SET action = ?, result = ?, comment = ?, reject_to_node_id = ?,
		    transfer_to_user_id = ?, transfer_to_name = ?, approval_time = ?
		WHERE id = ? AND result = 'PENDING'`
	out, err := r.db.ExecContext(ctx, query,
		string(res.Action),
		string(result),
		res.Comment,
		nullableStringToValue(res.RejectToNodeID),
		nullableStringToValue(res.TransferToUserID),
		nullableStringToValue(res.TransferToName),
		formatTime(res.At),
		id,
	)
	if err != nil {
		return false, fmt.Errorf("resolving approval record %s: %w", id, err)
	}
	n, err := out.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading affected rows: %w", err)
	}
	return n == 1, nil
}

func (r *SQLRecordRepo) FindPending(ctx context.Context, taskID, nodeID string, round int, approverID string) (*domain.ApprovalRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM approval_records
		WHERE task_id = ? AND node_id = ? AND entry_round = ? AND approver_id = ? AND result = 'PENDING'
		ORDER BY created_at, id
		LIMIT 1`
	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, taskID, nodeID, round, approverID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("pending record for approver", approverID)
		}
		return nil, fmt.Errorf("finding pending record: %w", err)
	}
	return rec, nil
}

// ListRound returns every record of one node entry in creation order.
func (r *SQLRecordRepo) ListRound(ctx context.Context, taskID, nodeID string, round int) ([]*domain.ApprovalRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM approval_records
		WHERE task_id = ? AND node_id = ? AND entry_round = ?
		ORDER BY created_at, id`
	return r.list(ctx, query, taskID, nodeID, round)
}

func (r *SQLRecordRepo) CountApproved(ctx context.Context, taskID, nodeID string, round int) (int, error) {
	var n int
	query := `SELECT COUNT(*) FROM approval_records
		WHERE task_id = ? AND node_id = ? AND entry_round = ? AND result = 'APPROVED'`
	if err := r.db.QueryRowContext(ctx, query, taskID, nodeID, round).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting approvals: %w", err)
	}
	return n, nil
}

func (r *SQLRecordRepo) DistinctApprovedApprovers(ctx context.Context, taskID, nodeID string, round int) ([]string, error) {
	query := `SELECT DISTINCT approver_id FROM approval_records
		WHERE task_id = ? AND node_id = ? AND entry_round = ? AND result = 'APPROVED'
		ORDER BY approver_id`
	rows, err := r.db.QueryContext(ctx, query, taskID, nodeID, round)
	if err != nil {
		return nil, fmt.Errorf("listing approvers: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning approver id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteBeyondOrder removes the task's records at node orders strictly
// greater than nodeOrder.
func (r *SQLRecordRepo) DeleteBeyondOrder(ctx context.Context, taskID string, nodeOrder int) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM approval_records WHERE task_id = ? AND node_order > ?`, taskID, nodeOrder)
	if err != nil {
		return 0, fmt.Errorf("purging records after node %d: %w", nodeOrder, err)
	}
	return res.RowsAffected()
}

// WithdrawPending closes every pending record of the task as WITHDRAWN.
func (r *SQLRecordRepo) WithdrawPending(ctx context.Context, taskID, comment string, at time.Time) (int64, error) {
	query := `UPDATE approval_records
		SET action = 'WITHDRAW', result = 'WITHDRAWN', comment = ?, approval_time = ?
		WHERE task_id = ? AND result = 'PENDING'`
	res, err := r.db.ExecContext(ctx, query, comment, formatTime(at), taskID)
	if err != nil {
		return 0, fmt.Errorf("withdrawing pending records: %w", err)
	}
	return res.RowsAffected()
}

// ListByTask returns the full history, node order ascending and newest
// first within a node.
func (r *SQLRecordRepo) ListByTask(ctx context.Context, taskID string) ([]*domain.ApprovalRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM approval_records
		WHERE task_id = ?
		ORDER BY node_order ASC, created_at DESC, id DESC`
	return r.list(ctx, query, taskID)
}

func (r *SQLRecordRepo) list(ctx context.Context, query string, args ...any) ([]*domain.ApprovalRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing approval records: %w", err)
	}
	defer rows.Close()

	var recs []*domain.ApprovalRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning approval record row: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func scanRecord(s rowScanner) (*domain.ApprovalRecord, error) {
	var (
		rec                          domain.ApprovalRecord
		action, result               string
		rejectTo, transferTo, toName sql.NullString
		approvalTime                 sql.NullString
		createdAt                    string
	)
	err := s.Scan(
		&rec.ID,
		&rec.TaskID,
		&rec.NodeID,
		&rec.NodeOrder,
		&rec.Round,
		&rec.ApproverID,
		&rec.ApproverName,
		&action,
		&result,
		&rec.Comment,
		&rejectTo,
		&transferTo,
		&toName,
		&approvalTime,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}
	rec.Action = domain.RecordAction(action)
	rec.Result = domain.RecordResult(result)
	rec.RejectToNodeID = stringPtr(rejectTo)
	rec.TransferToUserID = stringPtr(transferTo)
	rec.TransferToName = stringPtr(toName)
	rec.ApprovalTime = parseNullableTime(approvalTime)
	if rec.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	return &rec, nil
}
