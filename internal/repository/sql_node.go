package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/alexanderramin/signoff/internal/db"
	"github.com/alexanderramin/signoff/internal/domain"
)

// SQLNodeRepo implements NodeRepo over any supported SQL dialect.
type SQLNodeRepo struct {
	db db.DBTX
}

// NewSQLNodeRepo creates a new SQLNodeRepo.
func NewSQLNodeRepo(conn db.DBTX) *SQLNodeRepo {
	return &SQLNodeRepo{db: conn}
}

const nodeColumns = `id, flow_id, node_order, name, policy, approver_kind, approver_values,
	timeout_hours, created_at`

func (r *SQLNodeRepo) Create(ctx context.Context, n *domain.ApprovalNode) error {
	if n.Approvers == nil {
		return domain.Validation("node %q has no approver spec", n.Name)
	}
	values, err := domain.EncodeApproverValues(n.Approvers)
	if err != nil {
		return err
	}
	query := `INSERT INTO approval_nodes (id, flow_id, node_order, name, policy,
		approver_kind, approver_values, timeout_hours, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query,
		n.ID,
		n.FlowID,
		n.Order,
		n.Name,
		string(n.Policy),
		string(n.Approvers.Kind()),
		values,
		nullableIntToValue(n.TimeoutHours),
		formatTime(n.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting approval node: %w", err)
	}
	return nil
}

func (r *SQLNodeRepo) GetByID(ctx context.Context, id string) (*domain.ApprovalNode, error) {
	query := `SELECT ` + nodeColumns + ` FROM approval_nodes WHERE id = ?`
	n, err := scanNode(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("approval node", id)
		}
		return nil, fmt.Errorf("getting approval node %s: %w", id, err)
	}
	return n, nil
}

// ListByFlow returns the nodes of a flow version in ascending order.
func (r *SQLNodeRepo) ListByFlow(ctx context.Context, flowID string) ([]*domain.ApprovalNode, error) {
	query := `SELECT ` + nodeColumns + ` FROM approval_nodes WHERE flow_id = ? ORDER BY node_order`
	rows, err := r.db.QueryContext(ctx, query, flowID)
	if err != nil {
		return nil, fmt.Errorf("listing approval nodes: %w", err)
	}
	defer rows.Close()

	var nodes []*domain.ApprovalNode
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning approval node row: %w", err)
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

func scanNode(s rowScanner) (*domain.ApprovalNode, error) {
	var (
		n            domain.ApprovalNode
		policy       string
		kind, values string
		timeout      sql.NullInt64
		createdAt    string
	)
	err := s.Scan(
		&n.ID,
		&n.FlowID,
		&n.Order,
		&n.Name,
		&policy,
		&kind,
		&values,
		&timeout,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}
	n.Policy = domain.CompletionPolicy(policy)
	if n.Approvers, err = domain.DecodeApproverSpec(kind, values); err != nil {
		return nil, err
	}
	n.TimeoutHours = intPtr(timeout)
	if n.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	return &n, nil
}
