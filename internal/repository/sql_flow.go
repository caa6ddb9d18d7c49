package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/alexanderramin/signoff/internal/db"
	"github.com/alexanderramin/signoff/internal/domain"
)

// SQLFlowRepo implements FlowRepo over any supported SQL dialect.
type SQLFlowRepo struct {
	db db.DBTX
}

// NewSQLFlowRepo creates a new SQLFlowRepo.
func NewSQLFlowRepo(conn db.DBTX) *SQLFlowRepo {
	return &SQLFlowRepo{db: conn}
}

const flowColumns = `id, code, name, description, task_type, version, status, created_by, created_at`

// Create inserts a flow version. Unique violations on (code, version) or on
// the single-active-per-code index surface as concurrency conflicts, since
// callers check for existence first.
func (r *SQLFlowRepo) Create(ctx context.Context, f *domain.FlowDefinition) error {
	query := `INSERT INTO flow_definitions (id, code, name, description, task_type,
		version, status, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		f.ID,
		f.Code,
		f.Name,
		f.Description,
		f.TaskType,
		f.Version,
		string(f.Status),
		f.CreatedBy,
		formatTime(f.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Conflict("flow %s version %d was published concurrently", f.Code, f.Version)
		}
		return fmt.Errorf("inserting flow: %w", err)
	}
	return nil
}

func (r *SQLFlowRepo) GetByID(ctx context.Context, id string) (*domain.FlowDefinition, error) {
	query := `SELECT ` + flowColumns + ` FROM flow_definitions WHERE id = ?`
	return r.getOne(ctx, query, "flow", id, id)
}

func (r *SQLFlowRepo) GetByCodeVersion(ctx context.Context, code string, version int) (*domain.FlowDefinition, error) {
	query := `SELECT ` + flowColumns + ` FROM flow_definitions WHERE code = ? AND version = ?`
	return r.getOne(ctx, query, "flow", code+" v"+strconv.Itoa(version), code, version)
}

func (r *SQLFlowRepo) GetActiveByCode(ctx context.Context, code string) (*domain.FlowDefinition, error) {
	query := `SELECT ` + flowColumns + ` FROM flow_definitions WHERE code = ? AND status = 'ACTIVE'`
	return r.getOne(ctx, query, "active flow", code, code)
}

// GetActiveByTaskType returns the most recently published active flow for
// taskType.
func (r *SQLFlowRepo) GetActiveByTaskType(ctx context.Context, taskType string) (*domain.FlowDefinition, error) {
	query := `SELECT ` + flowColumns + ` FROM flow_definitions
		WHERE task_type = ? AND status = 'ACTIVE'
		ORDER BY created_at DESC, code
		LIMIT 1`
	return r.getOne(ctx, query, "active flow for task type", taskType, taskType)
}

func (r *SQLFlowRepo) getOne(ctx context.Context, query, entity, key string, args ...any) (*domain.FlowDefinition, error) {
	f, err := scanFlow(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound(entity, key)
		}
		return nil, fmt.Errorf("getting flow %s: %w", key, err)
	}
	return f, nil
}

// LatestVersion returns the highest version published under code, or 0.
func (r *SQLFlowRepo) LatestVersion(ctx context.Context, code string) (int, error) {
	var v sql.NullInt64
	query := `SELECT MAX(version) FROM flow_definitions WHERE code = ?`
	if err := r.db.QueryRowContext(ctx, query, code).Scan(&v); err != nil {
		return 0, fmt.Errorf("reading latest version of flow %s: %w", code, err)
	}
	return int(v.Int64), nil
}

// Supersede flips an ACTIVE version to SUPERSEDED.
func (r *SQLFlowRepo) Supersede(ctx context.Context, id string) error {
	query := `UPDATE flow_definitions SET status = 'SUPERSEDED' WHERE id = ? AND status = 'ACTIVE'`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("superseding flow %s: %w", id, err)
	}
	return checkAffected(res, "flow %s is no longer active", id)
}

func (r *SQLFlowRepo) List(ctx context.Context, activeOnly bool) ([]*domain.FlowDefinition, error) {
	query := `SELECT ` + flowColumns + ` FROM flow_definitions`
	if activeOnly {
		query += ` WHERE status = 'ACTIVE'`
	}
	query += ` ORDER BY code, version DESC`
	return r.list(ctx, query)
}

func (r *SQLFlowRepo) ListVersions(ctx context.Context, code string) ([]*domain.FlowDefinition, error) {
	query := `SELECT ` + flowColumns + ` FROM flow_definitions WHERE code = ? ORDER BY version DESC`
	return r.list(ctx, query, code)
}

func (r *SQLFlowRepo) list(ctx context.Context, query string, args ...any) ([]*domain.FlowDefinition, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing flows: %w", err)
	}
	defer rows.Close()

	var flows []*domain.FlowDefinition
	for rows.Next() {
		f, err := scanFlow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning flow row: %w", err)
		}
		flows = append(flows, f)
	}
	return flows, rows.Err()
}

func scanFlow(s rowScanner) (*domain.FlowDefinition, error) {
	var (
		f         domain.FlowDefinition
		status    string
		createdAt string
	)
	err := s.Scan(
		&f.ID,
		&f.Code,
		&f.Name,
		&f.Description,
		&f.TaskType,
		&f.Version,
		&status,
		&f.CreatedBy,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}
	f.Status = domain.FlowStatus(status)
	if f.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	return &f, nil
}
