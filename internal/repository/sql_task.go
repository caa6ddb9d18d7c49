package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/alexanderramin/signoff/internal/db"
	"github.com/alexanderramin/signoff/internal/domain"
)

// SQLTaskRepo implements TaskRepo over any supported SQL dialect.
type SQLTaskRepo struct {
	db db.DBTX
}

// NewSQLTaskRepo creates a new SQLTaskRepo.
func NewSQLTaskRepo(conn db.DBTX) *SQLTaskRepo {
	return &SQLTaskRepo{db: conn}
}

const taskColumns = `t.id, t.task_no, t.title, t.content, t.type, t.priority, t.status,
	t.creator_id, t.flow_id, t.current_node_id, t.current_node_order, t.entry_round,
	t.version, t.created_at, t.updated_at, t.submitted_at, t.completed_at`

func (r *SQLTaskRepo) Create(ctx context.Context, t *domain.Task) error {
	if t.Version == 0 {
		t.Version = 1
	}
	query := `INSERT INTO tasks (id, task_no, title, content, type, priority, status,
		creator_id, flow_id, current_node_id, current_node_order, entry_round, version,
		created_at, updated_at, submitted_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		t.ID,
		t.TaskNo,
		t.Title,
		t.Content,
		t.Type,
		string(t.Priority),
		string(t.Status),
		t.CreatorID,
		t.FlowID,
		nullableStringToValue(t.CurrentNodeID),
		nullableIntToValue(t.CurrentNodeOrder),
		t.Round,
		t.Version,
		formatTime(t.CreatedAt),
		formatTime(t.UpdatedAt),
		nullableTimeToString(t.SubmittedAt),
		nullableTimeToString(t.CompletedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Duplicate("task number %s already exists", t.TaskNo)
		}
		return fmt.Errorf("inserting task: %w", err)
	}
	return nil
}

func (r *SQLTaskRepo) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks t WHERE t.id = ?`
	return r.getOne(ctx, query, "task", id)
}

func (r *SQLTaskRepo) GetByNo(ctx context.Context, taskNo string) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks t WHERE t.task_no = ?`
	return r.getOne(ctx, query, "task", taskNo)
}

func (r *SQLTaskRepo) GetForUpdate(ctx context.Context, id string) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks t WHERE t.id = ?` + db.DialectOf(r.db).LockClause()
	return r.getOne(ctx, query, "task", id)
}

func (r *SQLTaskRepo) getOne(ctx context.Context, query, entity, key string) (*domain.Task, error) {
	t, err := scanTask(r.db.QueryRowContext(ctx, query, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound(entity, key)
		}
		return nil, fmt.Errorf("getting task %s: %w", key, err)
	}
	return t, nil
}

func (r *SQLTaskRepo) Update(ctx context.Context, t *domain.Task) error {
	query := `UPDATE tasks SET title = ?, content = ?, priority = ?, status = ?, flow_id = ?,
		current_node_id = ?, current_node_order = ?, entry_round = ?, version = version + 1,
		updated_at = ?, submitted_at = ?, completed_at = ?
		WHERE id = ? AND version = ?`
	res, err := r.db.ExecContext(ctx, query,
		t.Title,
		t.Content,
		string(t.Priority),
		string(t.Status),
		t.FlowID,
		nullableStringToValue(t.CurrentNodeID),
		nullableIntToValue(t.CurrentNodeOrder),
		t.Round,
		formatTime(t.UpdatedAt),
		nullableTimeToString(t.SubmittedAt),
		nullableTimeToString(t.CompletedAt),
		t.ID,
		t.Version,
	)
	if err != nil {
		return fmt.Errorf("updating task %s: %w", t.ID, err)
	}
	if err := checkAffected(res, "task %s was modified concurrently", t.TaskNo); err != nil {
		return err
	}
	t.Version++
	return nil
}

func (r *SQLTaskRepo) ListByCreator(ctx context.Context, creatorID string, page domain.Page) (domain.PageResult[*domain.Task], error) {
	return r.listPaged(ctx, page,
		`FROM tasks t WHERE t.creator_id = ?`,
		`ORDER BY t.created_at DESC, t.id`,
		creatorID)
}

func (r *SQLTaskRepo) ListByStatus(ctx context.Context, status domain.TaskStatus, page domain.Page) (domain.PageResult[*domain.Task], error) {
	return r.listPaged(ctx, page,
		`FROM tasks t WHERE t.status = ?`,
		`ORDER BY t.created_at DESC, t.id`,
		string(status))
}

// ListPendingForApprover returns actionable tasks where approverID holds a
// pending record at the current node in the current round.
func (r *SQLTaskRepo) ListPendingForApprover(ctx context.Context, approverID string, page domain.Page) (domain.PageResult[*domain.Task], error) {
	return r.listPaged(ctx, page,
		`FROM tasks t WHERE t.status IN ('PENDING','IN_PROGRESS','REJECTED')
			AND EXISTS (
				SELECT 1 FROM approval_records ar
				WHERE ar.task_id = t.id
				  AND ar.node_id = t.current_node_id
				  AND ar.entry_round = t.entry_round
				  AND ar.approver_id = ?
				  AND ar.result = 'PENDING'
			)`,
		`ORDER BY t.updated_at DESC, t.id`,
		approverID)
}

// ListApprovedByApprover returns tasks on which approverID has recorded at
// least one approval.
func (r *SQLTaskRepo) ListApprovedByApprover(ctx context.Context, approverID string, page domain.Page) (domain.PageResult[*domain.Task], error) {
	return r.listPaged(ctx, page,
		`FROM tasks t WHERE EXISTS (
				SELECT 1 FROM approval_records ar
				WHERE ar.task_id = t.id
				  AND ar.approver_id = ?
				  AND ar.result = 'APPROVED'
			)`,
		`ORDER BY t.updated_at DESC, t.id`,
		approverID)
}

func (r *SQLTaskRepo) listPaged(ctx context.Context, page domain.Page, from, orderBy string, args ...any) (domain.PageResult[*domain.Task], error) {
	page = page.Normalize()

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) `+from, args...).Scan(&total); err != nil {
		return domain.PageResult[*domain.Task]{}, fmt.Errorf("counting tasks: %w", err)
	}

	query := `SELECT ` + taskColumns + ` ` + from + ` ` + orderBy + ` LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, query, append(args, page.Size, page.Offset())...)
	if err != nil {
		return domain.PageResult[*domain.Task]{}, fmt.Errorf("listing tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return domain.PageResult[*domain.Task]{}, fmt.Errorf("scanning task row: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return domain.PageResult[*domain.Task]{}, fmt.Errorf("iterating task rows: %w", err)
	}
	return pageResult(tasks, total, page), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(s rowScanner) (*domain.Task, error) {
	var (
		t                        domain.Task
		priority, status         string
		currentNodeID            sql.NullString
		currentNodeOrder         sql.NullInt64
		createdAt, updatedAt     string
		submittedAt, completedAt sql.NullString
	)
	err := s.Scan(
		&t.ID,
		&t.TaskNo,
		&t.Title,
		&t.Content,
		&t.Type,
		&priority,
		&status,
		&t.CreatorID,
		&t.FlowID,
		&currentNodeID,
		&currentNodeOrder,
		&t.Round,
		&t.Version,
		&createdAt,
		&updatedAt,
		&submittedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}
	t.Priority = domain.Priority(priority)
	t.Status = domain.TaskStatus(status)
	t.CurrentNodeID = stringPtr(currentNodeID)
	t.CurrentNodeOrder = intPtr(currentNodeOrder)
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if t.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	t.SubmittedAt = parseNullableTime(submittedAt)
	t.CompletedAt = parseNullableTime(completedAt)
	return &t, nil
}
