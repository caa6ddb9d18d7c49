package repository

import (
	"context"
	"time"

	"github.com/alexanderramin/signoff/internal/domain"
)

// TaskRepo is the TaskStore collaborator.
type TaskRepo interface {
	Create(ctx context.Context, t *domain.Task) error
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	GetByNo(ctx context.Context, taskNo string) (*domain.Task, error)
	// GetForUpdate reads the task holding the dialect's row lock until the
	// surrounding transaction ends.
	GetForUpdate(ctx context.Context, id string) (*domain.Task, error)
	// Update writes t only if its stored version still equals t.Version,
	// then increments t.Version.
	Update(ctx context.Context, t *domain.Task) error
	ListByCreator(ctx context.Context, creatorID string, page domain.Page) (domain.PageResult[*domain.Task], error)
	ListByStatus(ctx context.Context, status domain.TaskStatus, page domain.Page) (domain.PageResult[*domain.Task], error)
	ListPendingForApprover(ctx context.Context, approverID string, page domain.Page) (domain.PageResult[*domain.Task], error)
	ListApprovedByApprover(ctx context.Context, approverID string, page domain.Page) (domain.PageResult[*domain.Task], error)
}

// FlowRepo is the FlowStore collaborator.
type FlowRepo interface {
	Create(ctx context.Context, f *domain.FlowDefinition) error
	GetByID(ctx context.Context, id string) (*domain.FlowDefinition, error)
	GetByCodeVersion(ctx context.Context, code string, version int) (*domain.FlowDefinition, error)
	GetActiveByCode(ctx context.Context, code string) (*domain.FlowDefinition, error)
	GetActiveByTaskType(ctx context.Context, taskType string) (*domain.FlowDefinition, error)
	LatestVersion(ctx context.Context, code string) (int, error)
	Supersede(ctx context.Context, id string) error
	List(ctx context.Context, activeOnly bool) ([]*domain.FlowDefinition, error)
	ListVersions(ctx context.Context, code string) ([]*domain.FlowDefinition, error)
}

// NodeRepo is the NodeStore collaborator.
type NodeRepo interface {
	Create(ctx context.Context, n *domain.ApprovalNode) error
	GetByID(ctx context.Context, id string) (*domain.ApprovalNode, error)
	ListByFlow(ctx context.Context, flowID string) ([]*domain.ApprovalNode, error)
}

// RecordRepo is the RecordStore collaborator behind the audit ledger.
type RecordRepo interface {
	Insert(ctx context.Context, r *domain.ApprovalRecord) error
	// ResolvePending claims the record only while it is still PENDING and
	// reports whether this call won the claim.
	ResolvePending(ctx context.Context, id string, result domain.RecordResult, res domain.Resolution) (bool, error)
	FindPending(ctx context.Context, taskID, nodeID string, round int, approverID string) (*domain.ApprovalRecord, error)
	ListRound(ctx context.Context, taskID, nodeID string, round int) ([]*domain.ApprovalRecord, error)
	CountApproved(ctx context.Context, taskID, nodeID string, round int) (int, error)
	DistinctApprovedApprovers(ctx context.Context, taskID, nodeID string, round int) ([]string, error)
	DeleteBeyondOrder(ctx context.Context, taskID string, nodeOrder int) (int64, error)
	WithdrawPending(ctx context.Context, taskID, comment string, at time.Time) (int64, error)
	ListByTask(ctx context.Context, taskID string) ([]*domain.ApprovalRecord, error)
}

// PrincipalRepo is the PrincipalDirectory collaborator.
type PrincipalRepo interface {
	CreatePrincipal(ctx context.Context, p *domain.Principal) error
	GetPrincipal(ctx context.Context, id string) (*domain.Principal, error)
	ListPrincipals(ctx context.Context) ([]*domain.Principal, error)
	DisplayNames(ctx context.Context, ids []string) (map[string]string, error)
	CreateRole(ctx context.Context, r *domain.Role) error
	GetRole(ctx context.Context, code string) (*domain.Role, error)
	ListRoles(ctx context.Context) ([]*domain.Role, error)
	AssignRole(ctx context.Context, roleCode, principalID string) error
	// MembersOfRole returns active member ids ordered by id.
	MembersOfRole(ctx context.Context, roleCode string) ([]string, error)
}

// TaskSequenceRepo allocates the daily counter used in task numbers.
type TaskSequenceRepo interface {
	NextTaskSeq(ctx context.Context, day string) (int, error)
}
