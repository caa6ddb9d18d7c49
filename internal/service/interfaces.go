package service

import (
	"context"

	"github.com/alexanderramin/signoff/internal/domain"
	"github.com/alexanderramin/signoff/internal/workflow"
)

// CreateTaskRequest describes a new draft task. FlowCode may be empty, in
// which case the active flow for Type is used.
type CreateTaskRequest struct {
	Title     string
	Content   string
	Type      string
	Priority  string
	FlowCode  string
	CreatorID string
}

// RejectRequest rolls a task back. The target is given either by node id or
// by node order within the task's pinned flow.
type RejectRequest struct {
	TaskRef      string
	Actor        string
	TargetNodeID string
	TargetOrder  int
	Comment      string
}

// TaskDetail is the read model behind the task detail view.
type TaskDetail struct {
	Task             *domain.Task
	Flow             *domain.FlowDefinition
	Nodes            []*domain.ApprovalNode
	CurrentNode      *domain.ApprovalNode
	PendingApprovers []*domain.ApprovalRecord
	History          []*domain.ApprovalRecord

	CanApprove  bool
	CanWithdraw bool
	CanSubmit   bool
	CanCancel   bool
}

// Task operations accept a task reference that is either the task id or
// its task number.
type TaskService interface {
	CreateTask(ctx context.Context, req CreateTaskRequest) (*domain.Task, error)
	SubmitTask(ctx context.Context, ref, actor string) (*domain.Task, error)
	Approve(ctx context.Context, ref, actor, comment string) (*domain.Task, error)
	Reject(ctx context.Context, req RejectRequest) (*domain.Task, error)
	Transfer(ctx context.Context, ref, actor, targetUserID, comment string) (*domain.Task, error)
	WithdrawTask(ctx context.Context, ref, actor, reason string) (*domain.Task, error)
	CancelTask(ctx context.Context, ref, actor string) (*domain.Task, error)
	GetTaskDetail(ctx context.Context, ref, viewer string) (*TaskDetail, error)

	ListPending(ctx context.Context, approverID string, page domain.Page) (domain.PageResult[*domain.Task], error)
	ListCreated(ctx context.Context, creatorID string, page domain.Page) (domain.PageResult[*domain.Task], error)
	ListApproved(ctx context.Context, approverID string, page domain.Page) (domain.PageResult[*domain.Task], error)
	ListByStatus(ctx context.Context, status domain.TaskStatus, page domain.Page) (domain.PageResult[*domain.Task], error)
}

// FlowDetail is one flow version with its ordered nodes.
type FlowDetail struct {
	Flow  *domain.FlowDefinition
	Nodes []*domain.ApprovalNode
}

type FlowService interface {
	// PublishFlow creates version 1 of a new flow code.
	PublishFlow(ctx context.Context, draft domain.FlowDraft, actor string) (*FlowDetail, error)
	// UpdateFlow publishes the next version of an existing code.
	UpdateFlow(ctx context.Context, draft domain.FlowDraft, actor string) (*FlowDetail, error)
	// GetFlowDetail loads version of code, or the active version when
	// version is zero.
	GetFlowDetail(ctx context.Context, code string, version int) (*FlowDetail, error)
	ListFlows(ctx context.Context, activeOnly bool) ([]*domain.FlowDefinition, error)
	ListVersions(ctx context.Context, code string) ([]*domain.FlowDefinition, error)
}

type DirectoryService interface {
	AddPrincipal(ctx context.Context, id, displayName string) (*domain.Principal, error)
	AddRole(ctx context.Context, code, name string) (*domain.Role, error)
	AssignRole(ctx context.Context, roleCode, principalID string) error
	ListPrincipals(ctx context.Context) ([]*domain.Principal, error)
	ListRoles(ctx context.Context) ([]*domain.Role, error)
	// RoleMembers lists the active members of a role.
	RoleMembers(ctx context.Context, roleCode string) ([]string, error)
}

func flowDetailOf(g *workflow.ApprovalGraph) *FlowDetail {
	return &FlowDetail{Flow: g.Flow(), Nodes: g.Nodes()}
}
