package testutil

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/alexanderramin/signoff/internal/domain"
	"github.com/google/uuid"
)

var testTaskNoCounter atomic.Int64

func NewTestPrincipal(id string) *domain.Principal {
	return &domain.Principal{
		ID:          id,
		DisplayName: "User " + id,
		Active:      true,
		CreatedAt:   Epoch,
	}
}

func NewTestRole(code string) *domain.Role {
	return &domain.Role{Code: code, Name: "Role " + code, CreatedAt: Epoch}
}

// Flow options
type FlowOption func(*domain.FlowDefinition)

func WithFlowVersion(v int) FlowOption {
	return func(f *domain.FlowDefinition) {
		f.Version = v
	}
}

func WithFlowStatus(s domain.FlowStatus) FlowOption {
	return func(f *domain.FlowDefinition) {
		f.Status = s
	}
}

func WithTaskType(tt string) FlowOption {
	return func(f *domain.FlowDefinition) {
		f.TaskType = tt
	}
}

func NewTestFlow(code string, opts ...FlowOption) *domain.FlowDefinition {
	f := &domain.FlowDefinition{
		ID:        uuid.New().String(),
		Code:      code,
		Name:      "Flow " + code,
		TaskType:  "expense",
		Version:   1,
		Status:    domain.FlowActive,
		CreatedBy: "admin",
		CreatedAt: Epoch,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// ApprovalNode options
type NodeOption func(*domain.ApprovalNode)

func WithPolicy(p domain.CompletionPolicy) NodeOption {
	return func(n *domain.ApprovalNode) {
		n.Policy = p
	}
}

func WithApprovers(spec domain.ApproverSpec) NodeOption {
	return func(n *domain.ApprovalNode) {
		n.Approvers = spec
	}
}

func WithTimeoutHours(h int) NodeOption {
	return func(n *domain.ApprovalNode) {
		n.TimeoutHours = &h
	}
}

// NewTestApprovalNode builds an ANY node approved by the given users.
func NewTestApprovalNode(flowID string, order int, users []string, opts ...NodeOption) *domain.ApprovalNode {
	n := &domain.ApprovalNode{
		ID:        uuid.New().String(),
		FlowID:    flowID,
		Order:     order,
		Name:      fmt.Sprintf("Step %d", order),
		Policy:    domain.PolicyAny,
		Approvers: domain.ByUser{IDs: users},
		CreatedAt: Epoch,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Task options
type TaskOption func(*domain.Task)

func WithTaskStatus(s domain.TaskStatus) TaskOption {
	return func(t *domain.Task) {
		t.Status = s
	}
}

func WithPriority(p domain.Priority) TaskOption {
	return func(t *domain.Task) {
		t.Priority = p
	}
}

func WithCreatedAt(at time.Time) TaskOption {
	return func(t *domain.Task) {
		t.CreatedAt = at
		t.UpdatedAt = at
	}
}

// AtNode places the task on node in the given round.
func AtNode(node *domain.ApprovalNode, round int) TaskOption {
	return func(t *domain.Task) {
		id, order := node.ID, node.Order
		t.CurrentNodeID = &id
		t.CurrentNodeOrder = &order
		t.Round = round
	}
}

func NewTestTask(creatorID, flowID string, opts ...TaskOption) *domain.Task {
	n := testTaskNoCounter.Add(1)
	t := &domain.Task{
		ID:        uuid.New().String(),
		TaskNo:    fmt.Sprintf("TK20250615%06d", n),
		Title:     fmt.Sprintf("Task %d", n),
		Type:      "expense",
		Priority:  domain.PriorityNormal,
		Status:    domain.TaskDraft,
		CreatorID: creatorID,
		FlowID:    flowID,
		Version:   1,
		CreatedAt: Epoch,
		UpdatedAt: Epoch,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Record options
type RecordOption func(*domain.ApprovalRecord)

func WithResult(action domain.RecordAction, result domain.RecordResult) RecordOption {
	return func(r *domain.ApprovalRecord) {
		r.Action = action
		r.Result = result
	}
}

func WithRecordCreatedAt(at time.Time) RecordOption {
	return func(r *domain.ApprovalRecord) {
		r.CreatedAt = at
	}
}

// NewTestRecord builds a pending record for approverID at node.
func NewTestRecord(taskID string, node *domain.ApprovalNode, round int, approverID string, opts ...RecordOption) *domain.ApprovalRecord {
	r := &domain.ApprovalRecord{
		ID:           uuid.New().String(),
		TaskID:       taskID,
		NodeID:       node.ID,
		NodeOrder:    node.Order,
		Round:        round,
		ApproverID:   approverID,
		ApproverName: "User " + approverID,
		Action:       domain.ActionNone,
		Result:       domain.ResultPending,
		CreatedAt:    Epoch,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}
