package domain

import "time"

type Task struct {
	ID        string
	TaskNo    string
	Title     string
	Content   string
	Type      string
	Priority  Priority
	Status    TaskStatus
	CreatorID string
	FlowID    string // pinned flow version

	CurrentNodeID    *string
	CurrentNodeOrder *int

	// Round counts node entries. Ledger completion checks only look at the
	// current round.
	Round   int
	Version int // optimistic lock

	CreatedAt   time.Time
	UpdatedAt   time.Time
	SubmittedAt *time.Time
	CompletedAt *time.Time
}

// IsTerminal reports whether no further action can change the task.
func (t *Task) IsTerminal() bool {
	switch t.Status {
	case TaskApproved, TaskWithdrawn, TaskCancelled:
		return true
	}
	return false
}

// Actionable reports whether approvers may approve, reject or transfer.
// REJECTED is included: after a rollback the target node holds fresh
// pending records that must stay decidable.
func (t *Task) Actionable() bool {
	switch t.Status {
	case TaskPending, TaskInProgress, TaskRejected:
		return true
	}
	return false
}

func (t *Task) Submittable() bool {
	return t.Status == TaskDraft || t.Status == TaskRejected
}

// Withdrawable excludes REJECTED: the creator resubmits before withdrawing.
func (t *Task) Withdrawable() bool {
	return t.Status == TaskPending || t.Status == TaskInProgress
}

// CheckSubmit validates a submit by actor without mutating the task.
func (t *Task) CheckSubmit(actor string) error {
	if !t.Submittable() {
		return InvalidTransition("task %s cannot be submitted from %s", t.TaskNo, t.Status)
	}
	if actor != t.CreatorID {
		return PermissionDenied("only the creator may submit task %s", t.TaskNo)
	}
	return nil
}

// CheckWithdraw validates a withdraw by actor without mutating the task.
func (t *Task) CheckWithdraw(actor string) error {
	if !t.Withdrawable() {
		return InvalidTransition("task %s cannot be withdrawn from %s", t.TaskNo, t.Status)
	}
	if actor != t.CreatorID {
		return PermissionDenied("only the creator may withdraw task %s", t.TaskNo)
	}
	return nil
}

// CheckCancel validates a cancel by actor without mutating the task.
func (t *Task) CheckCancel(actor string) error {
	if t.Status != TaskDraft {
		return InvalidTransition("task %s cannot be cancelled from %s", t.TaskNo, t.Status)
	}
	if actor != t.CreatorID {
		return PermissionDenied("only the creator may cancel task %s", t.TaskNo)
	}
	return nil
}

// CheckActionable validates that approver actions are allowed.
func (t *Task) CheckActionable() error {
	if !t.Actionable() {
		return InvalidTransition("task %s is %s and accepts no approver actions", t.TaskNo, t.Status)
	}
	return nil
}

// EnterNode moves the task onto node and starts a new ledger round.
func (t *Task) EnterNode(node *ApprovalNode, status TaskStatus, now time.Time) {
	id, order := node.ID, node.Order
	t.CurrentNodeID = &id
	t.CurrentNodeOrder = &order
	t.Round++
	t.Status = status
	t.UpdatedAt = now
}

// MarkSubmitted records the submit time and pinned flow version.
func (t *Task) MarkSubmitted(flowID string, now time.Time) {
	t.FlowID = flowID
	t.SubmittedAt = &now
	t.CompletedAt = nil
}

func (t *Task) MarkApproved(now time.Time) {
	t.Status = TaskApproved
	t.CompletedAt = &now
	t.UpdatedAt = now
}

func (t *Task) MarkWithdrawn(now time.Time) {
	t.Status = TaskWithdrawn
	t.CompletedAt = &now
	t.UpdatedAt = now
}

func (t *Task) MarkCancelled(now time.Time) {
	t.Status = TaskCancelled
	t.CompletedAt = &now
	t.UpdatedAt = now
}

// AtNode reports whether the task currently sits on nodeID.
func (t *Task) AtNode(nodeID string) bool {
	return t.CurrentNodeID != nil && *t.CurrentNodeID == nodeID
}
