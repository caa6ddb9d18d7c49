package domain

type FlowStatus string

const (
	FlowActive     FlowStatus = "ACTIVE"
	FlowSuperseded FlowStatus = "SUPERSEDED"
)

// CompletionPolicy decides when a node's approvals are sufficient.
type CompletionPolicy string

const (
	PolicyAny CompletionPolicy = "ANY" // or-sign: one approval completes the node
	PolicyAll CompletionPolicy = "ALL" // countersign: every rostered approver must approve
)

func ParseCompletionPolicy(s string) (CompletionPolicy, error) {
	switch CompletionPolicy(s) {
	case PolicyAny:
		return PolicyAny, nil
	case PolicyAll:
		return PolicyAll, nil
	default:
		return "", Validation("unknown completion policy %q (want ANY or ALL)", s)
	}
}

type TaskStatus string

const (
	TaskDraft      TaskStatus = "DRAFT"
	TaskPending    TaskStatus = "PENDING"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskRejected   TaskStatus = "REJECTED"
	TaskApproved   TaskStatus = "APPROVED"
	TaskWithdrawn  TaskStatus = "WITHDRAWN"
	TaskCancelled  TaskStatus = "CANCELLED"
)

// AllTaskStatuses lists every status in lifecycle order.
var AllTaskStatuses = []TaskStatus{
	TaskDraft, TaskPending, TaskInProgress, TaskRejected,
	TaskApproved, TaskWithdrawn, TaskCancelled,
}

func ParseTaskStatus(s string) (TaskStatus, error) {
	for _, st := range AllTaskStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", Validation("unknown task status %q", s)
}

type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityNormal Priority = "NORMAL"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

func ParsePriority(s string) (Priority, error) {
	switch Priority(s) {
	case "":
		return PriorityNormal, nil
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return Priority(s), nil
	default:
		return "", Validation("unknown priority %q", s)
	}
}

// RecordAction is what an actor did to a ledger entry. ActionNone marks an
// entry that has not been acted on yet.
type RecordAction string

const (
	ActionNone     RecordAction = "NONE"
	ActionApprove  RecordAction = "APPROVE"
	ActionReject   RecordAction = "REJECT"
	ActionTransfer RecordAction = "TRANSFER"
	ActionWithdraw RecordAction = "WITHDRAW"
)

type RecordResult string

const (
	ResultPending     RecordResult = "PENDING"
	ResultApproved    RecordResult = "APPROVED"
	ResultRejected    RecordResult = "REJECTED"
	ResultTransferred RecordResult = "TRANSFERRED"
	ResultWithdrawn   RecordResult = "WITHDRAWN"
)

// ResultFor maps a claiming action to the result it produces.
func ResultFor(a RecordAction) (RecordResult, bool) {
	switch a {
	case ActionApprove:
		return ResultApproved, true
	case ActionReject:
		return ResultRejected, true
	case ActionTransfer:
		return ResultTransferred, true
	case ActionWithdraw:
		return ResultWithdrawn, true
	case ActionNone:
		return ResultPending, false
	}
	return "", false
}
