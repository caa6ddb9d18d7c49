package domain

import "time"

// FlowDefinition is one immutable version of a named approval flow.
type FlowDefinition struct {
	ID          string
	Code        string // stable across versions
	Name        string
	Description string
	TaskType    string
	Version     int
	Status      FlowStatus
	CreatedBy   string
	CreatedAt   time.Time
}

// ApprovalNode is one step of a flow version. Order is dense from 1.
type ApprovalNode struct {
	ID           string
	FlowID       string
	Order        int
	Name         string
	Policy       CompletionPolicy
	Approvers    ApproverSpec
	TimeoutHours *int // advisory only
	CreatedAt    time.Time
}

// NodeDraft is an unpublished node as supplied by an author.
type NodeDraft struct {
	Order        int
	Name         string
	Policy       CompletionPolicy
	Approvers    ApproverSpec
	TimeoutHours *int
}

// FlowDraft is the input to publishing a flow version.
type FlowDraft struct {
	Code        string
	Name        string
	Description string
	TaskType    string
	Nodes       []NodeDraft
}
