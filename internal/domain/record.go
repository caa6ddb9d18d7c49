package domain

import "time"

// ApprovalRecord is one ledger entry for a (task, node, approver).
type ApprovalRecord struct {
	ID           string
	TaskID       string
	NodeID       string
	NodeOrder    int
	Round        int
	ApproverID   string
	ApproverName string
	Action       RecordAction
	Result       RecordResult
	Comment      string

	RejectToNodeID   *string
	TransferToUserID *string
	TransferToName   *string

	ApprovalTime *time.Time
	CreatedAt    time.Time
}

func (r *ApprovalRecord) IsPending() bool {
	return r.Result == ResultPending
}

// Resolution is the outcome written when a pending record is claimed.
type Resolution struct {
	Action           RecordAction
	Comment          string
	RejectToNodeID   *string
	TransferToUserID *string
	TransferToName   *string
	At               time.Time
}
