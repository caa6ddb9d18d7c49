package workflow

import (
	"context"
	"fmt"

	"github.com/alexanderramin/signoff/internal/clock"
	"github.com/alexanderramin/signoff/internal/domain"
	"github.com/alexanderramin/signoff/internal/repository"
	"github.com/google/uuid"
)

// Ledger is the approval audit trail. It is the only record of who still
// owes a decision. Queries that feed completion checks are scoped to the
// task's current round.
type Ledger struct {
	records repository.RecordRepo
	dir     repository.PrincipalRepo
	clock   clock.Clock
}

func NewLedger(records repository.RecordRepo, dir repository.PrincipalRepo, clk clock.Clock) *Ledger {
	return &Ledger{records: records, dir: dir, clock: clk}
}

// OpenPending creates one PENDING record per approver at node, in the
// task's current round.
func (l *Ledger) OpenPending(ctx context.Context, task *domain.Task, node *domain.ApprovalNode, approverIDs []string) ([]*domain.ApprovalRecord, error) {
	names, err := l.dir.DisplayNames(ctx, approverIDs)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.ApprovalRecord, 0, len(approverIDs))
	for _, id := range approverIDs {
		rec := &domain.ApprovalRecord{
			ID:           uuid.New().String(),
			TaskID:       task.ID,
			NodeID:       node.ID,
			NodeOrder:    node.Order,
			Round:        task.Round,
			ApproverID:   id,
			ApproverName: nameOr(names, id),
			Action:       domain.ActionNone,
			Result:       domain.ResultPending,
			CreatedAt:    l.clock.Now(),
		}
		if err := l.records.Insert(ctx, rec); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// Claim finds approverID's own PENDING record at node in the current round.
func (l *Ledger) Claim(ctx context.Context, task *domain.Task, node *domain.ApprovalNode, approverID string) (*domain.ApprovalRecord, error) {
	return l.records.FindPending(ctx, task.ID, node.ID, task.Round, approverID)
}

// Resolve moves rec out of PENDING. The write is conditional on the record
// still being PENDING; losing that race is a concurrency conflict.
func (l *Ledger) Resolve(ctx context.Context, rec *domain.ApprovalRecord, res domain.Resolution) error {
	result, ok := domain.ResultFor(res.Action)
	if !ok {
		return fmt.Errorf("resolving record %s: action %s does not resolve", rec.ID, res.Action)
	}
	if res.At.IsZero() {
		res.At = l.clock.Now()
	}
	won, err := l.records.ResolvePending(ctx, rec.ID, result, res)
	if err != nil {
		return err
	}
	if !won {
		return domain.Conflict("approval record %s was already resolved", rec.ID)
	}
	rec.Action = res.Action
	rec.Result = result
	rec.Comment = res.Comment
	rec.RejectToNodeID = res.RejectToNodeID
	rec.TransferToUserID = res.TransferToUserID
	rec.TransferToName = res.TransferToName
	at := res.At
	rec.ApprovalTime = &at
	return nil
}

// Append writes an already-resolved entry such as REJECT or WITHDRAW.
func (l *Ledger) Append(ctx context.Context, task *domain.Task, node *domain.ApprovalNode, actor string, res domain.Resolution) (*domain.ApprovalRecord, error) {
	result, ok := domain.ResultFor(res.Action)
	if !ok {
		return nil, fmt.Errorf("appending record: action %s does not resolve", res.Action)
	}
	names, err := l.dir.DisplayNames(ctx, []string{actor})
	if err != nil {
		return nil, err
	}
	now := l.clock.Now()
	if res.At.IsZero() {
		res.At = now
	}
	at := res.At
	rec := &domain.ApprovalRecord{
		ID:               uuid.New().String(),
		TaskID:           task.ID,
		NodeID:           node.ID,
		NodeOrder:        node.Order,
		Round:            task.Round,
		ApproverID:       actor,
		ApproverName:     nameOr(names, actor),
		Action:           res.Action,
		Result:           result,
		Comment:          res.Comment,
		RejectToNodeID:   res.RejectToNodeID,
		TransferToUserID: res.TransferToUserID,
		TransferToName:   res.TransferToName,
		ApprovalTime:     &at,
		CreatedAt:        now,
	}
	if err := l.records.Insert(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (l *Ledger) CountApproved(ctx context.Context, task *domain.Task, node *domain.ApprovalNode) (int, error) {
	return l.records.CountApproved(ctx, task.ID, node.ID, task.Round)
}

func (l *Ledger) DistinctApprovedApprovers(ctx context.Context, task *domain.Task, node *domain.ApprovalNode) ([]string, error) {
	return l.records.DistinctApprovedApprovers(ctx, task.ID, node.ID, task.Round)
}

// Roster is the snapshot of approvers owing or having given a decision at
// node in the current round. Transferred-away holders drop out and their
// transferees take their place.
func (l *Ledger) Roster(ctx context.Context, task *domain.Task, node *domain.ApprovalNode) ([]string, error) {
	recs, err := l.records.ListRound(ctx, task.ID, node.ID, task.Round)
	if err != nil {
		return nil, err
	}
	var ids []string
	seen := make(map[string]bool)
	for _, r := range recs {
		switch r.Result {
		case domain.ResultPending, domain.ResultApproved:
			if !seen[r.ApproverID] {
				seen[r.ApproverID] = true
				ids = append(ids, r.ApproverID)
			}
		case domain.ResultRejected, domain.ResultTransferred, domain.ResultWithdrawn:
		}
	}
	return ids, nil
}

// PendingApprovers lists who still owes a decision at node in the current
// round.
func (l *Ledger) PendingApprovers(ctx context.Context, task *domain.Task, node *domain.ApprovalNode) ([]*domain.ApprovalRecord, error) {
	recs, err := l.records.ListRound(ctx, task.ID, node.ID, task.Round)
	if err != nil {
		return nil, err
	}
	var pending []*domain.ApprovalRecord
	for _, r := range recs {
		if r.IsPending() {
			pending = append(pending, r)
		}
	}
	return pending, nil
}

// PurgeBeyond deletes every record of the task whose node order exceeds
// nodeOrder.
func (l *Ledger) PurgeBeyond(ctx context.Context, task *domain.Task, nodeOrder int) (int64, error) {
	return l.records.DeleteBeyondOrder(ctx, task.ID, nodeOrder)
}

// CancelPending closes every outstanding PENDING record of the task as
// WITHDRAWN.
func (l *Ledger) CancelPending(ctx context.Context, task *domain.Task, comment string) (int64, error) {
	return l.records.WithdrawPending(ctx, task.ID, comment, l.clock.Now())
}

// History returns all records ordered by node order, newest first within a
// node.
func (l *Ledger) History(ctx context.Context, taskID string) ([]*domain.ApprovalRecord, error) {
	return l.records.ListByTask(ctx, taskID)
}

func nameOr(names map[string]string, id string) string {
	if n, ok := names[id]; ok && n != "" {
		return n
	}
	return id
}
