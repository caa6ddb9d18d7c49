package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/alexanderramin/signoff/internal/clock"
	"github.com/alexanderramin/signoff/internal/db"
	"github.com/alexanderramin/signoff/internal/domain"
	"github.com/alexanderramin/signoff/internal/repository"
	"github.com/alexanderramin/signoff/internal/tracing"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// Engine drives tasks through submit, approve, reject, transfer, withdraw
// and cancel. Each action runs in one transaction: the task row is read
// under lock, the transition is decided, and the task is written back
// with an optimistic version check. The engine holds no state between
// calls.
type Engine struct {
	uow    db.UnitOfWork
	clock  clock.Clock
	logger *slog.Logger
	tracer trace.Tracer
}

type Option func(*Engine)

func WithClock(c clock.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) { e.tracer = t }
}

func NewEngine(uow db.UnitOfWork, opts ...Option) *Engine {
	e := &Engine{uow: uow, clock: clock.System{}, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	if e.tracer == nil {
		e.tracer = tracing.Tracer()
	}
	return e
}

// Clock returns the engine's time source.
func (e *Engine) Clock() clock.Clock { return e.clock }

// Logger returns the engine's logger.
func (e *Engine) Logger() *slog.Logger { return e.logger }

// Tx bundles the collaborators bound to one transaction.
type Tx struct {
	Stores   *repository.Stores
	Resolver *Resolver
	Ledger   *Ledger
	Catalog  *Catalog
}

// Bind builds the workflow collaborators over conn.
func (e *Engine) Bind(conn db.DBTX) *Tx {
	s := repository.NewStores(conn)
	return &Tx{
		Stores:   s,
		Resolver: NewResolver(s.Principals, e.logger),
		Ledger:   NewLedger(s.Records, s.Principals, e.clock),
		Catalog:  NewCatalog(s.Flows, s.Nodes, s.Principals, e.clock),
	}
}

// WithinTx runs fn in one transaction with collaborators bound to it.
func (e *Engine) WithinTx(ctx context.Context, fn func(ctx context.Context, tx *Tx) error) error {
	return e.uow.WithinTx(ctx, func(ctx context.Context, conn db.DBTX) error {
		return fn(ctx, e.Bind(conn))
	})
}

// CreateTaskInput describes a new draft task. When FlowCode is empty the
// active flow for Type is used.
type CreateTaskInput struct {
	Title     string
	Content   string
	Type      string
	Priority  domain.Priority
	FlowCode  string
	CreatorID string
}

// CreateTask stores a DRAFT task pinned to the currently active flow.
func (e *Engine) CreateTask(ctx context.Context, in CreateTaskInput) (*domain.Task, error) {
	ctx, sp := tracing.StartSpan(ctx, e.tracer, "workflow.create_task", map[string]string{"actor": in.CreatorID})
	task, err := e.createTask(ctx, in)
	tracing.EndSpan(sp, err)
	return task, err
}

func (e *Engine) createTask(ctx context.Context, in CreateTaskInput) (*domain.Task, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Type = strings.TrimSpace(in.Type)
	if in.Title == "" {
		return nil, domain.Validation("task title is required")
	}
	if in.Type == "" && in.FlowCode == "" {
		return nil, domain.Validation("task type or flow code is required")
	}
	priority, err := domain.ParsePriority(string(in.Priority))
	if err != nil {
		return nil, err
	}

	var task *domain.Task
	err = e.WithinTx(ctx, func(ctx context.Context, tx *Tx) error {
		if _, err := tx.Stores.Principals.GetPrincipal(ctx, in.CreatorID); err != nil {
			return err
		}
		var (
			flow *domain.FlowDefinition
			err  error
		)
		if in.FlowCode != "" {
			flow, err = tx.Catalog.LatestActive(ctx, in.FlowCode)
		} else {
			flow, err = tx.Catalog.LatestActiveByTaskType(ctx, in.Type)
		}
		if err != nil {
			return err
		}
		if in.Type == "" {
			in.Type = flow.TaskType
		}

		now := e.clock.Now()
		day := now.Format("20060102")
		seq, err := tx.Stores.Sequences.NextTaskSeq(ctx, day)
		if err != nil {
			return err
		}
		task = &domain.Task{
			ID:        uuid.New().String(),
			TaskNo:    fmt.Sprintf("TK%s%06d", day, seq),
			Title:     in.Title,
			Content:   in.Content,
			Type:      in.Type,
			Priority:  priority,
			Status:    domain.TaskDraft,
			CreatorID: in.CreatorID,
			FlowID:    flow.ID,
			Version:   1,
			CreatedAt: now,
			UpdatedAt: now,
		}
		return tx.Stores.Tasks.Create(ctx, task)
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// Submit sends a DRAFT or REJECTED task to the first node. A draft is
// re-pinned to the active version of its flow code. A resubmission keeps
// its pinned version and closes outstanding pending records first.
func (e *Engine) Submit(ctx context.Context, taskID, actor string) (*domain.Task, error) {
	return e.act(ctx, "submit", taskID, actor, func(ctx context.Context, tx *Tx, task *domain.Task) error {
		if err := task.CheckSubmit(actor); err != nil {
			return err
		}

		flowID := task.FlowID
		if task.Status == domain.TaskDraft {
			pinned, err := tx.Stores.Flows.GetByID(ctx, task.FlowID)
			if err != nil {
				return err
			}
			active, err := tx.Catalog.LatestActive(ctx, pinned.Code)
			if err != nil {
				return err
			}
			flowID = active.ID
		} else {
			if _, err := tx.Ledger.CancelPending(ctx, task, "resubmitted"); err != nil {
				return err
			}
		}

		graph, err := tx.Catalog.Graph(ctx, flowID)
		if err != nil {
			return err
		}
		first, err := graph.FirstNode()
		if err != nil {
			return err
		}
		now := e.clock.Now()
		task.MarkSubmitted(flowID, now)
		return e.enter(ctx, tx, task, first, domain.TaskPending, now)
	})
}

// Approve claims actor's pending record at the current node and advances
// the task when the node's policy is satisfied.
func (e *Engine) Approve(ctx context.Context, taskID, actor, comment string) (*domain.Task, error) {
	return e.act(ctx, "approve", taskID, actor, func(ctx context.Context, tx *Tx, task *domain.Task) error {
		graph, node, rec, err := e.claimCurrent(ctx, tx, task, actor)
		if err != nil {
			return err
		}
		now := e.clock.Now()
		if err := tx.Ledger.Resolve(ctx, rec, domain.Resolution{
			Action:  domain.ActionApprove,
			Comment: comment,
			At:      now,
		}); err != nil {
			return err
		}

		complete, err := e.isComplete(ctx, tx, task, node)
		if err != nil {
			return err
		}
		if !complete {
			task.Status = domain.TaskInProgress
			task.UpdatedAt = now
			return nil
		}
		if next, ok := graph.NextNode(node.Order); ok {
			return e.enter(ctx, tx, task, next, domain.TaskInProgress, now)
		}
		task.MarkApproved(now)
		return nil
	})
}

// Reject rolls the task back to an earlier node. Records beyond the target
// are purged, the REJECT entry is appended, and the target node's
// approvers get fresh pending records.
func (e *Engine) Reject(ctx context.Context, taskID, actor, targetNodeID, comment string) (*domain.Task, error) {
	return e.act(ctx, "reject", taskID, actor, func(ctx context.Context, tx *Tx, task *domain.Task) error {
		graph, node, _, err := e.claimCurrent(ctx, tx, task, actor)
		if err != nil {
			return err
		}
		target, ok := graph.NodeByID(targetNodeID)
		if !ok {
			return domain.Validation("reject target %s is not a node of this task's flow", targetNodeID)
		}
		if target.Order >= node.Order {
			return domain.Validation("reject target %q (order %d) must come before the current node %q (order %d)",
				target.Name, target.Order, node.Name, node.Order)
		}

		if _, err := tx.Ledger.PurgeBeyond(ctx, task, target.Order); err != nil {
			return err
		}
		now := e.clock.Now()
		targetID := target.ID
		if _, err := tx.Ledger.Append(ctx, task, node, actor, domain.Resolution{
			Action:         domain.ActionReject,
			Comment:        comment,
			RejectToNodeID: &targetID,
			At:             now,
		}); err != nil {
			return err
		}
		return e.enter(ctx, tx, task, target, domain.TaskRejected, now)
	})
}

// Transfer hands actor's pending decision to targetUserID at the same node.
// Completion is not evaluated and the task's status and node are
// unchanged.
func (e *Engine) Transfer(ctx context.Context, taskID, actor, targetUserID, comment string) (*domain.Task, error) {
	return e.act(ctx, "transfer", taskID, actor, func(ctx context.Context, tx *Tx, task *domain.Task) error {
		_, node, rec, err := e.claimCurrent(ctx, tx, task, actor)
		if err != nil {
			return err
		}
		if targetUserID == actor {
			return domain.Validation("cannot transfer a decision to yourself")
		}
		target, err := tx.Stores.Principals.GetPrincipal(ctx, targetUserID)
		if err != nil {
			return err
		}
		if !target.Active {
			return domain.NotFound("principal %q is not active", targetUserID)
		}
		if _, err := tx.Ledger.Claim(ctx, task, node, targetUserID); err == nil {
			return domain.Validation("%s already has a pending decision on this node", targetUserID)
		} else if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		approved, err := tx.Ledger.DistinctApprovedApprovers(ctx, task, node)
		if err != nil {
			return err
		}
		if slices.Contains(approved, targetUserID) {
			return domain.Validation("%s has already approved this node", targetUserID)
		}

		now := e.clock.Now()
		toID, toName := target.ID, target.DisplayName
		if err := tx.Ledger.Resolve(ctx, rec, domain.Resolution{
			Action:           domain.ActionTransfer,
			Comment:          comment,
			TransferToUserID: &toID,
			TransferToName:   &toName,
			At:               now,
		}); err != nil {
			return err
		}
		if _, err := tx.Ledger.OpenPending(ctx, task, node, []string{target.ID}); err != nil {
			return err
		}
		task.UpdatedAt = now
		return nil
	})
}

// Withdraw lets the creator pull back an in-flight task. Outstanding
// pending records are closed before the WITHDRAW entry is appended.
func (e *Engine) Withdraw(ctx context.Context, taskID, actor, reason string) (*domain.Task, error) {
	return e.act(ctx, "withdraw", taskID, actor, func(ctx context.Context, tx *Tx, task *domain.Task) error {
		if err := task.CheckWithdraw(actor); err != nil {
			return err
		}
		node, err := tx.Stores.Nodes.GetByID(ctx, derefOr(task.CurrentNodeID))
		if err != nil {
			return err
		}
		if _, err := tx.Ledger.CancelPending(ctx, task, "withdrawn by creator"); err != nil {
			return err
		}
		now := e.clock.Now()
		if _, err := tx.Ledger.Append(ctx, task, node, actor, domain.Resolution{
			Action:  domain.ActionWithdraw,
			Comment: reason,
			At:      now,
		}); err != nil {
			return err
		}
		task.MarkWithdrawn(now)
		return nil
	})
}

// Cancel discards a DRAFT task. Only its creator may cancel it.
func (e *Engine) Cancel(ctx context.Context, taskID, actor string) (*domain.Task, error) {
	return e.act(ctx, "cancel", taskID, actor, func(ctx context.Context, tx *Tx, task *domain.Task) error {
		if err := task.CheckCancel(actor); err != nil {
			return err
		}
		task.MarkCancelled(e.clock.Now())
		return nil
	})
}

// act runs one task action in a transaction and persists the task with a
// version check. Errors leave no writes behind.
func (e *Engine) act(ctx context.Context, name, taskID, actor string, fn func(ctx context.Context, tx *Tx, task *domain.Task) error) (*domain.Task, error) {
	ctx, sp := tracing.StartSpan(ctx, e.tracer, "workflow."+name, map[string]string{
		"task.id": taskID,
		"actor":   actor,
	})

	var out *domain.Task
	err := e.WithinTx(ctx, func(ctx context.Context, tx *Tx) error {
		task, err := tx.Stores.Tasks.GetForUpdate(ctx, taskID)
		if err != nil {
			return err
		}
		from := task.Status
		if err := fn(ctx, tx, task); err != nil {
			return err
		}
		if err := tx.Stores.Tasks.Update(ctx, task); err != nil {
			return err
		}
		sp.SetAttribute("task.no", task.TaskNo)
		sp.SetAttribute("task.status", string(task.Status))
		e.logger.DebugContext(ctx, "task_transition",
			"action", name,
			"task_no", task.TaskNo,
			"actor", actor,
			"from", string(from),
			"to", string(task.Status),
			"round", task.Round,
		)
		out = task
		return nil
	})
	tracing.EndSpan(sp, err)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// claimCurrent checks the task accepts approver actions and returns the
// current node and actor's pending record there.
func (e *Engine) claimCurrent(ctx context.Context, tx *Tx, task *domain.Task, actor string) (*ApprovalGraph, *domain.ApprovalNode, *domain.ApprovalRecord, error) {
	if err := task.CheckActionable(); err != nil {
		return nil, nil, nil, err
	}
	if task.CurrentNodeID == nil {
		return nil, nil, nil, domain.InvalidTransition("task %s has no current node", task.TaskNo)
	}
	graph, err := tx.Catalog.Graph(ctx, task.FlowID)
	if err != nil {
		return nil, nil, nil, err
	}
	node, ok := graph.NodeByID(*task.CurrentNodeID)
	if !ok {
		return nil, nil, nil, domain.NotFound("current node %s of task %s", *task.CurrentNodeID, task.TaskNo)
	}
	rec, err := tx.Ledger.Claim(ctx, task, node, actor)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, nil, domain.PermissionDenied("%s has no pending decision on task %s", actor, task.TaskNo)
		}
		return nil, nil, nil, err
	}
	return graph, node, rec, nil
}

// enter moves the task onto node in a new round and opens pending records
// for its resolved approvers.
func (e *Engine) enter(ctx context.Context, tx *Tx, task *domain.Task, node *domain.ApprovalNode, status domain.TaskStatus, now time.Time) error {
	approvers, err := tx.Resolver.Resolve(ctx, node)
	if err != nil {
		return err
	}
	if len(approvers) == 0 {
		return domain.Business("node %q of task %s resolved to no approvers", node.Name, task.TaskNo)
	}
	task.EnterNode(node, status, now)
	_, err = tx.Ledger.OpenPending(ctx, task, node, approvers)
	return err
}

// isComplete applies node's completion policy to the current round. ALL is
// judged against the round's roster rather than a fresh resolution.
func (e *Engine) isComplete(ctx context.Context, tx *Tx, task *domain.Task, node *domain.ApprovalNode) (bool, error) {
	switch node.Policy {
	case domain.PolicyAny:
		n, err := tx.Ledger.CountApproved(ctx, task, node)
		return n >= 1, err
	case domain.PolicyAll:
		roster, err := tx.Ledger.Roster(ctx, task, node)
		if err != nil || len(roster) == 0 {
			return false, err
		}
		approved, err := tx.Ledger.DistinctApprovedApprovers(ctx, task, node)
		if err != nil {
			return false, err
		}
		done := make(map[string]bool, len(approved))
		for _, id := range approved {
			done[id] = true
		}
		for _, id := range roster {
			if !done[id] {
				return false, nil
			}
		}
		return true, nil
	default:
		return false, fmt.Errorf("node %s has unknown completion policy %q", node.ID, node.Policy)
	}
}

func derefOr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
