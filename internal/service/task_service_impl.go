package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/alexanderramin/signoff/internal/db"
	"github.com/alexanderramin/signoff/internal/domain"
	"github.com/alexanderramin/signoff/internal/workflow"
)

type taskService struct {
	engine   *workflow.Engine
	conn     db.DBTX
	observer UseCaseObserver
}

// NewTaskService serves task actions through engine. Reads go through conn.
func NewTaskService(engine *workflow.Engine, conn db.DBTX, observers ...UseCaseObserver) TaskService {
	return &taskService{
		engine:   engine,
		conn:     conn,
		observer: useCaseObserverOrNoop(observers),
	}
}

func (s *taskService) CreateTask(ctx context.Context, req CreateTaskRequest) (task *domain.Task, err error) {
	startedAt := time.Now()
	fields := map[string]any{"actor": req.CreatorID, "type": req.Type, "flow": req.FlowCode}
	defer func() {
		if task != nil {
			fields["task_no"] = task.TaskNo
		}
		observe(ctx, s.observer, "create-task", startedAt, fields, err)
	}()

	priority := domain.Priority(strings.ToUpper(strings.TrimSpace(req.Priority)))
	return s.engine.CreateTask(ctx, workflow.CreateTaskInput{
		Title:     req.Title,
		Content:   req.Content,
		Type:      req.Type,
		Priority:  priority,
		FlowCode:  strings.TrimSpace(req.FlowCode),
		CreatorID: req.CreatorID,
	})
}

func (s *taskService) SubmitTask(ctx context.Context, ref, actor string) (*domain.Task, error) {
	return s.run(ctx, "submit-task", ref, actor, nil, func(id string) (*domain.Task, error) {
		return s.engine.Submit(ctx, id, actor)
	})
}

func (s *taskService) Approve(ctx context.Context, ref, actor, comment string) (*domain.Task, error) {
	return s.run(ctx, "approve", ref, actor, nil, func(id string) (*domain.Task, error) {
		return s.engine.Approve(ctx, id, actor, comment)
	})
}

func (s *taskService) Reject(ctx context.Context, req RejectRequest) (*domain.Task, error) {
	fields := map[string]any{"target_order": req.TargetOrder}
	return s.run(ctx, "reject", req.TaskRef, req.Actor, fields, func(id string) (*domain.Task, error) {
		target := strings.TrimSpace(req.TargetNodeID)
		if target == "" {
			var err error
			if target, err = s.nodeIDAt(ctx, id, req.TargetOrder); err != nil {
				return nil, err
			}
		}
		return s.engine.Reject(ctx, id, req.Actor, target, req.Comment)
	})
}

func (s *taskService) Transfer(ctx context.Context, ref, actor, targetUserID, comment string) (*domain.Task, error) {
	fields := map[string]any{"to": targetUserID}
	return s.run(ctx, "transfer", ref, actor, fields, func(id string) (*domain.Task, error) {
		return s.engine.Transfer(ctx, id, actor, strings.TrimSpace(targetUserID), comment)
	})
}

func (s *taskService) WithdrawTask(ctx context.Context, ref, actor, reason string) (*domain.Task, error) {
	return s.run(ctx, "withdraw-task", ref, actor, nil, func(id string) (*domain.Task, error) {
		return s.engine.Withdraw(ctx, id, actor, reason)
	})
}

func (s *taskService) CancelTask(ctx context.Context, ref, actor string) (*domain.Task, error) {
	return s.run(ctx, "cancel-task", ref, actor, nil, func(id string) (*domain.Task, error) {
		return s.engine.Cancel(ctx, id, actor)
	})
}

// run resolves ref and reports the action to the observer.
func (s *taskService) run(ctx context.Context, name, ref, actor string, fields map[string]any, fn func(id string) (*domain.Task, error)) (task *domain.Task, err error) {
	startedAt := time.Now()
	if fields == nil {
		fields = make(map[string]any, 3)
	}
	fields["actor"] = actor
	fields["task"] = ref
	defer func() {
		if task != nil {
			fields["status"] = string(task.Status)
		}
		observe(ctx, s.observer, name, startedAt, fields, err)
	}()

	found, err := s.findTask(ctx, ref)
	if err != nil {
		return nil, err
	}
	return fn(found.ID)
}

// findTask looks ref up as a task id, then as a task number.
func (s *taskService) findTask(ctx context.Context, ref string) (*domain.Task, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, domain.Validation("task reference is required")
	}
	tasks := s.engine.Bind(s.conn).Stores.Tasks
	task, err := tasks.GetByID(ctx, ref)
	if err == nil {
		return task, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	return tasks.GetByNo(ctx, ref)
}

func (s *taskService) nodeIDAt(ctx context.Context, taskID string, order int) (string, error) {
	if order <= 0 {
		return "", domain.Validation("reject target node is required")
	}
	tx := s.engine.Bind(s.conn)
	task, err := tx.Stores.Tasks.GetByID(ctx, taskID)
	if err != nil {
		return "", err
	}
	graph, err := tx.Catalog.Graph(ctx, task.FlowID)
	if err != nil {
		return "", err
	}
	node, ok := graph.NodeAt(order)
	if !ok {
		return "", domain.Validation("flow %s has no node %d", graph.Flow().Code, order)
	}
	return node.ID, nil
}

func (s *taskService) GetTaskDetail(ctx context.Context, ref, viewer string) (detail *TaskDetail, err error) {
	startedAt := time.Now()
	fields := map[string]any{"task": ref, "viewer": viewer}
	defer func() { observe(ctx, s.observer, "get-task-detail", startedAt, fields, err) }()

	task, err := s.findTask(ctx, ref)
	if err != nil {
		return nil, err
	}
	tx := s.engine.Bind(s.conn)
	graph, err := tx.Catalog.Graph(ctx, task.FlowID)
	if err != nil {
		return nil, err
	}
	history, err := tx.Ledger.History(ctx, task.ID)
	if err != nil {
		return nil, err
	}

	detail = &TaskDetail{
		Task:        task,
		Flow:        graph.Flow(),
		Nodes:       graph.Nodes(),
		History:     history,
		CanWithdraw: task.CheckWithdraw(viewer) == nil,
		CanSubmit:   task.CheckSubmit(viewer) == nil,
		CanCancel:   task.CheckCancel(viewer) == nil,
	}
	if task.CurrentNodeID != nil && !task.IsTerminal() {
		if node, ok := graph.NodeByID(*task.CurrentNodeID); ok {
			detail.CurrentNode = node
			pending, err := tx.Ledger.PendingApprovers(ctx, task, node)
			if err != nil {
				return nil, err
			}
			detail.PendingApprovers = pending
			if task.Actionable() {
				for _, r := range pending {
					if r.ApproverID == viewer {
						detail.CanApprove = true
						break
					}
				}
			}
		}
	}
	return detail, nil
}

func (s *taskService) ListPending(ctx context.Context, approverID string, page domain.Page) (domain.PageResult[*domain.Task], error) {
	return s.list(ctx, "list-pending", approverID, func(tasks taskLister) (domain.PageResult[*domain.Task], error) {
		return tasks.ListPendingForApprover(ctx, approverID, page)
	})
}

func (s *taskService) ListCreated(ctx context.Context, creatorID string, page domain.Page) (domain.PageResult[*domain.Task], error) {
	return s.list(ctx, "list-created", creatorID, func(tasks taskLister) (domain.PageResult[*domain.Task], error) {
		return tasks.ListByCreator(ctx, creatorID, page)
	})
}

func (s *taskService) ListApproved(ctx context.Context, approverID string, page domain.Page) (domain.PageResult[*domain.Task], error) {
	return s.list(ctx, "list-approved", approverID, func(tasks taskLister) (domain.PageResult[*domain.Task], error) {
		return tasks.ListApprovedByApprover(ctx, approverID, page)
	})
}

func (s *taskService) ListByStatus(ctx context.Context, status domain.TaskStatus, page domain.Page) (domain.PageResult[*domain.Task], error) {
	return s.list(ctx, "list-by-status", string(status), func(tasks taskLister) (domain.PageResult[*domain.Task], error) {
		if _, err := domain.ParseTaskStatus(string(status)); err != nil {
			return domain.PageResult[*domain.Task]{}, err
		}
		return tasks.ListByStatus(ctx, status, page)
	})
}

type taskLister interface {
	ListByCreator(ctx context.Context, creatorID string, page domain.Page) (domain.PageResult[*domain.Task], error)
	ListByStatus(ctx context.Context, status domain.TaskStatus, page domain.Page) (domain.PageResult[*domain.Task], error)
	ListPendingForApprover(ctx context.Context, approverID string, page domain.Page) (domain.PageResult[*domain.Task], error)
	ListApprovedByApprover(ctx context.Context, approverID string, page domain.Page) (domain.PageResult[*domain.Task], error)
}

func (s *taskService) list(ctx context.Context, name, subject string, fn func(taskLister) (domain.PageResult[*domain.Task], error)) (res domain.PageResult[*domain.Task], err error) {
	startedAt := time.Now()
	fields := map[string]any{"subject": subject}
	defer func() {
		fields["total"] = res.Total
		observe(ctx, s.observer, name, startedAt, fields, err)
	}()
	return fn(s.engine.Bind(s.conn).Stores.Tasks)
}
