package workflow

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"testing"

	"github.com/alexanderramin/signoff/internal/clock"
	"github.com/alexanderramin/signoff/internal/db"
	"github.com/alexanderramin/signoff/internal/domain"
	"github.com/alexanderramin/signoff/internal/repository"
	"github.com/alexanderramin/signoff/internal/testutil"
	"github.com/stretchr/testify/require"
)

type harness struct {
	t      *testing.T
	ctx    context.Context
	db     *sql.DB
	clock  *clock.Stepping
	logs   *bytes.Buffer
	engine *Engine
	stores *repository.Stores
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessOn(t, testutil.NewTestDB(t))
}

func newHarnessOn(t *testing.T, database *sql.DB) *harness {
	t.Helper()
	h := &harness{
		t:     t,
		ctx:   context.Background(),
		db:    database,
		clock: testutil.NewTestClock(),
		logs:  &bytes.Buffer{},
	}
	h.engine = h.engineWith(testutil.NewTestUoW(database))
	h.stores = repository.NewStores(database)
	return h
}

func (h *harness) engineWith(uow db.UnitOfWork) *Engine {
	logger := slog.New(slog.NewTextHandler(h.logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return NewEngine(uow, WithClock(h.clock), WithLogger(logger))
}

func (h *harness) addPrincipals(ids ...string) {
	h.t.Helper()
	for _, id := range ids {
		require.NoError(h.t, h.stores.Principals.CreatePrincipal(h.ctx, testutil.NewTestPrincipal(id)))
	}
}

func (h *harness) addRole(code string, members ...string) {
	h.t.Helper()
	require.NoError(h.t, h.stores.Principals.CreateRole(h.ctx, testutil.NewTestRole(code)))
	for _, id := range members {
		require.NoError(h.t, h.stores.Principals.AssignRole(h.ctx, code, id))
	}
}

func anyOf(order int, users ...string) domain.NodeDraft {
	return domain.NodeDraft{Order: order, Name: fmt.Sprintf("step %d", order), Policy: domain.PolicyAny, Approvers: domain.ByUser{IDs: users}}
}

func allOf(order int, users ...string) domain.NodeDraft {
	return domain.NodeDraft{Order: order, Name: fmt.Sprintf("step %d", order), Policy: domain.PolicyAll, Approvers: domain.ByUser{IDs: users}}
}

func draftOf(code string, nodes ...domain.NodeDraft) domain.FlowDraft {
	return domain.FlowDraft{Code: code, Name: "Flow " + code, TaskType: code, Nodes: nodes}
}

func (h *harness) publish(code string, nodes ...domain.NodeDraft) *ApprovalGraph {
	h.t.Helper()
	var g *ApprovalGraph
	err := h.engine.WithinTx(h.ctx, func(ctx context.Context, tx *Tx) error {
		var err error
		g, err = tx.Catalog.Publish(ctx, draftOf(code, nodes...), "admin")
		return err
	})
	require.NoError(h.t, err)
	return g
}

func (h *harness) createTask(creator, flowCode string) *domain.Task {
	h.t.Helper()
	task, err := h.engine.CreateTask(h.ctx, CreateTaskInput{
		Title:     "Laptop purchase",
		Type:      flowCode,
		FlowCode:  flowCode,
		CreatorID: creator,
	})
	require.NoError(h.t, err)
	return task
}

func (h *harness) submitted(creator, flowCode string) *domain.Task {
	h.t.Helper()
	task := h.createTask(creator, flowCode)
	task, err := h.engine.Submit(h.ctx, task.ID, creator)
	require.NoError(h.t, err)
	return task
}

func (h *harness) reload(task *domain.Task) *domain.Task {
	h.t.Helper()
	got, err := h.stores.Tasks.GetByID(h.ctx, task.ID)
	require.NoError(h.t, err)
	return got
}

// pendingAt returns approver ids with PENDING records at the task's
// current node in its current round.
func (h *harness) pendingAt(task *domain.Task) []string {
	h.t.Helper()
	task = h.reload(task)
	require.NotNil(h.t, task.CurrentNodeID)
	recs, err := h.stores.Records.ListRound(h.ctx, task.ID, *task.CurrentNodeID, task.Round)
	require.NoError(h.t, err)
	var ids []string
	for _, r := range recs {
		if r.IsPending() {
			ids = append(ids, r.ApproverID)
		}
	}
	return ids
}

func (h *harness) history(task *domain.Task) []*domain.ApprovalRecord {
	h.t.Helper()
	recs, err := h.stores.Records.ListByTask(h.ctx, task.ID)
	require.NoError(h.t, err)
	return recs
}

func (h *harness) approve(task *domain.Task, actor string) *domain.Task {
	h.t.Helper()
	out, err := h.engine.Approve(h.ctx, task.ID, actor, "ok")
	require.NoError(h.t, err, "approve by %s", actor)
	return out
}

func resultsBy(recs []*domain.ApprovalRecord, result domain.RecordResult) []string {
	var ids []string
	for _, r := range recs {
		if r.Result == result {
			ids = append(ids, r.ApproverID)
		}
	}
	return ids
}
