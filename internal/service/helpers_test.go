package service

import (
	"context"
	"sync"
	"testing"

	"github.com/alexanderramin/signoff/internal/domain"
	"github.com/alexanderramin/signoff/internal/repository"
	"github.com/alexanderramin/signoff/internal/testutil"
	"github.com/alexanderramin/signoff/internal/workflow"
	"github.com/stretchr/testify/require"
)

// recordingObserver keeps every event it sees.
type recordingObserver struct {
	mu     sync.Mutex
	events []UseCaseEvent
}

func (r *recordingObserver) ObserveUseCase(_ context.Context, event UseCaseEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingObserver) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Name
	}
	return out
}

func (r *recordingObserver) last() UseCaseEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

type services struct {
	tasks    TaskService
	flows    FlowService
	dir      DirectoryService
	stores   *repository.Stores
	observer *recordingObserver
}

func setupServices(t *testing.T) *services {
	t.Helper()
	database := testutil.NewTestDB(t)
	clk := testutil.NewTestClock()
	engine := workflow.NewEngine(testutil.NewTestUoW(database), workflow.WithClock(clk))
	stores := repository.NewStores(database)
	obs := &recordingObserver{}
	return &services{
		tasks:    NewTaskService(engine, database, obs),
		flows:    NewFlowService(engine, database, obs),
		dir:      NewDirectoryService(stores.Principals, clk, obs),
		stores:   stores,
		observer: obs,
	}
}

func (s *services) addPrincipals(t *testing.T, ids ...string) {
	t.Helper()
	for _, id := range ids {
		_, err := s.dir.AddPrincipal(context.Background(), id, "User "+id)
		require.NoError(t, err)
	}
}

// expenseFlow publishes a two-step flow: one of {manager} then all of
// {cfo, controller}.
func (s *services) expenseFlow(t *testing.T) *FlowDetail {
	t.Helper()
	s.addPrincipals(t, "alice", "manager", "cfo", "controller")
	detail, err := s.flows.PublishFlow(context.Background(), domain.FlowDraft{
		Code:     "expense",
		Name:     "Expense claim",
		TaskType: "expense",
		Nodes: []domain.NodeDraft{
			{Order: 1, Name: "Manager", Policy: domain.PolicyAny, Approvers: domain.ByUser{IDs: []string{"manager"}}},
			{Order: 2, Name: "Finance", Policy: domain.PolicyAll, Approvers: domain.ByUser{IDs: []string{"cfo", "controller"}}},
		},
	}, "admin")
	require.NoError(t, err)
	return detail
}
