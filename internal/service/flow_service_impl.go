package service

import (
	"context"
	"strings"
	"time"

	"github.com/alexanderramin/signoff/internal/db"
	"github.com/alexanderramin/signoff/internal/domain"
	"github.com/alexanderramin/signoff/internal/workflow"
)

type flowService struct {
	engine   *workflow.Engine
	conn     db.DBTX
	observer UseCaseObserver
}

func NewFlowService(engine *workflow.Engine, conn db.DBTX, observers ...UseCaseObserver) FlowService {
	return &flowService{engine: engine, conn: conn, observer: useCaseObserverOrNoop(observers)}
}

func (s *flowService) PublishFlow(ctx context.Context, draft domain.FlowDraft, actor string) (*FlowDetail, error) {
	return s.publish(ctx, "publish-flow", draft, actor, (*workflow.Catalog).Create)
}

func (s *flowService) UpdateFlow(ctx context.Context, draft domain.FlowDraft, actor string) (*FlowDetail, error) {
	return s.publish(ctx, "update-flow", draft, actor, (*workflow.Catalog).Revise)
}

type publishFunc func(c *workflow.Catalog, ctx context.Context, draft domain.FlowDraft, actor string) (*workflow.ApprovalGraph, error)

func (s *flowService) publish(ctx context.Context, name string, draft domain.FlowDraft, actor string, fn publishFunc) (detail *FlowDetail, err error) {
	startedAt := time.Now()
	fields := map[string]any{"flow": draft.Code, "actor": actor, "node_count": len(draft.Nodes)}
	defer func() {
		if detail != nil {
			fields["version"] = detail.Flow.Version
		}
		observe(ctx, s.observer, name, startedAt, fields, err)
	}()

	err = s.engine.WithinTx(ctx, func(ctx context.Context, tx *workflow.Tx) error {
		g, err := fn(tx.Catalog, ctx, draft, actor)
		if err != nil {
			return err
		}
		detail = flowDetailOf(g)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return detail, nil
}

func (s *flowService) GetFlowDetail(ctx context.Context, code string, version int) (detail *FlowDetail, err error) {
	startedAt := time.Now()
	code = strings.TrimSpace(code)
	fields := map[string]any{"flow": code, "version": version}
	defer func() {
		if detail != nil {
			fields["version"] = detail.Flow.Version
		}
		observe(ctx, s.observer, "get-flow-detail", startedAt, fields, err)
	}()

	catalog := s.engine.Bind(s.conn).Catalog
	if version <= 0 {
		flow, err := catalog.LatestActive(ctx, code)
		if err != nil {
			return nil, err
		}
		version = flow.Version
	}
	g, err := catalog.GraphByCode(ctx, code, version)
	if err != nil {
		return nil, err
	}
	return flowDetailOf(g), nil
}

func (s *flowService) ListFlows(ctx context.Context, activeOnly bool) ([]*domain.FlowDefinition, error) {
	return s.listFlows(ctx, "list-flows", map[string]any{"active_only": activeOnly}, func(c *workflow.Catalog) ([]*domain.FlowDefinition, error) {
		return c.List(ctx, activeOnly)
	})
}

func (s *flowService) ListVersions(ctx context.Context, code string) ([]*domain.FlowDefinition, error) {
	code = strings.TrimSpace(code)
	return s.listFlows(ctx, "list-flow-versions", map[string]any{"flow": code}, func(c *workflow.Catalog) ([]*domain.FlowDefinition, error) {
		return c.Versions(ctx, code)
	})
}

func (s *flowService) listFlows(ctx context.Context, name string, fields map[string]any, fn func(*workflow.Catalog) ([]*domain.FlowDefinition, error)) (flows []*domain.FlowDefinition, err error) {
	startedAt := time.Now()
	defer func() {
		fields["count"] = len(flows)
		observe(ctx, s.observer, name, startedAt, fields, err)
	}()
	return fn(s.engine.Bind(s.conn).Catalog)
}
