package workflow

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/alexanderramin/signoff/internal/clock"
	"github.com/alexanderramin/signoff/internal/domain"
	"github.com/alexanderramin/signoff/internal/repository"
	"github.com/google/uuid"
)

// Catalog stores immutable flow versions. Editing a flow publishes a new
// version and supersedes the previous active one.
type Catalog struct {
	flows repository.FlowRepo
	nodes repository.NodeRepo
	dir   repository.PrincipalRepo
	clock clock.Clock
}

func NewCatalog(flows repository.FlowRepo, nodes repository.NodeRepo, dir repository.PrincipalRepo, clk clock.Clock) *Catalog {
	return &Catalog{flows: flows, nodes: nodes, dir: dir, clock: clk}
}

// Create publishes version 1 of a new flow code.
func (c *Catalog) Create(ctx context.Context, draft domain.FlowDraft, actor string) (*ApprovalGraph, error) {
	latest, err := c.flows.LatestVersion(ctx, strings.TrimSpace(draft.Code))
	if err != nil {
		return nil, err
	}
	if latest > 0 {
		return nil, domain.Duplicate("flow code %q already exists", draft.Code)
	}
	g, err := c.Publish(ctx, draft, actor)
	if errors.Is(err, domain.ErrConcurrencyConflict) {
		// Another publisher took version 1 of this code first.
		return nil, &domain.Error{
			Kind:    domain.KindDuplicateResource,
			Message: fmt.Sprintf("flow code %q already exists", draft.Code),
			Err:     err,
		}
	}
	return g, err
}

// Revise publishes the next version of an existing flow code.
func (c *Catalog) Revise(ctx context.Context, draft domain.FlowDraft, actor string) (*ApprovalGraph, error) {
	latest, err := c.flows.LatestVersion(ctx, strings.TrimSpace(draft.Code))
	if err != nil {
		return nil, err
	}
	if latest == 0 {
		return nil, domain.NotFound("flow code %q does not exist", draft.Code)
	}
	return c.Publish(ctx, draft, actor)
}

// Publish validates draft and stores it as version latest+1, superseding
// any active version of the same code. Nothing is written when validation
// fails.
func (c *Catalog) Publish(ctx context.Context, draft domain.FlowDraft, actor string) (*ApprovalGraph, error) {
	draft, err := c.validate(ctx, draft)
	if err != nil {
		return nil, err
	}

	latest, err := c.flows.LatestVersion(ctx, draft.Code)
	if err != nil {
		return nil, err
	}
	if latest > 0 {
		prior, err := c.flows.GetActiveByCode(ctx, draft.Code)
		switch {
		case err == nil:
			if err := c.flows.Supersede(ctx, prior.ID); err != nil {
				return nil, err
			}
		case errors.Is(err, domain.ErrNotFound):
		default:
			return nil, err
		}
	}

	now := c.clock.Now()
	flow := &domain.FlowDefinition{
		ID:          uuid.New().String(),
		Code:        draft.Code,
		Name:        draft.Name,
		Description: draft.Description,
		TaskType:    draft.TaskType,
		Version:     latest + 1,
		Status:      domain.FlowActive,
		CreatedBy:   actor,
		CreatedAt:   now,
	}
	if err := c.flows.Create(ctx, flow); err != nil {
		return nil, err
	}

	nodes := make([]*domain.ApprovalNode, 0, len(draft.Nodes))
	for _, nd := range draft.Nodes {
		node := &domain.ApprovalNode{
			ID:           uuid.New().String(),
			FlowID:       flow.ID,
			Order:        nd.Order,
			Name:         nd.Name,
			Policy:       nd.Policy,
			Approvers:    nd.Approvers,
			TimeoutHours: nd.TimeoutHours,
			CreatedAt:    now,
		}
		if err := c.nodes.Create(ctx, node); err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return NewApprovalGraph(flow, nodes)
}

// validate normalizes draft and checks every node. The returned draft has
// nodes sorted by order.
func (c *Catalog) validate(ctx context.Context, draft domain.FlowDraft) (domain.FlowDraft, error) {
	draft.Code = strings.TrimSpace(draft.Code)
	draft.Name = strings.TrimSpace(draft.Name)
	draft.TaskType = strings.TrimSpace(draft.TaskType)
	switch {
	case draft.Code == "":
		return draft, domain.Validation("flow code is required")
	case draft.Name == "":
		return draft, domain.Validation("flow name is required")
	case draft.TaskType == "":
		return draft, domain.Validation("flow task type is required")
	case len(draft.Nodes) == 0:
		return draft, domain.Validation("flow %s must have at least one node", draft.Code)
	}

	nodes := append([]domain.NodeDraft(nil), draft.Nodes...)
	sort.SliceStable(nodes, func(i, j int) bool { return nodes[i].Order < nodes[j].Order })
	for i := range nodes {
		n := &nodes[i]
		if n.Order != i+1 {
			return draft, domain.Validation("flow %s: node orders must be 1..%d without gaps, found %d at position %d",
				draft.Code, len(nodes), n.Order, i+1)
		}
		n.Name = strings.TrimSpace(n.Name)
		if n.Name == "" {
			return draft, domain.Validation("flow %s: node %d needs a name", draft.Code, n.Order)
		}
		switch n.Policy {
		case domain.PolicyAny, domain.PolicyAll:
		default:
			return draft, domain.Validation("flow %s: node %d has unknown policy %q", draft.Code, n.Order, n.Policy)
		}
		if n.TimeoutHours != nil && *n.TimeoutHours <= 0 {
			return draft, domain.Validation("flow %s: node %d timeout must be positive", draft.Code, n.Order)
		}
		if err := c.validateApprovers(ctx, draft.Code, n); err != nil {
			return draft, err
		}
	}
	draft.Nodes = nodes
	return draft, nil
}

func (c *Catalog) validateApprovers(ctx context.Context, code string, n *domain.NodeDraft) error {
	if n.Approvers == nil || len(n.Approvers.Values()) == 0 {
		return domain.Validation("flow %s: node %d has no approvers", code, n.Order)
	}
	switch spec := n.Approvers.(type) {
	case domain.ByUser:
		for _, id := range spec.IDs {
			if _, err := c.dir.GetPrincipal(ctx, id); err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return domain.Validation("flow %s: node %d approver %q does not exist", code, n.Order, id)
				}
				return err
			}
		}
	case domain.ByRole:
		for _, rc := range spec.Codes {
			if _, err := c.dir.GetRole(ctx, rc); err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return domain.Validation("flow %s: node %d role %q does not exist", code, n.Order, rc)
				}
				return err
			}
		}
	}
	return nil
}

// Graph loads the node graph of one flow version.
func (c *Catalog) Graph(ctx context.Context, flowID string) (*ApprovalGraph, error) {
	flow, err := c.flows.GetByID(ctx, flowID)
	if err != nil {
		return nil, err
	}
	return c.graphOf(ctx, flow)
}

// GraphByCode loads a specific version of code, or the active version when
// version is zero.
func (c *Catalog) GraphByCode(ctx context.Context, code string, version int) (*ApprovalGraph, error) {
	var (
		flow *domain.FlowDefinition
		err  error
	)
	if version > 0 {
		flow, err = c.flows.GetByCodeVersion(ctx, code, version)
	} else {
		flow, err = c.flows.GetActiveByCode(ctx, code)
	}
	if err != nil {
		return nil, err
	}
	return c.graphOf(ctx, flow)
}

func (c *Catalog) graphOf(ctx context.Context, flow *domain.FlowDefinition) (*ApprovalGraph, error) {
	nodes, err := c.nodes.ListByFlow(ctx, flow.ID)
	if err != nil {
		return nil, err
	}
	return NewApprovalGraph(flow, nodes)
}

func (c *Catalog) LatestActive(ctx context.Context, code string) (*domain.FlowDefinition, error) {
	return c.flows.GetActiveByCode(ctx, code)
}

func (c *Catalog) LatestActiveByTaskType(ctx context.Context, taskType string) (*domain.FlowDefinition, error) {
	return c.flows.GetActiveByTaskType(ctx, taskType)
}

func (c *Catalog) List(ctx context.Context, activeOnly bool) ([]*domain.FlowDefinition, error) {
	return c.flows.List(ctx, activeOnly)
}

func (c *Catalog) Versions(ctx context.Context, code string) ([]*domain.FlowDefinition, error) {
	flows, err := c.flows.ListVersions(ctx, code)
	if err != nil {
		return nil, err
	}
	if len(flows) == 0 {
		return nil, domain.NotFound("flow code %q does not exist", code)
	}
	return flows, nil
}
