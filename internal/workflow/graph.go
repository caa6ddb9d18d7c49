package workflow

import (
	"sort"

	"github.com/alexanderramin/signoff/internal/domain"
)

// ApprovalGraph is the read-only node sequence of one flow version.
type ApprovalGraph struct {
	flow  *domain.FlowDefinition
	nodes []*domain.ApprovalNode
	byID  map[string]*domain.ApprovalNode
}

// NewApprovalGraph orders nodes and checks they form the dense sequence
// 1..N. An empty node list is allowed here; FirstNode reports it.
func NewApprovalGraph(flow *domain.FlowDefinition, nodes []*domain.ApprovalNode) (*ApprovalGraph, error) {
	sorted := append([]*domain.ApprovalNode(nil), nodes...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })

	byID := make(map[string]*domain.ApprovalNode, len(sorted))
	for i, n := range sorted {
		if n.Order != i+1 {
			return nil, domain.Validation("flow %s v%d: node orders are not contiguous at %d", flow.Code, flow.Version, n.Order)
		}
		byID[n.ID] = n
	}
	return &ApprovalGraph{flow: flow, nodes: sorted, byID: byID}, nil
}

func (g *ApprovalGraph) Flow() *domain.FlowDefinition { return g.flow }

// Nodes returns the nodes in order. The slice is a copy.
func (g *ApprovalGraph) Nodes() []*domain.ApprovalNode {
	return append([]*domain.ApprovalNode(nil), g.nodes...)
}

func (g *ApprovalGraph) Len() int { return len(g.nodes) }

// FirstNode returns the order-1 node, or a business error when the flow has
// no nodes.
func (g *ApprovalGraph) FirstNode() (*domain.ApprovalNode, error) {
	if len(g.nodes) == 0 {
		return nil, domain.Business("flow %s v%d has no approval nodes", g.flow.Code, g.flow.Version)
	}
	return g.nodes[0], nil
}

func (g *ApprovalGraph) NodeAt(order int) (*domain.ApprovalNode, bool) {
	if order < 1 || order > len(g.nodes) {
		return nil, false
	}
	return g.nodes[order-1], true
}

// NextNode returns the node after order, or false at the end of the flow.
func (g *ApprovalGraph) NextNode(order int) (*domain.ApprovalNode, bool) {
	return g.NodeAt(order + 1)
}

func (g *ApprovalGraph) NodeByID(id string) (*domain.ApprovalNode, bool) {
	n, ok := g.byID[id]
	return n, ok
}
