package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alexanderramin/signoff/internal/domain"
	"github.com/alexanderramin/signoff/internal/repository"
)

// Resolver turns a node's approver spec into concrete principal ids.
//
// Resolution is tolerant: malformed ids, unknown or inactive principals and
// unknown roles are logged and skipped. Only directory failures are
// returned. An empty result is valid; callers decide whether it is an error.
type Resolver struct {
	dir    repository.PrincipalRepo
	logger *slog.Logger
}

func NewResolver(dir repository.PrincipalRepo, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{dir: dir, logger: logger}
}

// Resolve returns the deduplicated approver ids for node in first-seen
// order.
func (r *Resolver) Resolve(ctx context.Context, node *domain.ApprovalNode) ([]string, error) {
	var ids []string
	seen := make(map[string]bool)
	add := func(id string) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	switch spec := node.Approvers.(type) {
	case domain.ByUser:
		for _, id := range spec.IDs {
			ok, err := r.usable(ctx, node, id)
			if err != nil {
				return nil, err
			}
			if ok {
				add(id)
			}
		}
	case domain.ByRole:
		for _, code := range spec.Codes {
			members, err := r.members(ctx, node, code)
			if err != nil {
				return nil, err
			}
			for _, id := range members {
				add(id)
			}
		}
	case nil:
		r.logger.WarnContext(ctx, "approver_spec_missing", "node_id", node.ID, "node", node.Name)
	}
	return ids, nil
}

func (r *Resolver) usable(ctx context.Context, node *domain.ApprovalNode, id string) (bool, error) {
	if !domain.ValidPrincipalID(id) {
		r.logger.WarnContext(ctx, "approver_skipped", "node_id", node.ID, "approver", id, "reason", "malformed id")
		return false, nil
	}
	p, err := r.dir.GetPrincipal(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		r.logger.WarnContext(ctx, "approver_skipped", "node_id", node.ID, "approver", id, "reason", "unknown principal")
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("resolving approver %s: %w", id, err)
	}
	if !p.Active {
		r.logger.WarnContext(ctx, "approver_skipped", "node_id", node.ID, "approver", id, "reason", "inactive principal")
		return false, nil
	}
	return true, nil
}

func (r *Resolver) members(ctx context.Context, node *domain.ApprovalNode, code string) ([]string, error) {
	if _, err := r.dir.GetRole(ctx, code); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			r.logger.WarnContext(ctx, "approver_role_skipped", "node_id", node.ID, "role", code, "reason", "unknown role")
			return nil, nil
		}
		return nil, fmt.Errorf("resolving role %s: %w", code, err)
	}
	members, err := r.dir.MembersOfRole(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("resolving role %s: %w", code, err)
	}
	return members, nil
}
