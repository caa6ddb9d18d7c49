package service

import (
	"context"
	"strings"
	"time"

	"github.com/alexanderramin/signoff/internal/clock"
	"github.com/alexanderramin/signoff/internal/domain"
	"github.com/alexanderramin/signoff/internal/repository"
)

type directoryService struct {
	dir      repository.PrincipalRepo
	clock    clock.Clock
	observer UseCaseObserver
}

func NewDirectoryService(dir repository.PrincipalRepo, clk clock.Clock, observers ...UseCaseObserver) DirectoryService {
	if clk == nil {
		clk = clock.System{}
	}
	return &directoryService{dir: dir, clock: clk, observer: useCaseObserverOrNoop(observers)}
}

func (s *directoryService) AddPrincipal(ctx context.Context, id, displayName string) (p *domain.Principal, err error) {
	startedAt := time.Now()
	defer func() { observe(ctx, s.observer, "add-principal", startedAt, map[string]any{"principal": id}, err) }()

	id = strings.TrimSpace(id)
	if !domain.ValidPrincipalID(id) {
		return nil, domain.Validation("invalid principal id %q", id)
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = id
	}
	p = &domain.Principal{ID: id, DisplayName: displayName, Active: true, CreatedAt: s.clock.Now()}
	if err = s.dir.CreatePrincipal(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *directoryService) AddRole(ctx context.Context, code, name string) (r *domain.Role, err error) {
	startedAt := time.Now()
	defer func() { observe(ctx, s.observer, "add-role", startedAt, map[string]any{"role": code}, err) }()

	code = strings.TrimSpace(code)
	if !domain.ValidPrincipalID(code) {
		return nil, domain.Validation("invalid role code %q", code)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = code
	}
	r = &domain.Role{Code: code, Name: name, CreatedAt: s.clock.Now()}
	if err = s.dir.CreateRole(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *directoryService) AssignRole(ctx context.Context, roleCode, principalID string) (err error) {
	startedAt := time.Now()
	fields := map[string]any{"role": roleCode, "principal": principalID}
	defer func() { observe(ctx, s.observer, "assign-role", startedAt, fields, err) }()

	if _, err = s.dir.GetRole(ctx, roleCode); err != nil {
		return err
	}
	if _, err = s.dir.GetPrincipal(ctx, principalID); err != nil {
		return err
	}
	return s.dir.AssignRole(ctx, roleCode, principalID)
}

func (s *directoryService) ListPrincipals(ctx context.Context) ([]*domain.Principal, error) {
	return s.dir.ListPrincipals(ctx)
}

func (s *directoryService) ListRoles(ctx context.Context) ([]*domain.Role, error) {
	return s.dir.ListRoles(ctx)
}

func (s *directoryService) RoleMembers(ctx context.Context, roleCode string) ([]string, error) {
	if _, err := s.dir.GetRole(ctx, roleCode); err != nil {
		return nil, err
	}
	return s.dir.MembersOfRole(ctx, roleCode)
}
