package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/alexanderramin/signoff/internal/db"
	"github.com/alexanderramin/signoff/internal/domain"
)

// SQLPrincipalRepo implements PrincipalRepo over any supported SQL dialect.
type SQLPrincipalRepo struct {
	db db.DBTX
}

// NewSQLPrincipalRepo creates a new SQLPrincipalRepo.
func NewSQLPrincipalRepo(conn db.DBTX) *SQLPrincipalRepo {
	return &SQLPrincipalRepo{db: conn}
}

func (r *SQLPrincipalRepo) CreatePrincipal(ctx context.Context, p *domain.Principal) error {
	query := `INSERT INTO principals (id, display_name, active, created_at) VALUES (?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, p.ID, p.DisplayName, boolToInt(p.Active), formatTime(p.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Duplicate("principal %q already exists", p.ID)
		}
		return fmt.Errorf("inserting principal: %w", err)
	}
	return nil
}

func (r *SQLPrincipalRepo) GetPrincipal(ctx context.Context, id string) (*domain.Principal, error) {
	query := `SELECT id, display_name, active, created_at FROM principals WHERE id = ?`
	p, err := scanPrincipal(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("principal", id)
		}
		return nil, fmt.Errorf("getting principal %s: %w", id, err)
	}
	return p, nil
}

func (r *SQLPrincipalRepo) ListPrincipals(ctx context.Context) ([]*domain.Principal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, display_name, active, created_at FROM principals ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing principals: %w", err)
	}
	defer rows.Close()

	var out []*domain.Principal
	for rows.Next() {
		p, err := scanPrincipal(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning principal row: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DisplayNames maps each known id to its display name. Unknown ids are
// absent from the result.
func (r *SQLPrincipalRepo) DisplayNames(ctx context.Context, ids []string) (map[string]string, error) {
	names := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, display_name FROM principals WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("looking up display names: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scanning display name: %w", err)
		}
		names[id] = name
	}
	return names, rows.Err()
}

func (r *SQLPrincipalRepo) CreateRole(ctx context.Context, role *domain.Role) error {
	query := `INSERT INTO roles (code, name, created_at) VALUES (?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, role.Code, role.Name, formatTime(role.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Duplicate("role %q already exists", role.Code)
		}
		return fmt.Errorf("inserting role: %w", err)
	}
	return nil
}

func (r *SQLPrincipalRepo) GetRole(ctx context.Context, code string) (*domain.Role, error) {
	var (
		role      domain.Role
		createdAt string
	)
	err := r.db.QueryRowContext(ctx, `SELECT code, name, created_at FROM roles WHERE code = ?`, code).
		Scan(&role.Code, &role.Name, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("role", code)
		}
		return nil, fmt.Errorf("getting role %s: %w", code, err)
	}
	if role.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	return &role, nil
}

func (r *SQLPrincipalRepo) ListRoles(ctx context.Context) ([]*domain.Role, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT code, name, created_at FROM roles ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("listing roles: %w", err)
	}
	defer rows.Close()

	var out []*domain.Role
	for rows.Next() {
		var (
			role      domain.Role
			createdAt string
		)
		if err := rows.Scan(&role.Code, &role.Name, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning role row: %w", err)
		}
		if role.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		out = append(out, &role)
	}
	return out, rows.Err()
}

// AssignRole adds principalID to roleCode. Assigning twice is a no-op.
func (r *SQLPrincipalRepo) AssignRole(ctx context.Context, roleCode, principalID string) error {
	query := `INSERT INTO principal_roles (role_code, principal_id) VALUES (?, ?)
		ON CONFLICT (role_code, principal_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, roleCode, principalID); err != nil {
		return fmt.Errorf("assigning role %s to %s: %w", roleCode, principalID, err)
	}
	return nil
}

func (r *SQLPrincipalRepo) MembersOfRole(ctx context.Context, roleCode string) ([]string, error) {
	query := `SELECT p.id FROM principal_roles pr
		JOIN principals p ON p.id = pr.principal_id
		WHERE pr.role_code = ? AND p.active = 1
		ORDER BY p.id`
	rows, err := r.db.QueryContext(ctx, query, roleCode)
	if err != nil {
		return nil, fmt.Errorf("listing members of role %s: %w", roleCode, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning role member: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanPrincipal(s rowScanner) (*domain.Principal, error) {
	var (
		p         domain.Principal
		active    int
		createdAt string
	)
	if err := s.Scan(&p.ID, &p.DisplayName, &active, &createdAt); err != nil {
		return nil, err
	}
	p.Active = intToBool(active)
	var err error
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	return &p, nil
}
