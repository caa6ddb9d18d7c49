package flowfile

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/signoff/internal/domain"
)

// Validate checks the file's structure before conversion and returns every
// problem found. Whether users and roles exist is checked at publish time.
func Validate(f *FlowFile) []error {
	var errs []error

	if strings.TrimSpace(f.Code) == "" {
		errs = append(errs, fmt.Errorf("code is required"))
	}
	if strings.TrimSpace(f.Name) == "" {
		errs = append(errs, fmt.Errorf("name is required"))
	}
	if strings.TrimSpace(f.TaskType) == "" {
		errs = append(errs, fmt.Errorf("task_type is required"))
	}
	if len(f.Nodes) == 0 {
		errs = append(errs, fmt.Errorf("at least one node is required"))
		return errs
	}

	explicit := 0
	for _, n := range f.Nodes {
		if n.Order != 0 {
			explicit++
		}
	}
	if explicit != 0 && explicit != len(f.Nodes) {
		errs = append(errs, fmt.Errorf("order must be set on every node or on none"))
	}

	seen := make(map[int]bool, len(f.Nodes))
	for i, n := range f.Nodes {
		prefix := fmt.Sprintf("nodes[%d]", i)
		if n.Order < 0 {
			errs = append(errs, fmt.Errorf("%s.order must be positive", prefix))
		} else if n.Order > 0 {
			if seen[n.Order] {
				errs = append(errs, fmt.Errorf("%s.order %d is duplicated", prefix, n.Order))
			}
			seen[n.Order] = true
		}
		if strings.TrimSpace(n.Name) == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
		}
		if _, err := domain.ParseCompletionPolicy(normalizePolicy(n.Policy)); err != nil {
			errs = append(errs, fmt.Errorf("%s.policy: invalid value %q (want ANY or ALL)", prefix, n.Policy))
		}
		if n.TimeoutHours != nil && *n.TimeoutHours <= 0 {
			errs = append(errs, fmt.Errorf("%s.timeout_hours must be positive", prefix))
		}
		errs = append(errs, validateApprovers(prefix+".approvers", n.Approvers)...)
	}
	if explicit == len(f.Nodes) {
		for want := 1; want <= len(f.Nodes); want++ {
			if !seen[want] {
				errs = append(errs, fmt.Errorf("node orders must run 1..%d without gaps, %d is missing", len(f.Nodes), want))
				break
			}
		}
	}

	return errs
}

func validateApprovers(prefix string, a ApproversImport) []error {
	var errs []error
	switch {
	case len(a.Users) > 0 && len(a.Roles) > 0:
		errs = append(errs, fmt.Errorf("%s: set users or roles, not both", prefix))
	case len(a.Users) == 0 && len(a.Roles) == 0:
		errs = append(errs, fmt.Errorf("%s: users or roles is required", prefix))
	}
	for i, id := range a.Users {
		if !domain.ValidPrincipalID(strings.TrimSpace(id)) {
			errs = append(errs, fmt.Errorf("%s.users[%d]: invalid id %q", prefix, i, id))
		}
	}
	for i, code := range a.Roles {
		if strings.TrimSpace(code) == "" {
			errs = append(errs, fmt.Errorf("%s.roles[%d] is empty", prefix, i))
		}
	}
	return errs
}

func normalizePolicy(p string) string {
	return strings.ToUpper(strings.TrimSpace(p))
}
