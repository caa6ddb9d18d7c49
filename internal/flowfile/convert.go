package flowfile

import (
	"errors"
	"strings"

	"github.com/alexanderramin/signoff/internal/domain"
)

// Convert turns a file into a publishable draft. It validates first and
// reports all problems as one VALIDATION error.
func Convert(f *FlowFile) (domain.FlowDraft, error) {
	if errs := Validate(f); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return domain.FlowDraft{}, invalid(errors.Join(errs...), "invalid flow file: %s", strings.Join(msgs, "; "))
	}

	draft := domain.FlowDraft{
		Code:        strings.TrimSpace(f.Code),
		Name:        strings.TrimSpace(f.Name),
		Description: strings.TrimSpace(f.Description),
		TaskType:    strings.TrimSpace(f.TaskType),
		Nodes:       make([]domain.NodeDraft, 0, len(f.Nodes)),
	}
	for i, n := range f.Nodes {
		order := n.Order
		if order == 0 {
			order = i + 1
		}
		policy, err := domain.ParseCompletionPolicy(normalizePolicy(n.Policy))
		if err != nil {
			return domain.FlowDraft{}, err
		}
		var spec domain.ApproverSpec
		if len(n.Approvers.Users) > 0 {
			spec = domain.ByUser{IDs: trimAll(n.Approvers.Users)}
		} else {
			spec = domain.ByRole{Codes: trimAll(n.Approvers.Roles)}
		}
		draft.Nodes = append(draft.Nodes, domain.NodeDraft{
			Order:        order,
			Name:         strings.TrimSpace(n.Name),
			Policy:       policy,
			Approvers:    spec,
			TimeoutHours: n.TimeoutHours,
		})
	}
	return draft, nil
}

// LoadDraft reads, validates and converts the flow file at path.
func LoadDraft(path string) (domain.FlowDraft, error) {
	f, err := Load(path)
	if err != nil {
		return domain.FlowDraft{}, err
	}
	return Convert(f)
}

func trimAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.TrimSpace(s)
	}
	return out
}
