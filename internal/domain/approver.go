package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

type ApproverKind string

const (
	ApproverByUser ApproverKind = "USER"
	ApproverByRole ApproverKind = "ROLE"
)

// ApproverSpec names who must act on a node. It is a closed union of
// ByUser and ByRole; the unexported method keeps other packages from
// adding variants.
type ApproverSpec interface {
	Kind() ApproverKind
	Values() []string
	isApproverSpec()
}

// ByUser lists principal ids literally.
type ByUser struct {
	IDs []string
}

func (ByUser) Kind() ApproverKind { return ApproverByUser }
func (b ByUser) Values() []string { return append([]string(nil), b.IDs...) }
func (ByUser) isApproverSpec() {}

// ByRole expands to the current members of each role code.
type ByRole struct {
	Codes []string
}

func (ByRole) Kind() ApproverKind { return ApproverByRole }
func (b ByRole) Values() []string { return append([]string(nil), b.Codes...) }
func (ByRole) isApproverSpec() {}

// NewApproverSpec builds the variant named by kind.
func NewApproverSpec(kind ApproverKind, values []string) (ApproverSpec, error) {
	switch kind {
	case ApproverByUser:
		return ByUser{IDs: values}, nil
	case ApproverByRole:
		return ByRole{Codes: values}, nil
	default:
		return nil, Validation("unknown approver kind %q (want USER or ROLE)", kind)
	}
}

// EncodeApproverValues serializes spec values for storage as a JSON array.
func EncodeApproverValues(spec ApproverSpec) (string, error) {
	b, err := json.Marshal(spec.Values())
	if err != nil {
		return "", fmt.Errorf("encoding approver values: %w", err)
	}
	return string(b), nil
}

// DecodeApproverSpec is the inverse of EncodeApproverValues.
func DecodeApproverSpec(kind string, raw string) (ApproverSpec, error) {
	var values []string
	if strings.TrimSpace(raw) != "" {
		if err := json.Unmarshal([]byte(raw), &values); err != nil {
			return nil, fmt.Errorf("decoding approver values: %w", err)
		}
	}
	return NewApproverSpec(ApproverKind(kind), values)
}

// DescribeApprovers renders a spec for display, e.g. "role:finance,legal".
func DescribeApprovers(spec ApproverSpec) string {
	if spec == nil {
		return "-"
	}
	prefix := "user"
	if spec.Kind() == ApproverByRole {
		prefix = "role"
	}
	return prefix + ":" + strings.Join(spec.Values(), ",")
}
