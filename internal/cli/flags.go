package cli

import (
	"strings"

	"github.com/alexanderramin/signoff/internal/domain"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// listView selects which personal task list "task list" shows.
type listView string

const (
	viewPending  listView = "pending"
	viewCreated  listView = "created"
	viewApproved listView = "approved"
)

var _ pflag.Value = (*listView)(nil)

func (v *listView) String() string { return string(*v) }

func (v *listView) Set(s string) error {
	switch lv := listView(strings.ToLower(strings.TrimSpace(s))); lv {
	case viewPending, viewCreated, viewApproved:
		*v = lv
		return nil
	}
	return domain.Validation("unknown view %q (want pending, created or approved)", s)
}

func (v *listView) Type() string { return "view" }

// flagError classifies flag parsing failures as validation errors.
func flagError(_ *cobra.Command, err error) error {
	return &domain.Error{Kind: domain.KindValidation, Message: err.Error(), Err: err}
}
