package formatter

import "github.com/alexanderramin/signoff/internal/domain"

// FormatPrincipalList renders principals as a table.
func FormatPrincipalList(principals []*domain.Principal) string {
	rows := make([][]string, 0, len(principals))
	for _, p := range principals {
		state := paint(StyleGreen, "active")
		if !p.Active {
			state = Dim("inactive")
		}
		rows = append(rows, []string{p.ID, p.DisplayName, state})
	}
	return RenderTable([]string{"ID", "NAME", "STATE"}, rows)
}

// FormatRoleList renders roles as a table.
func FormatRoleList(roles []*domain.Role) string {
	rows := make([][]string, 0, len(roles))
	for _, r := range roles {
		rows = append(rows, []string{r.Code, r.Name})
	}
	return RenderTable([]string{"CODE", "NAME"}, rows)
}
