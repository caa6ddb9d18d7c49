package formatter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alexanderramin/signoff/internal/domain"
	"github.com/alexanderramin/signoff/internal/service"
)

// FormatFlowList renders flow versions as a table.
func FormatFlowList(flows []*domain.FlowDefinition) string {
	rows := make([][]string, 0, len(flows))
	for _, f := range flows {
		status := paint(StyleGreen, string(f.Status))
		if f.Status != domain.FlowActive {
			status = Dim(string(f.Status))
		}
		rows = append(rows, []string{
			f.Code,
			"v" + strconv.Itoa(f.Version),
			f.Name,
			f.TaskType,
			status,
			f.CreatedAt.Format("2006-01-02"),
		})
	}
	return RenderTable([]string{"CODE", "VERSION", "NAME", "TASK TYPE", "STATUS", "CREATED"}, rows)
}

// FormatFlowDetail renders one flow version and its nodes.
func FormatFlowDetail(d *service.FlowDetail) string {
	var b strings.Builder
	f := d.Flow
	fmt.Fprintf(&b, "%s v%d  %s\n", Bold(f.Code), f.Version, f.Name)
	fmt.Fprintf(&b, "%s %s  %s %s  %s %s\n",
		Dim("type"), f.TaskType, Dim("status"), f.Status, Dim("by"), orDash(f.CreatedBy))
	if strings.TrimSpace(f.Description) != "" {
		b.WriteString(f.Description + "\n")
	}
	b.WriteString("\n")

	rows := make([][]string, 0, len(d.Nodes))
	for _, n := range d.Nodes {
		timeout := "-"
		if n.TimeoutHours != nil {
			timeout = strconv.Itoa(*n.TimeoutHours) + "h"
		}
		rows = append(rows, []string{
			strconv.Itoa(n.Order),
			n.Name,
			string(n.Policy),
			domain.DescribeApprovers(n.Approvers),
			timeout,
		})
	}
	b.WriteString(RenderTable([]string{"#", "NODE", "POLICY", "APPROVERS", "TIMEOUT"}, rows))
	return b.String()
}
