package formatter

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/alexanderramin/signoff/internal/domain"
	"github.com/alexanderramin/signoff/internal/service"
)

// FormatTaskPage renders one page of tasks as a table with a page footer.
func FormatTaskPage(title string, page domain.PageResult[*domain.Task]) string {
	rows := make([][]string, 0, len(page.Items))
	for _, t := range page.Items {
		node := "-"
		if t.CurrentNodeOrder != nil && !t.IsTerminal() && t.Status != domain.TaskDraft {
			node = strconv.Itoa(*t.CurrentNodeOrder)
		}
		rows = append(rows, []string{
			t.TaskNo,
			Truncate(t.Title, 40),
			t.Type,
			string(t.Priority),
			StatusIndicator(t.Status),
			node,
			t.CreatorID,
		})
	}

	var b strings.Builder
	b.WriteString(Header(title))
	b.WriteString("\n")
	b.WriteString(RenderTable([]string{"TASK", "TITLE", "TYPE", "PRIORITY", "STATUS", "NODE", "CREATOR"}, rows))
	if pages := page.Pages(); pages > 1 {
		b.WriteString(Dim(fmt.Sprintf("page %d of %d, %d tasks", page.Number, pages, page.Total)))
		b.WriteString("\n")
	}
	return b.String()
}

// FormatTaskDetail renders the detail view of one task as seen by viewer,
// with relative times measured from now.
func FormatTaskDetail(d *service.TaskDetail, viewer string, now time.Time) string {
	t := d.Task
	var b strings.Builder

	fmt.Fprintf(&b, "%s  %s\n", Bold(t.TaskNo), Bold(t.Title))
	fmt.Fprintf(&b, "%s  %s\n", StatusIndicator(t.Status), Dim(string(t.Priority)))
	fmt.Fprintf(&b, "%s %s  %s %s v%d\n", Dim("creator"), t.CreatorID, Dim("flow"), d.Flow.Code, d.Flow.Version)
	fmt.Fprintf(&b, "%s %s\n", Dim("created"), HumanTimestampFrom(t.CreatedAt, now))
	if strings.TrimSpace(t.Content) != "" {
		b.WriteString("\n" + t.Content + "\n")
	}

	b.WriteString("\n" + Header("Nodes") + "\n")
	rows := make([][]string, 0, len(d.Nodes))
	for _, n := range d.Nodes {
		marker := " "
		if d.CurrentNode != nil && n.ID == d.CurrentNode.ID {
			marker = paint(StyleBlue, "▶")
		}
		rows = append(rows, []string{
			marker + " " + strconv.Itoa(n.Order),
			n.Name,
			string(n.Policy),
			domain.DescribeApprovers(n.Approvers),
		})
	}
	b.WriteString(RenderTable([]string{"#", "NODE", "POLICY", "APPROVERS"}, rows))

	if len(d.PendingApprovers) > 0 {
		names := make([]string, len(d.PendingApprovers))
		for i, r := range d.PendingApprovers {
			names[i] = r.ApproverName
		}
		fmt.Fprintf(&b, "\n%s %s\n", Dim("waiting on"), strings.Join(names, ", "))
	}

	if actions := availableActions(d); len(actions) > 0 {
		fmt.Fprintf(&b, "%s %s\n", Dim(viewer+" can"), strings.Join(actions, ", "))
	}

	if len(d.History) > 0 {
		b.WriteString("\n" + FormatHistory(d.History, d.Nodes))
	}
	return b.String()
}

func availableActions(d *service.TaskDetail) []string {
	var actions []string
	if d.CanSubmit {
		actions = append(actions, "submit")
	}
	if d.CanApprove {
		actions = append(actions, "approve", "reject", "transfer")
	}
	if d.CanWithdraw {
		actions = append(actions, "withdraw")
	}
	if d.CanCancel {
		actions = append(actions, "cancel")
	}
	return actions
}

// FormatHistory renders ledger entries in the order given.
func FormatHistory(records []*domain.ApprovalRecord, nodes []*domain.ApprovalNode) string {
	names := make(map[string]string, len(nodes))
	for _, n := range nodes {
		names[n.ID] = n.Name
	}
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		when := "-"
		if r.ApprovalTime != nil {
			when = r.ApprovalTime.Format("2006-01-02 15:04")
		}
		rows = append(rows, []string{
			strconv.Itoa(r.NodeOrder),
			r.ApproverName,
			string(r.Action),
			ResultIndicator(r.Result),
			detailOf(r, names),
			when,
		})
	}
	return Header("History") + "\n" + RenderTable([]string{"#", "APPROVER", "ACTION", "RESULT", "DETAIL", "AT"}, rows)
}

func detailOf(r *domain.ApprovalRecord, nodeNames map[string]string) string {
	var parts []string
	if r.TransferToUserID != nil {
		parts = append(parts, "to "+*r.TransferToUserID)
	}
	if r.RejectToNodeID != nil {
		name := nodeNames[*r.RejectToNodeID]
		if name == "" {
			name = ShortID(*r.RejectToNodeID)
		}
		parts = append(parts, "back to "+name)
	}
	if c := strings.TrimSpace(r.Comment); c != "" {
		parts = append(parts, fmt.Sprintf("%q", Truncate(c, 40)))
	}
	return orDash(strings.Join(parts, " "))
}

// FormatTaskResult is the one-line confirmation printed after an action.
func FormatTaskResult(verb string, t *domain.Task) string {
	return fmt.Sprintf("%s %s %s", verb, Bold(t.TaskNo), StatusIndicator(t.Status))
}
