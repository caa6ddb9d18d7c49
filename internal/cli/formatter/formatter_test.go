package formatter

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/alexanderramin/signoff/internal/domain"
	"github.com/alexanderramin/signoff/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ansiPattern matches ANSI escape sequences.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

func stripANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

func usePlain(t *testing.T) {
	t.Helper()
	SetPlain(true)
	t.Cleanup(func() { SetPlain(false) })
}

var now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func TestRenderTable_AlignsColumns(t *testing.T) {
	usePlain(t)
	out := RenderTable([]string{"A", "LONGER"}, [][]string{{"xyz", "1"}, {"q"}})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "A    LONGER", lines[0])
	assert.Equal(t, "───  ──────", lines[1])
	assert.Equal(t, "xyz  1", lines[2])
	assert.Equal(t, "q    ", lines[3])
}

func TestRenderTable_EmptyRows(t *testing.T) {
	usePlain(t)
	out := RenderTable([]string{"ID"}, nil)
	assert.Contains(t, out, "(none)")
	assert.Empty(t, RenderTable(nil, nil))
}

func TestStatusIndicator_PlainHasNoEscapes(t *testing.T) {
	usePlain(t)
	for _, s := range domain.AllTaskStatuses {
		got := StatusIndicator(s)
		assert.Equal(t, stripANSI(got), got)
		assert.Contains(t, got, string(s))
	}
}

func TestHumanTimestampFrom(t *testing.T) {
	assert.Equal(t, "Just now", HumanTimestampFrom(now.Add(-10*time.Second), now))
	assert.Equal(t, "5m ago", HumanTimestampFrom(now.Add(-5*time.Minute), now))
	assert.Equal(t, "3h ago", HumanTimestampFrom(now.Add(-3*time.Hour), now))
	assert.Equal(t, "Jun 13, 2025 12:00", HumanTimestampFrom(now.Add(-48*time.Hour), now))
}

func TestTruncateAndShortID(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "ab…", Truncate("abcdef", 3))
	assert.Equal(t, "12345678", ShortID("12345678-aaaa"))
	assert.Equal(t, "-", ShortID(""))
}

func sampleDetail() *service.TaskDetail {
	order := 2
	nodeID := "node-2"
	toNode := "node-1"
	at := now.Add(-time.Hour)
	nodes := []*domain.ApprovalNode{
		{ID: "node-1", Order: 1, Name: "Manager", Policy: domain.PolicyAny, Approvers: domain.ByUser{IDs: []string{"mgr"}}},
		{ID: "node-2", Order: 2, Name: "Finance", Policy: domain.PolicyAll, Approvers: domain.ByRole{Codes: []string{"finance"}}},
	}
	return &service.TaskDetail{
		Task: &domain.Task{
			TaskNo: "TK20250615000001", Title: "Laptop", Priority: domain.PriorityHigh,
			Status: domain.TaskInProgress, CreatorID: "alice",
			CurrentNodeID: &nodeID, CurrentNodeOrder: &order, CreatedAt: now.Add(-2 * time.Hour),
		},
		Flow:        &domain.FlowDefinition{Code: "expense", Version: 3},
		Nodes:       nodes,
		CurrentNode: nodes[1],
		PendingApprovers: []*domain.ApprovalRecord{
			{ApproverID: "cfo", ApproverName: "Chief Financial Officer", Result: domain.ResultPending},
		},
		History: []*domain.ApprovalRecord{
			{NodeOrder: 2, ApproverName: "Bob", Action: domain.ActionReject, Result: domain.ResultRejected,
				RejectToNodeID: &toNode, Comment: "missing receipt", ApprovalTime: &at},
		},
		CanApprove: true,
	}
}

func TestFormatTaskDetail(t *testing.T) {
	usePlain(t)
	out := FormatTaskDetail(sampleDetail(), "cfo", now)

	assert.Contains(t, out, "TK20250615000001  Laptop")
	assert.Contains(t, out, "IN_PROGRESS")
	assert.Contains(t, out, "expense v3")
	assert.Contains(t, out, "2h ago")
	assert.Contains(t, out, "▶ 2")
	assert.Contains(t, out, "role:finance")
	assert.Contains(t, out, "waiting on Chief Financial Officer")
	assert.Contains(t, out, "cfo can approve, reject, transfer")
	assert.Contains(t, out, `back to Manager "missing receipt"`)
}

func TestFormatTaskPage_Footer(t *testing.T) {
	usePlain(t)
	order := 1
	page := domain.PageResult[*domain.Task]{
		Items: []*domain.Task{
			{TaskNo: "TK1", Title: "One", Type: "expense", Priority: domain.PriorityNormal,
				Status: domain.TaskPending, CreatorID: "alice", CurrentNodeOrder: &order},
		},
		Total: 45, Number: 2, Size: 20,
	}
	out := FormatTaskPage("pending", page)
	assert.Contains(t, out, "PENDING")
	assert.Contains(t, out, "TK1")
	assert.Contains(t, out, "page 2 of 3, 45 tasks")
}

func TestFormatFlowDetail(t *testing.T) {
	usePlain(t)
	hours := 24
	out := FormatFlowDetail(&service.FlowDetail{
		Flow: &domain.FlowDefinition{Code: "leave", Version: 2, Name: "Leave", TaskType: "leave", Status: domain.FlowActive},
		Nodes: []*domain.ApprovalNode{
			{Order: 1, Name: "Lead", Policy: domain.PolicyAny, Approvers: domain.ByUser{IDs: []string{"a", "b"}}, TimeoutHours: &hours},
		},
	})
	assert.Contains(t, out, "leave v2  Leave")
	assert.Contains(t, out, "user:a,b")
	assert.Contains(t, out, "24h")
	assert.Contains(t, out, "by -")
}

func TestFormatFlowList_And_Directory(t *testing.T) {
	usePlain(t)
	out := FormatFlowList([]*domain.FlowDefinition{
		{Code: "leave", Version: 1, Status: domain.FlowSuperseded, CreatedAt: now},
	})
	assert.Contains(t, out, "SUPERSEDED")
	assert.Contains(t, out, "2025-06-15")

	out = FormatPrincipalList([]*domain.Principal{{ID: "ann", DisplayName: "Ann", Active: false}})
	assert.Contains(t, out, "inactive")

	out = FormatRoleList([]*domain.Role{{Code: "hr", Name: "People"}})
	assert.Contains(t, out, "People")
}
