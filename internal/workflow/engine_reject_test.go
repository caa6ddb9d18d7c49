package workflow

import (
	"testing"

	"github.com/alexanderramin/signoff/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_Reject_RollsBackToEarlierNode(t *testing.T) {
	h := newHarness(t)
	h.addPrincipals("creator", "a", "b", "c", "d")
	g := h.publish("rj", anyOf(1, "a"), anyOf(2, "b"), allOf(3, "c", "d"))
	n1 := g.Nodes()[0]

	task := h.submitted("creator", "rj")
	task = h.approve(task, "a")
	task = h.approve(task, "b")
	task = h.approve(task, "c")
	require.Equal(t, 3, *task.CurrentNodeOrder)

	task, err := h.engine.Reject(h.ctx, task.ID, "d", n1.ID, "missing receipt")
	require.NoError(t, err)
	assert.Equal(t, domain.TaskRejected, task.Status)
	assert.Equal(t, 1, *task.CurrentNodeOrder)
	assert.True(t, task.AtNode(n1.ID))

	var rejects []*domain.ApprovalRecord
	for _, r := range h.history(task) {
		if r.Action == domain.ActionReject {
			rejects = append(rejects, r)
			continue
		}
		assert.LessOrEqual(t, r.NodeOrder, 1, "records beyond the target are purged")
	}
	require.Len(t, rejects, 1)
	assert.Equal(t, "d", rejects[0].ApproverID)
	assert.Equal(t, domain.ResultRejected, rejects[0].Result)
	assert.Equal(t, "missing receipt", rejects[0].Comment)
	require.NotNil(t, rejects[0].RejectToNodeID)
	assert.Equal(t, n1.ID, *rejects[0].RejectToNodeID)

	// Exactly resolve(node1) fresh pending records.
	assert.Equal(t, []string{"a"}, h.pendingAt(task))
}

func TestEngine_Reject_TargetMustBeEarlier(t *testing.T) {
	h := newHarness(t)
	h.addPrincipals("creator", "a", "b", "c")
	g := h.publish("rj", anyOf(1, "a"), anyOf(2, "b"), anyOf(3, "c"))
	nodes := g.Nodes()

	task := h.submitted("creator", "rj")
	task = h.approve(task, "a")
	before := h.history(task)

	for _, target := range []string{nodes[1].ID, nodes[2].ID, "no-such-node"} {
		_, err := h.engine.Reject(h.ctx, task.ID, "b", target, "")
		assert.ErrorIs(t, err, domain.ErrValidation, "target %s", target)
	}

	got := h.reload(task)
	assert.Equal(t, task.Version, got.Version)
	assert.Equal(t, domain.TaskInProgress, got.Status)
	assert.Equal(t, 2, *got.CurrentNodeOrder)
	assert.Equal(t, before, h.history(task))
}

func TestEngine_Reject_RequiresPendingRecord(t *testing.T) {
	h := newHarness(t)
	h.addPrincipals("creator", "a", "b")
	g := h.publish("rj", anyOf(1, "a"), anyOf(2, "b"))

	task := h.submitted("creator", "rj")
	task = h.approve(task, "a")

	_, err := h.engine.Reject(h.ctx, task.ID, "a", g.Nodes()[0].ID, "")
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)
}

func TestEngine_RejectedTaskStaysApprovable(t *testing.T) {
	h := newHarness(t)
	h.addPrincipals("creator", "a", "b", "c")
	g := h.publish("loop", allOf(1, "a", "b"), anyOf(2, "c"))
	n1 := g.Nodes()[0]

	task := h.submitted("creator", "loop")
	task = h.approve(task, "a")
	task = h.approve(task, "b")
	require.Equal(t, 2, *task.CurrentNodeOrder)

	task, err := h.engine.Reject(h.ctx, task.ID, "c", n1.ID, "redo")
	require.NoError(t, err)
	require.Equal(t, domain.TaskRejected, task.Status)
	assert.Equal(t, []string{"a", "b"}, h.pendingAt(task))

	// Approvals from the first pass do not count toward this round.
	task = h.approve(task, "a")
	assert.Equal(t, domain.TaskInProgress, task.Status)
	assert.Equal(t, 1, *task.CurrentNodeOrder)

	task = h.approve(task, "b")
	assert.Equal(t, 2, *task.CurrentNodeOrder)
	assert.Equal(t, []string{"c"}, h.pendingAt(task))

	task = h.approve(task, "c")
	assert.Equal(t, domain.TaskApproved, task.Status)
}

func TestEngine_ResubmitAfterReject(t *testing.T) {
	h := newHarness(t)
	h.addPrincipals("creator", "a", "b", "z")
	g := h.publish("re", anyOf(1, "a"), anyOf(2, "b"))
	n1 := g.Nodes()[0]

	task := h.submitted("creator", "re")
	pinned := task.FlowID
	task = h.approve(task, "a")
	task, err := h.engine.Reject(h.ctx, task.ID, "b", n1.ID, "")
	require.NoError(t, err)
	rejectedRound := task.Round

	// A newer version must not affect the resubmission.
	h.publish("re", anyOf(1, "z"))

	task, err = h.engine.Submit(h.ctx, task.ID, "creator")
	require.NoError(t, err)
	assert.Equal(t, domain.TaskPending, task.Status)
	assert.Equal(t, pinned, task.FlowID)
	assert.Equal(t, 1, *task.CurrentNodeOrder)
	assert.Equal(t, rejectedRound+1, task.Round)
	assert.Equal(t, []string{"a"}, h.pendingAt(task))

	old, err := h.stores.Records.ListRound(h.ctx, task.ID, n1.ID, rejectedRound)
	require.NoError(t, err)
	require.Len(t, old, 1)
	assert.Equal(t, domain.ResultWithdrawn, old[0].Result)
	assert.Equal(t, "resubmitted", old[0].Comment)
}

func TestEngine_WithdrawFromRejectedNeedsResubmit(t *testing.T) {
	h := newHarness(t)
	h.addPrincipals("creator", "a", "b")
	g := h.publish("wr", anyOf(1, "a"), anyOf(2, "b"))

	task := h.submitted("creator", "wr")
	task = h.approve(task, "a")
	task, err := h.engine.Reject(h.ctx, task.ID, "b", g.Nodes()[0].ID, "")
	require.NoError(t, err)
	require.Equal(t, domain.TaskRejected, task.Status)

	_, err = h.engine.Withdraw(h.ctx, task.ID, "creator", "")
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
	assert.Equal(t, task.Version, h.reload(task).Version)
	assert.Equal(t, []string{"a"}, h.pendingAt(task))

	_, err = h.engine.Submit(h.ctx, task.ID, "creator")
	require.NoError(t, err)
	task, err = h.engine.Withdraw(h.ctx, task.ID, "creator", "")
	require.NoError(t, err)
	assert.Equal(t, domain.TaskWithdrawn, task.Status)
}

func TestEngine_Transfer(t *testing.T) {
	h := newHarness(t)
	h.addPrincipals("creator", "a", "b", "c")
	h.publish("tx", anyOf(1, "a", "b"))

	task := h.submitted("creator", "tx")
	out, err := h.engine.Transfer(h.ctx, task.ID, "a", "c", "on leave")
	require.NoError(t, err)
	assert.Equal(t, task.Status, out.Status)
	assert.Equal(t, *task.CurrentNodeID, *out.CurrentNodeID)
	assert.Equal(t, task.Round, out.Round)

	recs := h.history(task)
	require.Len(t, recs, 3)
	assert.Equal(t, []string{"a"}, resultsBy(recs, domain.ResultTransferred))
	assert.ElementsMatch(t, []string{"b", "c"}, resultsBy(recs, domain.ResultPending))
	for _, r := range recs {
		if r.Result == domain.ResultTransferred {
			require.NotNil(t, r.TransferToUserID)
			assert.Equal(t, "c", *r.TransferToUserID)
			require.NotNil(t, r.TransferToName)
			assert.Equal(t, "User c", *r.TransferToName)
		}
		if r.ApproverID == "c" {
			assert.Equal(t, 1, r.NodeOrder)
			assert.Equal(t, task.Round, r.Round)
		}
	}

	out = h.approve(out, "c")
	assert.Equal(t, domain.TaskApproved, out.Status)
}

func TestEngine_Transfer_Validation(t *testing.T) {
	h := newHarness(t)
	h.addPrincipals("creator", "a", "b", "e")
	retired := &domain.Principal{ID: "old", DisplayName: "Old", Active: false, CreatedAt: h.clock.Now()}
	require.NoError(t, h.stores.Principals.CreatePrincipal(h.ctx, retired))
	h.publish("tx", anyOf(1, "a", "b"))
	task := h.submitted("creator", "tx")

	cases := []struct {
		name, actor, target string
		want                error
	}{
		{"self", "a", "a", domain.ErrValidation},
		{"already pending", "a", "b", domain.ErrValidation},
		{"unknown target", "a", "ghost", domain.ErrNotFound},
		{"inactive target", "a", "old", domain.ErrNotFound},
		{"not a holder", "e", "a", domain.ErrPermissionDenied},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.engine.Transfer(h.ctx, task.ID, tc.actor, tc.target, "")
			assert.ErrorIs(t, err, tc.want)
		})
	}
	assert.Equal(t, task.Version, h.reload(task).Version)
	assert.Equal(t, []string{"a", "b"}, h.pendingAt(task))
}

func TestEngine_Transfer_TargetAlreadyApprovedIsRejected(t *testing.T) {
	h := newHarness(t)
	h.addPrincipals("creator", "a", "b")
	h.publish("alldone", allOf(1, "a", "b"), anyOf(2, "a"))

	task := h.submitted("creator", "alldone")
	task = h.approve(task, "a")

	_, err := h.engine.Transfer(h.ctx, task.ID, "b", "a", "")
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, []string{"b"}, h.pendingAt(task))

	task = h.approve(task, "b")
	require.NotNil(t, task.CurrentNodeOrder)
	assert.Equal(t, 2, *task.CurrentNodeOrder)

	var approvalsByA int
	for _, r := range h.history(task) {
		if r.NodeOrder == 1 && r.ApproverID == "a" && r.Result == domain.ResultApproved {
			approvalsByA++
		}
	}
	assert.Equal(t, 1, approvalsByA)
}

func TestEngine_Transfer_AllPolicyRosterFollowsTransferee(t *testing.T) {
	h := newHarness(t)
	h.addPrincipals("creator", "a", "b", "c")
	h.publish("alltx", allOf(1, "a", "b"))

	task := h.submitted("creator", "alltx")
	_, err := h.engine.Transfer(h.ctx, task.ID, "a", "c", "")
	require.NoError(t, err)

	task = h.approve(task, "b")
	assert.Equal(t, domain.TaskInProgress, task.Status, "c still owes a decision")

	task = h.approve(task, "c")
	assert.Equal(t, domain.TaskApproved, task.Status)
}
