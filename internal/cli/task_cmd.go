package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/alexanderramin/signoff/internal/cli/formatter"
	"github.com/alexanderramin/signoff/internal/domain"
	"github.com/alexanderramin/signoff/internal/service"
	"github.com/spf13/cobra"
)

func newTaskCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Create, act on and inspect approval tasks",
	}
	cmd.AddCommand(
		newTaskCreateCmd(app),
		newTaskActionCmd(app, "submit", "Submit a draft or rejected task", "Submitted",
			func(c actionCall) (*domain.Task, error) { return app.Tasks.SubmitTask(c.ctx, c.ref, c.actor) }),
		newTaskActionCmd(app, "approve", "Approve the current node", "Approved",
			func(c actionCall) (*domain.Task, error) { return app.Tasks.Approve(c.ctx, c.ref, c.actor, c.comment) }),
		newTaskRejectCmd(app),
		newTaskTransferCmd(app),
		newTaskActionCmd(app, "withdraw", "Withdraw an in-flight task", "Withdrew",
			func(c actionCall) (*domain.Task, error) {
				return app.Tasks.WithdrawTask(c.ctx, c.ref, c.actor, c.comment)
			}),
		newTaskActionCmd(app, "cancel", "Cancel a draft", "Cancelled",
			func(c actionCall) (*domain.Task, error) { return app.Tasks.CancelTask(c.ctx, c.ref, c.actor) }),
		newTaskShowCmd(app),
		newTaskListCmd(app),
	)
	return cmd
}

func newTaskCreateCmd(app *App) *cobra.Command {
	var req service.CreateTaskRequest
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a draft task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			who, err := actor(cmd)
			if err != nil {
				return err
			}
			req.CreatorID = who
			task, err := app.Tasks.CreateTask(ctxOf(cmd), req)
			if err != nil {
				return err
			}
			printf(cmd, "%s\n", formatter.FormatTaskResult("Created", task))
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Title, "title", "", "Task title")
	cmd.Flags().StringVar(&req.Content, "content", "", "Task body")
	cmd.Flags().StringVar(&req.Type, "type", "", "Task type (selects the active flow for that type)")
	cmd.Flags().StringVar(&req.FlowCode, "flow", "", "Flow code (overrides --type lookup)")
	cmd.Flags().StringVar(&req.Priority, "priority", "", "LOW, NORMAL, HIGH or URGENT")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

type actionCall struct {
	ctx     context.Context
	ref     string
	actor   string
	comment string
}

func newTaskActionCmd(app *App, use, short, verb string, fn func(actionCall) (*domain.Task, error)) *cobra.Command {
	var comment string
	cmd := &cobra.Command{
		Use:   use + " TASK",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			who, err := actor(cmd)
			if err != nil {
				return err
			}
			task, err := fn(actionCall{ctx: ctxOf(cmd), ref: args[0], actor: who, comment: comment})
			if err != nil {
				return err
			}
			printf(cmd, "%s\n", formatter.FormatTaskResult(verb, task))
			return nil
		},
	}
	switch use {
	case "approve":
		cmd.Flags().StringVarP(&comment, "comment", "m", "", "Comment")
	case "withdraw":
		cmd.Flags().StringVarP(&comment, "reason", "m", "", "Reason")
	}
	return cmd
}

func newTaskRejectCmd(app *App) *cobra.Command {
	var to, comment string
	cmd := &cobra.Command{
		Use:   "reject TASK",
		Short: "Send the task back to an earlier node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			who, err := actor(cmd)
			if err != nil {
				return err
			}
			req := service.RejectRequest{TaskRef: args[0], Actor: who, Comment: comment}
			if n, convErr := strconv.Atoi(strings.TrimSpace(to)); convErr == nil {
				req.TargetOrder = n
			} else {
				req.TargetNodeID = to
			}
			task, err := app.Tasks.Reject(ctxOf(cmd), req)
			if err != nil {
				return err
			}
			printf(cmd, "%s\n", formatter.FormatTaskResult("Rejected", task))
			return nil
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "Target node order or node id")
	cmd.Flags().StringVarP(&comment, "comment", "m", "", "Comment")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newTaskTransferCmd(app *App) *cobra.Command {
	var to, comment string
	cmd := &cobra.Command{
		Use:   "transfer TASK",
		Short: "Hand your pending decision to another principal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			who, err := actor(cmd)
			if err != nil {
				return err
			}
			task, err := app.Tasks.Transfer(ctxOf(cmd), args[0], who, to, comment)
			if err != nil {
				return err
			}
			printf(cmd, "%s to %s\n", formatter.FormatTaskResult("Transferred", task), to)
			return nil
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "Principal id to transfer to")
	cmd.Flags().StringVarP(&comment, "comment", "m", "", "Comment")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newTaskShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show TASK",
		Short: "Show a task, its route and its approval history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			who, err := actor(cmd)
			if err != nil {
				return err
			}
			detail, err := app.Tasks.GetTaskDetail(ctxOf(cmd), args[0], who)
			if err != nil {
				return err
			}
			printf(cmd, "%s", formatter.FormatTaskDetail(detail, who, app.now()))
			return nil
		},
	}
}

func newTaskListCmd(app *App) *cobra.Command {
	var (
		view   = viewPending
		status string
		page   domain.Page
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks waiting on you, created by you, approved by you, or by status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := ctxOf(cmd)
			if status != "" {
				st, err := domain.ParseTaskStatus(strings.ToUpper(status))
				if err != nil {
					return err
				}
				res, err := app.Tasks.ListByStatus(ctx, st, page)
				if err != nil {
					return err
				}
				printf(cmd, "%s", formatter.FormatTaskPage(string(st), res))
				return nil
			}

			who, err := actor(cmd)
			if err != nil {
				return err
			}
			var res domain.PageResult[*domain.Task]
			switch view {
			case viewCreated:
				res, err = app.Tasks.ListCreated(ctx, who, page)
			case viewApproved:
				res, err = app.Tasks.ListApproved(ctx, who, page)
			default:
				res, err = app.Tasks.ListPending(ctx, who, page)
			}
			if err != nil {
				return err
			}
			printf(cmd, "%s", formatter.FormatTaskPage(fmt.Sprintf("%s for %s", view, who), res))
			return nil
		},
	}
	cmd.Flags().Var(&view, "view", "pending, created or approved")
	cmd.Flags().StringVar(&status, "status", "", "List every task in this status instead")
	cmd.Flags().IntVar(&page.Number, "page", 1, "Page number")
	cmd.Flags().IntVar(&page.Size, "size", domain.DefaultPageSize, "Page size")
	return cmd
}
