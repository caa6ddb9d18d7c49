package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/alexanderramin/signoff/internal/domain"
	"github.com/alexanderramin/signoff/internal/service"
	"github.com/spf13/cobra"
)

// ActorEnv names the environment variable that supplies the acting
// principal when --as is not given.
const ActorEnv = "SIGNOFF_USER"

// App holds references to all service interfaces used by CLI commands.
type App struct {
	Tasks     service.TaskService
	Flows     service.FlowService
	Directory service.DirectoryService

	// Now is used for relative timestamps. Defaults to time.Now.
	Now func() time.Time
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

// NewRootCmd creates the top-level "signoff" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "signoff",
		Short:         "Multi-step approval workflows",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetFlagErrorFunc(flagError)
	root.PersistentFlags().String("as", "", "Acting principal id (default $"+ActorEnv+")")

	root.AddCommand(
		newFlowCmd(app),
		newUserCmd(app),
		newRoleCmd(app),
		newTaskCmd(app),
	)
	return root
}

// actor resolves the acting principal from --as or the environment.
func actor(cmd *cobra.Command) (string, error) {
	as, _ := cmd.Flags().GetString("as")
	as = strings.TrimSpace(as)
	if as == "" {
		as = strings.TrimSpace(os.Getenv(ActorEnv))
	}
	if as == "" {
		return "", domain.Validation("no acting principal: pass --as or set %s", ActorEnv)
	}
	return as, nil
}

func ctxOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// FormatError renders err for the terminal. Domain errors already carry
// their kind as a prefix.
func FormatError(err error) string {
	return "Error: " + err.Error()
}

func printf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
