package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/depview/pkg/bridge"
	"github.com/matzehuels/depview/pkg/client"
	"github.com/matzehuels/depview/pkg/errors"
)

// in is where prompts read answers from.
var in io.Reader = os.Stdin

// edgeCommand groups the edge mutation subcommands.
func (c *CLI) edgeCommand() *cobra.Command {
	var backendURL string

	cmd := &cobra.Command{
		Use:   "edge",
		Short: "Create or delete a dependency edge on the backend",
		Long: `Edge issues a single PUT or DELETE on {backend}/edge/{from}/{to}.

FROM and TO are backend identities (folder-qualified job names). A failed call
prints the backend's response body and is never retried.`,
	}
	cmd.PersistentFlags().StringVarP(&backendURL, "backend", "b", "", "backend URL (default: backend.url from config)")

	cmd.AddCommand(c.edgePutCommand(&backendURL))
	cmd.AddCommand(c.edgeDeleteCommand(&backendURL))

	return cmd
}

func (c *CLI) edgePutCommand(backendURL *string) *cobra.Command {
	return &cobra.Command{
		Use:   "put FROM TO",
		Short: "Create the edge FROM -> TO",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			be, err := c.newBackend(*backendURL)
			if err != nil {
				return err
			}
			return c.mutateEdge(cmd.Context(), be, bridge.OpPut, args[0], args[1])
		},
	}
}

func (c *CLI) edgeDeleteCommand(backendURL *string) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete FROM TO",
		Short: "Delete the edge FROM -> TO after confirmation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			be, err := c.newBackend(*backendURL)
			if err != nil {
				return err
			}
			if !yes {
				ok, err := confirm(bridge.ConfirmMessage(args[0], args[1]))
				if err != nil {
					return err
				}
				if !ok {
					printInfo("Kept %s -> %s", args[0], args[1])
					return nil
				}
			}
			return c.mutateEdge(cmd.Context(), be, bridge.OpDelete, args[0], args[1])
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")

	return cmd
}

// mutateEdge issues one backend call and drops the cached description so
// the next render sees the change.
func (c *CLI) mutateEdge(ctx context.Context, be *client.Client, op, from, to string) error {
	call, verb := be.PutEdge, "Created"
	if op == bridge.OpDelete {
		call, verb = be.DeleteEdge, "Deleted"
	}

	spinner := newSpinner(ctx, fmt.Sprintf("%s %s -> %s", op, from, to))
	spinner.Start()
	if err := call(ctx, from, to); err != nil {
		spinner.StopWithError(errors.UserMessage(err))
		return err
	}
	spinner.StopWithSuccess(fmt.Sprintf("%s %s -> %s", verb, from, to))
	c.Logger.Info("edge mutation", "op", op, "from", from, "to", to)

	runner, err := c.newRunner(ctx, false)
	if err != nil {
		c.Logger.Warn("cache unavailable, not invalidated", "error", err)
		return nil
	}
	defer runner.Close()
	if err := runner.Invalidate(ctx, be); err != nil {
		c.Logger.Warn("cache invalidation failed", "error", err)
	}
	return nil
}

// confirm asks a yes/no question on the terminal. Anything but y or yes
// declines.
func confirm(question string) (bool, error) {
	fmt.Fprint(out, styleIconWarning.Render(iconWarning)+" "+question+" [y/N] ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
