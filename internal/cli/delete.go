package cli

import (
	"encoding/base64"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/hexstore/internal/pattern"
)

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ClientOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "delete <pattern> <capability>",
		Short: "Delete a record before it expires",
		Long: `Delete the record under a pattern using the base64 capability
printed by put.

The server acknowledges every well-formed delete, so success does not
prove a record was removed.

Example:
  hexstore delete qwed 3q2+7w==`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(opts, args[0], args[1], cmd)
		},
	}
	opts.addFlags(cmd)

	return cmd
}

func runDelete(opts *ClientOptions, pat, encoded string, cmd *cobra.Command) error {
	if !pattern.Valid(pat) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid pattern %q", pat))
	}
	capability, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return WrapExitError(ExitCommandError, "capability is not valid base64", err)
	}

	ctx, cancel, c, err := opts.connect(cmd)
	if err != nil {
		return err
	}
	defer cancel()
	defer c.Close()

	out := formatter(opts.RootOptions, cmd)
	if err := c.Delete(ctx, pat, capability); err != nil {
		return requestFailed(out, err)
	}
	if opts.Format == "text" {
		return out.Success("deleted " + pat)
	}
	return out.Success(map[string]string{"pattern": pat})
}
