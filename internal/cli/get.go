package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/hexstore/internal/document"
	"github.com/roach88/hexstore/internal/pattern"
)

// GetOptions holds flags for the get command.
type GetOptions struct {
	ClientOptions
	Out string
}

// GetResult is the structured output of get.
type GetResult struct {
	Pattern  string `json:"pattern" yaml:"pattern"`
	Document any    `json:"document" yaml:"document"`
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GetOptions{ClientOptions: ClientOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "get <pattern>",
		Short: "Fetch a stored iota",
		Long: `Fetch the iota stored under a pattern.

With --out the raw payload is written to a file. Otherwise the decoded
document is printed.

Example:
  hexstore get qwed
  hexstore get qwed --out iota.bin`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(opts, args[0], cmd)
		},
	}
	opts.addFlags(cmd)
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "write the raw payload to this file")

	return cmd
}

func runGet(opts *GetOptions, pat string, cmd *cobra.Command) error {
	if !pattern.Valid(pat) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid pattern %q", pat))
	}

	ctx, cancel, c, err := opts.connect(cmd)
	if err != nil {
		return err
	}
	defer cancel()
	defer c.Close()

	out := formatter(opts.RootOptions, cmd)
	payload, err := c.Get(ctx, pat)
	if err != nil {
		return requestFailed(out, err)
	}

	if opts.Out != "" {
		if err := os.WriteFile(opts.Out, payload, 0644); err != nil {
			return WrapExitError(ExitCommandError, "failed to write payload", err)
		}
		out.VerboseLog("wrote %d bytes to %s", len(payload), opts.Out)
		return nil
	}

	doc, err := document.Unmarshal(payload)
	if err != nil {
		return WrapExitError(ExitFailure, "server returned an undecodable payload", err)
	}
	plain := document.Plain(doc)

	if opts.Format == "text" {
		text, err := yaml.Marshal(plain)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to render document", err)
		}
		_, err = cmd.OutOrStdout().Write(text)
		return err
	}
	return out.Success(GetResult{Pattern: pat, Document: plain})
}
