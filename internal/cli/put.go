package cli

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/hexstore/internal/pattern"
)

// PutResult is the structured output of put.
type PutResult struct {
	Pattern    string `json:"pattern" yaml:"pattern"`
	Capability string `json:"capability" yaml:"capability"`
	Sanitized  bool   `json:"sanitized" yaml:"sanitized"`
}

// NewPutCommand creates the put command.
func NewPutCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ClientOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "put <pattern> <file|->",
		Short: "Store an encoded iota",
		Long: `Store an encoded iota under a pattern.

The payload is read from the named file, or from stdin when the file is
"-". The capability printed on success deletes the record early.

Example:
  hexstore put qwed ./iota.bin
  hexstore gen --dry-run | hexstore put aqa -`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPut(opts, args[0], args[1], cmd)
		},
	}
	opts.addFlags(cmd)

	return cmd
}

func runPut(opts *ClientOptions, pat, source string, cmd *cobra.Command) error {
	if !pattern.Valid(pat) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid pattern %q", pat))
	}

	payload, err := readPayload(cmd, source)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read payload", err)
	}

	ctx, cancel, c, err := opts.connect(cmd)
	if err != nil {
		return err
	}
	defer cancel()
	defer c.Close()

	out := formatter(opts.RootOptions, cmd)
	put, err := c.Put(ctx, pat, payload)
	if err != nil {
		return requestFailed(out, err)
	}

	result := PutResult{
		Pattern:    pat,
		Capability: base64.StdEncoding.EncodeToString(put.Capability),
		Sanitized:  put.SanitizedEntity != nil,
	}
	if opts.Format == "text" {
		out.VerboseLog("stored under %s (entity sanitized: %t)", result.Pattern, result.Sanitized)
		return out.Success(result.Capability)
	}
	return out.Success(result)
}

func readPayload(cmd *cobra.Command, source string) ([]byte, error) {
	if source == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(source)
}
