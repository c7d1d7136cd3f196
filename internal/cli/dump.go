package cli

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/hexstore/internal/document"
	"github.com/roach88/hexstore/internal/store"
)

// DumpOptions holds flags for the dump command.
type DumpOptions struct {
	*RootOptions
	Database string
}

// DumpRecord is one stored record as printed by dump.
type DumpRecord struct {
	Pattern    string    `json:"pattern" yaml:"pattern"`
	ExpiresAt  time.Time `json:"expires_at" yaml:"expires_at"`
	Capability string    `json:"capability" yaml:"capability"`
	Tag        string    `json:"tag" yaml:"tag"`
	Document   any       `json:"document,omitempty" yaml:"document,omitempty"`
}

// NewDumpCommand creates the dump command.
func NewDumpCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DumpOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "List every stored record",
		Long: `List every record in the database, soonest expiry first.

Reads the database directly, so it works whether or not a server is
running. Text output is one line per record; json and yaml include the
decoded documents.

Example:
  hexstore dump --db ./hex.db
  hexstore dump --db ./hex.db --format yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides DATABASE_URL)")

	return cmd
}

func runDump(opts *DumpOptions, cmd *cobra.Command) error {
	path := opts.Database
	if path == "" {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return WrapExitError(ExitCommandError, "invalid configuration", err)
		}
		path = cfg.DatabaseURL
	}

	st, err := store.Open(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	records, err := st.List(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list records", err)
	}

	out := formatter(opts.RootOptions, cmd)
	dumped := make([]DumpRecord, 0, len(records))
	for _, rec := range records {
		dumped = append(dumped, dumpRecord(rec, out))
	}

	if opts.Format == "text" {
		for _, d := range dumped {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", d.Pattern, d.ExpiresAt.Format(time.RFC3339), d.Tag)
		}
		return nil
	}
	return out.Success(dumped)
}

func dumpRecord(rec store.Record, out *OutputFormatter) DumpRecord {
	d := DumpRecord{
		Pattern:    rec.Pattern,
		ExpiresAt:  rec.ExpiresAt.UTC(),
		Capability: base64.StdEncoding.EncodeToString(rec.Capability),
	}

	root, err := document.UnmarshalDocument(rec.Data)
	if err != nil {
		out.VerboseLog("record %q does not decode: %v", rec.Pattern, err)
		d.Tag = "<undecodable>"
		return d
	}
	if doc, ok := document.As(root); ok {
		d.Tag = doc.Tag
	}
	d.Document = document.Plain(root)
	return d
}
