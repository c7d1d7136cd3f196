package cli

import (
	"encoding/base64"
	"fmt"
	"math/rand/v2"

	"github.com/spf13/cobra"

	"github.com/roach88/hexstore/internal/document"
	"github.com/roach88/hexstore/internal/pattern"
)

// GenOptions holds flags for the gen command.
type GenOptions struct {
	ClientOptions
	Count  int
	Depth  int
	Seed   uint64
	DryRun bool
}

// NewGenCommand creates the gen command.
func NewGenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GenOptions{ClientOptions: ClientOptions{RootOptions: rootOpts}}

	cmd := &cobra.Command{
		Use:   "gen",
		Short: "Store random iotas under random patterns",
		Long: `Generate random iotas and store each under a random pattern.

About a quarter of generated iotas are entities, which exercises the
server's sanitizer. With --dry-run a single encoded iota is written to
stdout instead and no server is contacted.

Example:
  hexstore gen --count 20
  hexstore gen --seed 7 --dry-run > iota.bin`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGen(opts, cmd)
		},
	}
	opts.addFlags(cmd)
	cmd.Flags().IntVarP(&opts.Count, "count", "n", 1, "number of records to store")
	cmd.Flags().IntVar(&opts.Depth, "depth", 4, "maximum nesting depth of generated lists")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "random seed (0 picks one)")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "write one encoded iota to stdout and exit")

	return cmd
}

func runGen(opts *GenOptions, cmd *cobra.Command) error {
	if opts.Count < 1 {
		return NewExitError(ExitCommandError, fmt.Sprintf("--count must be positive, got %d", opts.Count))
	}

	seed := opts.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	rng := rand.New(rand.NewPCG(seed, seed))

	if opts.DryRun {
		_, err := cmd.OutOrStdout().Write(document.Marshal(document.Random(rng, opts.Depth)))
		return err
	}

	ctx, cancel, c, err := opts.connect(cmd)
	if err != nil {
		return err
	}
	defer cancel()
	defer c.Close()

	out := formatter(opts.RootOptions, cmd)
	out.VerboseLog("seed %d", seed)

	results := make([]PutResult, 0, opts.Count)
	for i := 0; i < opts.Count; i++ {
		pat := pattern.GenerateFrom(rng.IntN)
		put, err := c.Put(ctx, pat, document.Marshal(document.Random(rng, opts.Depth)))
		if err != nil {
			return requestFailed(out, err)
		}
		results = append(results, PutResult{
			Pattern:    pat,
			Capability: base64.StdEncoding.EncodeToString(put.Capability),
			Sanitized:  put.SanitizedEntity != nil,
		})
	}

	if opts.Format == "text" {
		for _, r := range results {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", r.Pattern, r.Capability)
		}
		return nil
	}
	return out.Success(results)
}
