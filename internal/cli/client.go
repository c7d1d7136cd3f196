package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/hexstore/internal/client"
)

// DefaultTimeout bounds a single client request.
const DefaultTimeout = 10 * time.Second

// ClientOptions holds flags shared by commands that talk to a server.
type ClientOptions struct {
	*RootOptions
	Addr    string
	Timeout time.Duration
}

func (o *ClientOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.Addr, "addr", "", "server address (overrides URL)")
	cmd.Flags().DurationVar(&o.Timeout, "timeout", DefaultTimeout, "request timeout")
}

// connect dials the server named by --addr or URL. The returned context
// carries the request timeout; callers must call the cancel func and
// close the client.
func (o *ClientOptions) connect(cmd *cobra.Command) (context.Context, context.CancelFunc, *client.Client, error) {
	addr := o.Addr
	if addr == "" {
		cfg, err := loadConfig()
		if err != nil {
			return nil, nil, nil, err
		}
		addr = cfg.Addr
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, o.Timeout)

	c, err := client.Dial(ctx, addr)
	if err != nil {
		cancel()
		return nil, nil, nil, WrapExitError(ExitCommandError, "failed to connect", err)
	}
	return ctx, cancel, c, nil
}

// requestFailed reports err to the user. Error responses from the server
// exit with ExitFailure; anything else is a command error.
func requestFailed(out *OutputFormatter, err error) error {
	var respErr *client.ResponseError
	if errors.As(err, &respErr) {
		_ = out.Error(fmt.Sprintf("E%d", respErr.Code), respErr.Message, nil)
		return WrapExitError(ExitFailure, "request failed", err)
	}
	return WrapExitError(ExitCommandError, "request failed", err)
}
