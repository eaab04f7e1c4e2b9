// Package cli implements hkdfctl, a command line client for hkdf-vault with
// an offline derive command that needs no server.
package cli

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/glinharesb/hkdf-vault/internal/api"
)

// Options holds the global flags.
type Options struct {
	Addr    string
	Token   string
	Session string
	Timeout time.Duration

	// extra dial options, set by tests
	dialOpts []grpc.DialOption
}

// Execute runs hkdfctl with args (without the program name). Cancelling ctx
// ends a running audit --follow.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cmd := NewRootCommand(&Options{})
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	return cmd.ExecuteContext(ctx)
}

func NewRootCommand(o *Options) *cobra.Command {
	root := &cobra.Command{
		Use:   "hkdfctl",
		Short: "Derive keys with an hkdf-vault server",
		Long: `hkdfctl talks to an hkdf-vault server over gRPC.

A session owns one HKDF-SHA256 engine and one key store. Open a session,
set a salt, extract a PRK from input keying material, then expand output
keying material from it. Byte arguments are hex encoded.`,
		Example: `  # Offline derivation, no server required
  hkdfctl derive --salt 0a0b0c --ikm 0102030405 --info aes-key --length 16

  # Remote flow
  S=$(hkdfctl session open)
  hkdfctl --session $S salt 0a0b0c
  hkdfctl --session $S extract 0102030405
  hkdfctl --session $S expand --info aes-key --length 32
  hkdfctl --session $S key get --type aes --length 256 --encrypt`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&o.Addr, "addr", "localhost:50051", "Server address")
	root.PersistentFlags().StringVar(&o.Token, "token", "dev-token", "Bearer token")
	root.PersistentFlags().StringVar(&o.Session, "session", "", "Session ID")
	root.PersistentFlags().DurationVar(&o.Timeout, "timeout", 10*time.Second, "Per-call timeout")

	root.AddCommand(
		newDeriveCommand(),
		newSessionCommand(o),
		newSaltCommand(o),
		newExtractCommand(o),
		newExpandCommand(o),
		newRotateCommand(o),
		newKeyCommand(o),
		newAuditCommand(o),
	)
	return root
}

// call dials the server, runs fn with a per-call timeout and closes the
// connection.
func (o *Options) call(cmd *cobra.Command, fn func(ctx context.Context, c *api.Client) error) error {
	conn, err := grpc.NewClient(o.Addr, append(api.DialOptions(o.Token), o.dialOpts...)...)
	if err != nil {
		return fmt.Errorf("connect %s: %w", o.Addr, err)
	}
	defer conn.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if o.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.Timeout)
		defer cancel()
	}
	return fn(ctx, api.NewClient(conn))
}

func (o *Options) session() (string, error) {
	if o.Session == "" {
		return "", errors.New("--session is required")
	}
	return o.Session, nil
}

func decodeHex(name, s string) ([]byte, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return b, nil
}

// infoBytes prefers --info-hex over the plain --info string.
func infoBytes(info, infoHex string) ([]byte, error) {
	if infoHex != "" {
		return decodeHex("info-hex", infoHex)
	}
	return []byte(info), nil
}
