package cli

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/spf13/cobra"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/glinharesb/hkdf-vault/internal/api"
)

func newAuditCommand(o *Options) *cobra.Command {
	var (
		operation string
		limit     uint32
		follow    bool
	)
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Print audit entries as JSON lines, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			enc := json.NewEncoder(cmd.OutOrStdout())
			if follow {
				return o.follow(cmd, enc)
			}
			return o.call(cmd, func(ctx context.Context, c *api.Client) error {
				resp, err := c.QueryAudit(ctx, &api.QueryAuditRequest{
					SessionID: o.Session,
					Operation: operation,
					Limit:     limit,
				})
				if err != nil {
					return err
				}
				for _, e := range resp.Entries {
					if err := enc.Encode(e); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&operation, "operation", "", "Only entries for this operation")
	cmd.Flags().Uint32Var(&limit, "limit", 50, "Maximum entries (0 for all)")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Stream new entries until interrupted")
	return cmd
}

// follow streams entries without the per-call timeout.
func (o *Options) follow(cmd *cobra.Command, enc *json.Encoder) error {
	timeout := o.Timeout
	o.Timeout = 0
	defer func() { o.Timeout = timeout }()

	return o.call(cmd, func(ctx context.Context, c *api.Client) error {
		stream, err := c.StreamAudit(ctx, &api.StreamAuditRequest{SessionID: o.Session})
		if err != nil {
			return err
		}
		for {
			e, err := stream.Recv()
			if errors.Is(err, io.EOF) || status.Code(err) == codes.Canceled {
				return nil
			}
			if err != nil {
				return err
			}
			if err := enc.Encode(e); err != nil {
				return err
			}
		}
	})
}
