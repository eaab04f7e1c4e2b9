package cli

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/glinharesb/hkdf-vault/internal/api"
)

func newSessionCommand(o *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Open or close sessions",
	}

	open := &cobra.Command{
		Use:   "open",
		Short: "Open a session and print its ID",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.call(cmd, func(ctx context.Context, c *api.Client) error {
				resp, err := c.OpenSession(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), resp.SessionID)
				return nil
			})
		},
	}

	closeCmd := &cobra.Command{
		Use:   "close [id]",
		Short: "Close a session, wiping its PRK and keys",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := o.Session
			if len(args) == 1 {
				id = args[0]
			}
			if id == "" {
				return errors.New("session ID required")
			}
			return o.call(cmd, func(ctx context.Context, c *api.Client) error {
				return c.CloseSession(ctx, id)
			})
		},
	}

	state := &cobra.Command{
		Use:   "state",
		Short: "Print the engine state of --session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := o.session()
			if err != nil {
				return err
			}
			return o.call(cmd, func(ctx context.Context, c *api.Client) error {
				resp, err := c.State(ctx, id)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), resp.State)
				return nil
			})
		},
	}

	cmd.AddCommand(open, closeCmd, state)
	return cmd
}

func newSaltCommand(o *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "salt <hex>",
		Short: "Set the session salt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := o.session()
			if err != nil {
				return err
			}
			salt, err := decodeHex("salt", args[0])
			if err != nil {
				return err
			}
			return o.call(cmd, func(ctx context.Context, c *api.Client) error {
				resp, err := c.SetSalt(ctx, id, salt)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), resp.State)
				return nil
			})
		},
	}
}

func newExtractCommand(o *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "extract <ikm-hex>",
		Short: "Extract a PRK and print it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := o.session()
			if err != nil {
				return err
			}
			ikm, err := decodeHex("ikm", args[0])
			if err != nil {
				return err
			}
			return o.call(cmd, func(ctx context.Context, c *api.Client) error {
				resp, err := c.Extract(ctx, id, ikm)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(resp.PRK))
				return nil
			})
		},
	}
}

func newExpandCommand(o *Options) *cobra.Command {
	var (
		info, infoHex string
		length        uint32
	)
	cmd := &cobra.Command{
		Use:   "expand",
		Short: "Expand output keying material from the session PRK",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := o.session()
			if err != nil {
				return err
			}
			infoB, err := infoBytes(info, infoHex)
			if err != nil {
				return err
			}
			return o.call(cmd, func(ctx context.Context, c *api.Client) error {
				resp, err := c.Expand(ctx, &api.ExpandRequest{SessionID: id, Info: infoB, Length: length})
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(resp.OKM))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&info, "info", "", "Context info (string)")
	cmd.Flags().StringVar(&infoHex, "info-hex", "", "Context info (hex), overrides --info")
	cmd.Flags().Uint32Var(&length, "length", 0, "Output length in bytes (0 uses the server default)")
	return cmd
}

func newRotateCommand(o *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "rotate",
		Short: "Rotate the session PRK and print the new one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := o.session()
			if err != nil {
				return err
			}
			return o.call(cmd, func(ctx context.Context, c *api.Client) error {
				resp, err := c.Rotate(ctx, id)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(resp.PRK))
				return nil
			})
		},
	}
}
