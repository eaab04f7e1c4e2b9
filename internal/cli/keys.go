package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/glinharesb/hkdf-vault/internal/api"
	"github.com/glinharesb/hkdf-vault/internal/keystore"
)

var keyTypeNames = map[string]keystore.KeyType{
	"des":         keystore.TypeDES,
	"rsa-public":  keystore.TypeRSAPublic,
	"rsa-private": keystore.TypeRSAPrivate,
	"ec-private":  keystore.TypeECPrivate,
	"aes":         keystore.TypeAES,
}

// parseKeyType accepts a type name or a numeric type code.
func parseKeyType(s string) (uint32, error) {
	if t, ok := keyTypeNames[strings.ToLower(s)]; ok {
		return uint32(t), nil
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("unknown key type %q", s)
	}
	return uint32(n), nil
}

func newKeyCommand(o *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage the session key store",
	}

	var (
		typ     string
		length  uint32
		encrypt bool
	)
	request := func() (*api.KeyRequest, error) {
		id, err := o.session()
		if err != nil {
			return nil, err
		}
		t, err := parseKeyType(typ)
		if err != nil {
			return nil, err
		}
		return &api.KeyRequest{SessionID: id, Type: t, Length: length, SupportsEncryption: encrypt}, nil
	}

	obtain := func(use, short string, fn func(*api.Client, context.Context, *api.KeyRequest) (*api.KeyMetadata, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				req, err := request()
				if err != nil {
					return err
				}
				return o.call(cmd, func(ctx context.Context, c *api.Client) error {
					meta, err := fn(c, ctx, req)
					if err != nil {
						return err
					}
					printKeys(cmd.OutOrStdout(), []*api.KeyMetadata{meta})
					return nil
				})
			},
		}
	}

	get := obtain("get", "Get or create the key for an identity", (*api.Client).GetKey)
	update := obtain("update", "Replace the key for an identity", (*api.Client).UpdateKey)

	del := &cobra.Command{
		Use:   "delete",
		Short: "Delete and destroy the key for an identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := request()
			if err != nil {
				return err
			}
			return o.call(cmd, func(ctx context.Context, c *api.Client) error {
				return c.DeleteKey(ctx, req)
			})
		},
	}

	for _, c := range []*cobra.Command{get, update, del} {
		c.Flags().StringVar(&typ, "type", "aes", "Key type: des, aes, rsa-public, rsa-private, ec-private or a type code")
		c.Flags().Uint32Var(&length, "length", 128, "Key length in bits")
		c.Flags().BoolVar(&encrypt, "encrypt", false, "Wrap the key material at rest")
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List the keys of the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := o.session()
			if err != nil {
				return err
			}
			return o.call(cmd, func(ctx context.Context, c *api.Client) error {
				resp, err := c.ListKeys(ctx, id)
				if err != nil {
					return err
				}
				printKeys(cmd.OutOrStdout(), resp.Keys)
				return nil
			})
		},
	}

	cmd.AddCommand(get, update, del, list)
	return cmd
}

func printKeys(out io.Writer, keys []*api.KeyMetadata) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tLENGTH\tENCRYPTED\tCREATED")
	for _, k := range keys {
		fmt.Fprintf(w, "%s\t%s\t%d\t%t\t%s\n", k.ID, k.TypeName, k.Length, k.SupportsEncryption, k.CreatedAt.Format("2006-01-02T15:04:05Z07:00"))
	}
	w.Flush()
}
