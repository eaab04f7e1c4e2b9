package cli

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/glinharesb/hkdf-vault/internal/hsm"
	"github.com/glinharesb/hkdf-vault/internal/kdf"
)

func newDeriveCommand() *cobra.Command {
	var (
		salt, ikm, info, infoHex, label string
		length, rotations               int
		showPRK                         bool
	)

	cmd := &cobra.Command{
		Use:   "derive",
		Short: "Run extract and expand locally",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if ikm == "" {
				return errors.New("--ikm is required")
			}
			saltBytes, err := decodeHex("salt", salt)
			if err != nil {
				return err
			}
			ikmBytes, err := decodeHex("ikm", ikm)
			if err != nil {
				return err
			}
			infoB, err := infoBytes(info, infoHex)
			if err != nil {
				return err
			}

			engine, err := kdf.New(kdf.Config{RotateLabel: []byte(label), MaxInfo: max(len(infoB), kdf.DefaultMaxInfo)}, hsm.NewSoftwareHSM().HMAC)
			if err != nil {
				return err
			}
			defer engine.Wipe()

			var prk, okm []byte
			err = engine.Do(func(tx *kdf.Tx) error {
				if err := tx.SetSalt(saltBytes); err != nil {
					return err
				}
				if prk, err = tx.Extract(ikmBytes); err != nil {
					return err
				}
				for i := 0; i < rotations; i++ {
					if prk, err = tx.Rotate(); err != nil {
						return err
					}
				}
				okm, err = tx.Expand(infoB, length)
				return err
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if showPRK {
				fmt.Fprintf(out, "prk: %s\n", hex.EncodeToString(prk))
				fmt.Fprintf(out, "okm: %s\n", hex.EncodeToString(okm))
				return nil
			}
			fmt.Fprintln(out, hex.EncodeToString(okm))
			return nil
		},
	}

	cmd.Flags().StringVar(&salt, "salt", "", "Salt (hex, 1-64 bytes)")
	cmd.Flags().StringVar(&ikm, "ikm", "", "Input keying material (hex)")
	cmd.Flags().StringVar(&info, "info", "", "Context info (string)")
	cmd.Flags().StringVar(&infoHex, "info-hex", "", "Context info (hex), overrides --info")
	cmd.Flags().IntVar(&length, "length", kdf.DefaultOutputLength, "Output length in bytes")
	cmd.Flags().IntVar(&rotations, "rotate", 0, "Rotate the PRK this many times before expanding")
	cmd.Flags().StringVar(&label, "label", "", "Rotate label (default \"rotate\")")
	cmd.Flags().BoolVar(&showPRK, "show-prk", false, "Also print the PRK")
	return cmd
}
