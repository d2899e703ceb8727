package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"finitefield.org/storefront/internal/export"
)

func newExportCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the catalog to an .xlsx or .csv file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			write, err := export.ForPath(out)
			if err != nil {
				return err
			}
			src, closer, err := a.source()
			if err != nil {
				return err
			}
			defer closer.Close()

			products, err := a.session(src).Catalog.GetAll(cmd.Context())
			if err != nil {
				return err
			}
			if dir := filepath.Dir(out); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return err
				}
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := write(f, products, a.cfg.Site.Currency); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			a.log.WithField("products", len(products)).WithField("out", out).Info("catalog exported")
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d products to %s\n", len(products), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "catalog.xlsx", "output file (.xlsx or .csv)")
	return cmd
}
