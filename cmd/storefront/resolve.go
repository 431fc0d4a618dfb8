package main

import (
	"encoding/json"
	stderrors "errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/vango-dev/storefront/internal/config"
	"github.com/vango-dev/storefront/internal/errors"
	"github.com/vango-dev/storefront/pkg/catalog"
	"github.com/vango-dev/storefront/pkg/nav"
)

func resolveCmd(configDir *string) *cobra.Command {
	var catalogPath string

	cmd := &cobra.Command{
		Use:   "resolve <fragment>",
		Short: "Decode a location fragment into navigation state",
		Long: `Decode a location fragment the way a browser session would and print
the resulting navigation state as JSON, together with its canonical form.

Product pages are resolved against the catalog. An unknown product fails
with the redirect a live session would perform.

Examples:
  storefront resolve '#/shop?brands=Nike,Zara&maxPrice=300&page=2'
  storefront resolve '#/product?id=42' --catalog products.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := resolveCatalog(cmd, *configDir, catalogPath)
			if err != nil {
				return err
			}

			parsed, err := nav.Parse(args[0], nil, cat)
			if stderrors.Is(err, nav.ErrProductNotFound) {
				return errors.New(errors.CodeProductNotFound).
					WithField(args[0]).
					WithSuggestion("A live session replaces this location with #/home.")
			}
			if err != nil {
				return err
			}

			out := struct {
				nav.Parsed
				Canonical string `json:"canonical"`
			}{parsed, "#" + parsed.Fragment()}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}

	cmd.Flags().StringVar(&catalogPath, "catalog", "", "Catalog JSON file (default from config)")

	return cmd
}

// resolveCatalog loads the --catalog file, or the configured catalog.
func resolveCatalog(cmd *cobra.Command, dir, path string) (catalog.Catalog, error) {
	if path != "" {
		cat, err := catalog.LoadFile(path)
		if err != nil {
			return nil, catalogError(err).WithField(path)
		}
		return cat, nil
	}

	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelError}))
	store, closeStore, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return nil, err
	}
	defer closeStore()
	return loadCatalog(cmd.Context(), cfg, store, logger)
}
