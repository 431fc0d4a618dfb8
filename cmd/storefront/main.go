package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/storefront/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errors.Fprint(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configDir string

	rootCmd := &cobra.Command{
		Use:   "storefront",
		Short: "Storefront navigation and shopper state server",
		Long: `Storefront serves a product catalog with URL-synchronized navigation.

Shop filters, pagination and the active page live in the location
fragment (#/shop?brands=Nike&page=2), so every view can be bookmarked,
shared and restored with the browser history. Cart, wishlist and theme
are kept per shopper in a pluggable store (memory, file, S3, Redis).`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configDir, "config", "c", ".", "Directory holding storefront.json or storefront.yaml")

	rootCmd.AddCommand(
		serveCmd(&configDir),
		resolveCmd(&configDir),
		encodeCmd(),
		errorsCmd(),
		versionCmd(),
	)
	return rootCmd
}

// success prints a success message.
func success(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.ErrOrStderr(), "\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.ErrOrStderr(), "  %s\n", fmt.Sprintf(format, args...))
}
