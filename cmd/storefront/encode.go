package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/storefront/internal/errors"
	"github.com/vango-dev/storefront/pkg/filter"
	"github.com/vango-dev/storefront/pkg/nav"
)

func encodeCmd() *cobra.Command {
	var (
		view   string
		page   int
		fields map[string]string
		f      = filter.Default()
	)

	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Build a location fragment from filters",
		Long: `Build the location fragment a session writes for a page, its fields
and, on filterable pages, the filter state and page number.

Examples:
  storefront encode --brands=Nike,Zara --max-price=300 --page=2
  storefront encode --view=search --field q=boots --on-sale
  storefront encode --view=account --field tab=orders`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if page < filter.FirstPage {
				return errors.New(errors.CodeInvalidArguments).
					WithField("--page").
					WithDetail("Page numbers start at 1.")
			}
			if f.Rating < 0 || f.Rating > filter.MaxRating {
				return errors.New(errors.CodeInvalidArguments).
					WithField("--rating").
					WithDetail(fmt.Sprintf("Ratings range from 0 to %d.", filter.MaxRating))
			}
			for k := range fields {
				if filter.IsFilterKey(k) {
					return errors.New(errors.CodeInvalidArguments).
						WithField("--field " + k).
						WithSuggestion("Use the dedicated --" + flagName(k) + " flag for filter keys.")
				}
			}

			fmt.Fprintln(cmd.OutOrStdout(), "#"+nav.Build(view, fields, f.Normalize(), page))
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&view, "view", nav.PageShop, "Page identifier")
	flags.IntVar(&page, "page", filter.FirstPage, "Page number")
	flags.StringToStringVar(&fields, "field", nil, "Page field as key=value (repeatable)")
	flags.StringSliceVar(&f.Brands, "brands", nil, "Brands")
	flags.StringSliceVar(&f.Colors, "colors", nil, "Colors")
	flags.StringSliceVar(&f.Sizes, "sizes", nil, "Sizes")
	flags.StringSliceVar(&f.Materials, "materials", nil, "Materials")
	flags.StringSliceVar(&f.Categories, "categories", nil, "Categories")
	flags.IntVar(&f.PriceRange.Max, "max-price", filter.DefaultMaxPrice, "Maximum price")
	flags.IntVar(&f.Rating, "rating", 0, "Minimum rating")
	flags.BoolVar(&f.OnSale, "on-sale", false, "Only products on sale")

	return cmd
}

// flagName maps a filter key to its flag name.
func flagName(key string) string {
	switch key {
	case filter.KeyMaxPrice:
		return "max-price"
	case filter.KeyOnSale:
		return "on-sale"
	}
	return strings.ToLower(key)
}
