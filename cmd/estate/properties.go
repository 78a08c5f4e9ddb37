package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/josh-kwaku/estate-checkout/internal/domain"
	"github.com/josh-kwaku/estate-checkout/internal/property"
)

func propertiesCmd(a *app) *cobra.Command {
	var (
		f                  property.Filter
		minPrice, maxPrice string
	)

	cmd := &cobra.Command{
		Use:   "properties",
		Short: "List properties",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if f.MinPrice, err = parsePrice(minPrice); err != nil {
				return fmt.Errorf("--min-price: %w", err)
			}
			if f.MaxPrice, err = parsePrice(maxPrice); err != nil {
				return fmt.Errorf("--max-price: %w", err)
			}

			items, err := a.listings.List(cmd.Context(), f)
			if err != nil {
				return err
			}
			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No properties match.")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tTYPE\tLISTING\tCITY\tBEDS\tPRICE")
			for _, p := range items {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
					p.ID, p.Title, p.PropertyType, p.ListingType, p.City, p.Bedrooms, p.Price.StringFixed(2))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&f.PropertyType, "type", "", "property type (house, apartment, townhouse, land)")
	cmd.Flags().StringVar(&f.ListingType, "listing", "", "listing type (sale, rent)")
	cmd.Flags().StringVar(&f.City, "city", "", "city")
	cmd.Flags().StringVar(&minPrice, "min-price", "", "minimum price")
	cmd.Flags().StringVar(&maxPrice, "max-price", "", "maximum price")
	cmd.Flags().IntVar(&f.Bedrooms, "bedrooms", 0, "minimum bedrooms")
	cmd.Flags().BoolVar(&f.Featured, "featured", false, "featured listings only")
	return cmd
}

func propertyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "property <id>",
		Short: "Show one property",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.listings.Get(cmd.Context(), domain.ID(args[0]))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\n", p.Title)
			fmt.Fprintf(out, "  %s, %s\n", p.Address, p.City)
			fmt.Fprintf(out, "  %s for %s, %d bedrooms\n", p.PropertyType, p.ListingType, p.Bedrooms)
			fmt.Fprintf(out, "  Price: %s\n", p.Price.StringFixed(2))
			if p.ViewingFee.IsPositive() {
				fmt.Fprintf(out, "  Viewing fee: %s (book with `estate pay --property %s`)\n", p.ViewingFee.StringFixed(2), p.ID)
			}
			if p.Description != "" {
				fmt.Fprintf(out, "\n%s\n", p.Description)
			}
			return nil
		},
	}
}

func interestCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "interest <id>",
		Short: "Register interest in a property",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(cmd.Context()); err != nil {
				return err
			}
			in, err := a.listings.ExpressInterest(cmd.Context(), domain.ID(args[0]))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Interest recorded for property %s\n", in.Property)
			return nil
		},
	}
}

func parsePrice(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}
