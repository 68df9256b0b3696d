package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"atlas/internal/countries/models"
)

func newListCmd(app *cli) *cobra.Command {
	var page, limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show one page of the name-sorted country list",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			countries, err := app.client().FetchCountries(cmd.Context(), page, limit)
			if err != nil {
				return err
			}
			return printCountries(cmd.OutOrStdout(), countries)
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page number, starting at 1")
	cmd.Flags().IntVar(&limit, "limit", app.cfg.PageSize, "countries per page")
	return cmd
}

func newShowCmd(app *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "show <code>",
		Short: "Show the full record for a country code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			country, err := app.client().FetchCountryByCode(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printCountry(cmd.OutOrStdout(), country)
		},
	}
}

func newSearchCmd(app *cli) *cobra.Command {
	var params models.SearchParams
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Filter by name, capital, region, or timezone",
		Long: `Search matches case-insensitive substrings. Every flag given must match;
with no flags the whole list is returned.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			params.Normalize()
			countries, err := app.client().SearchCountries(cmd.Context(), params)
			if err != nil {
				return err
			}
			return printCountries(cmd.OutOrStdout(), countries)
		},
	}
	cmd.Flags().StringVar(&params.Name, "name", "", "substring of the common name")
	cmd.Flags().StringVar(&params.Capital, "capital", "", "substring of the capital")
	cmd.Flags().StringVar(&params.Region, "region", "", "region name, exact match ignoring case")
	cmd.Flags().StringVar(&params.Timezone, "timezone", "", "substring of any timezone, e.g. UTC+01")
	return cmd
}

func newRegionCmd(app *cli) *cobra.Command {
	return &cobra.Command{
		Use:     "region <name>",
		Short:   "List every country in a region",
		Example: "  atlas region Europe",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			countries, err := app.client().FetchCountriesByRegion(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%d countries in %s\n", len(countries), args[0]); err != nil {
				return err
			}
			return printCountries(cmd.OutOrStdout(), countries)
		},
	}
}
