package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"atlas/internal/dashboard/listing"
)

const browseHelp = `Commands:
  more             load the next page
  search <term>    filter by name (no term clears the search)
  region <name>    filter by region (no name clears the region)
  clear            remove both filters
  quit             exit`

func newBrowseCmd(app *cli) *cobra.Command {
	var pageSize int
	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Interactive paged browser with search and region filters",
		Long:  "Browse reads one command per line from stdin.\n\n" + browseHelp,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			loader := listing.New(app.client(),
				listing.WithPageSize(pageSize),
				listing.WithSearchDebounce(app.cfg.SearchDebounce),
				listing.WithLogger(app.logger()),
			)
			defer loader.Close()
			return browse(cmd.InOrStdin(), cmd.OutOrStdout(), loader)
		},
	}
	cmd.Flags().IntVar(&pageSize, "page-size", app.cfg.PageSize, "countries per page")
	return cmd
}

func browse(in io.Reader, out io.Writer, loader *listing.Loader) error {
	loader.Mount()
	loader.Wait()
	if err := printState(out, loader.State()); err != nil {
		return err
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		verb, arg, _ := strings.Cut(strings.TrimSpace(scanner.Text()), " ")
		arg = strings.TrimSpace(arg)

		switch strings.ToLower(verb) {
		case "":
			continue
		case "q", "quit", "exit":
			return nil
		case "help", "?":
			fmt.Fprintln(out, browseHelp)
			continue
		case "m", "more":
			st := loader.State()
			if st.FilterActive() || !st.HasMore {
				fmt.Fprintln(out, "No more countries to load.")
				continue
			}
			loader.LoadMore()
		case "s", "search":
			// A whole line is finished input; skip the keystroke debounce.
			loader.TypeSearch(arg)
			loader.FlushSearch()
		case "r", "region":
			loader.HandleRegionFilter(arg)
		case "clear":
			loader.HandleSearch("")
			loader.HandleRegionFilter("")
		default:
			fmt.Fprintf(out, "Unknown command %q. Type help for a list.\n", verb)
			continue
		}

		loader.Wait()
		if err := printState(out, loader.State()); err != nil {
			return err
		}
	}
}

func printState(w io.Writer, st listing.State) error {
	if st.Error != "" {
		fmt.Fprintln(w, st.Error)
	}
	if err := printCountries(w, st.Countries); err != nil {
		return err
	}

	var filters []string
	if st.SearchTerm != "" {
		filters = append(filters, fmt.Sprintf("search=%q", st.SearchTerm))
	}
	if st.SelectedRegion != "" {
		filters = append(filters, fmt.Sprintf("region=%q", st.SelectedRegion))
	}
	footer := fmt.Sprintf("%d shown, page %d", len(st.Countries), st.Page)
	if len(filters) > 0 {
		footer += ", " + strings.Join(filters, " ")
	}
	if st.HasMore {
		footer += ", type more for the next page"
	}
	_, err := fmt.Fprintln(w, footer)
	return err
}
