package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"atlas/internal/countries/models"
)

var numbers = message.NewPrinter(language.English)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func printCountries(w io.Writer, countries []models.Country) error {
	if len(countries) == 0 {
		_, err := fmt.Fprintln(w, "No countries found.")
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "CODE\tNAME\tCAPITAL\tREGION\tPOPULATION")
	for _, c := range countries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			c.Code, c.Name, orDash(c.Capital), orDash(c.Region), numbers.Sprintf("%d", c.Population))
	}
	return tw.Flush()
}

func printCountry(w io.Writer, c *models.Country) error {
	tw := newTable(w)
	fmt.Fprintf(tw, "Name:\t%s\n", c.Name)
	fmt.Fprintf(tw, "Code:\t%s\n", c.Code)
	fmt.Fprintf(tw, "Capital:\t%s\n", orDash(c.Capital))
	fmt.Fprintf(tw, "Region:\t%s\n", orDash(c.Region))
	fmt.Fprintf(tw, "Population:\t%s\n", numbers.Sprintf("%d", c.Population))
	fmt.Fprintf(tw, "Timezones:\t%s\n", orDash(strings.Join(c.Timezone, ", ")))

	currencies := make([]string, 0, len(c.Currencies))
	for _, cur := range c.Currencies {
		entry := cur.Code + " " + cur.Name
		if cur.Symbol != "" {
			entry += " (" + cur.Symbol + ")"
		}
		currencies = append(currencies, entry)
	}
	fmt.Fprintf(tw, "Currencies:\t%s\n", orDash(strings.Join(currencies, ", ")))

	languages := make([]string, 0, len(c.Languages))
	for _, lang := range c.Languages {
		entry := lang.Name
		if lang.NativeName != "" && lang.NativeName != lang.Name {
			entry += " (" + lang.NativeName + ")"
		}
		languages = append(languages, entry)
	}
	fmt.Fprintf(tw, "Languages:\t%s\n", orDash(strings.Join(languages, ", ")))
	fmt.Fprintf(tw, "Borders:\t%s\n", orDash(strings.Join(c.Borders, ", ")))
	fmt.Fprintf(tw, "Flag:\t%s\n", orDash(c.Flag))
	return tw.Flush()
}

func orDash(v string) string {
	if v == "" {
		return "-"
	}
	return v
}
