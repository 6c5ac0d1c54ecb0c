package cmd

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sarchlab/bgas/datarecording"
	"github.com/sarchlab/bgas/mem/olb"
)

var statsCmd = &cobra.Command{
	Use:   "stats [database]",
	Short: "Print the OLB statistics recorded by a run.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reader, err := datarecording.NewReader(args[0])
		if err != nil {
			return err
		}
		defer reader.Close()

		location, _ := cmd.Flags().GetString("location")

		return printStats(cmd.Context(), cmd.OutOrStdout(), reader, location)
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().String("location", "", "Only print this OLB")
}

func printStats(
	ctx context.Context,
	out io.Writer,
	reader datarecording.DataReader,
	location string,
) error {
	if ctx == nil {
		ctx = context.Background()
	}

	reader.MapTable(olb.StatTable, olb.StatEntry{})

	params := datarecording.QueryParams{OrderBy: "Location, Stat"}
	if location != "" {
		params.Where = "Location = ?"
		params.Args = []any{location}
	}

	rows, err := reader.Query(ctx, olb.StatTable, params)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "LOCATION\tSTAT\tVALUE")

	for _, row := range rows {
		e := row.(*olb.StatEntry)
		fmt.Fprintf(w, "%s\t%s\t%d\n", e.Location, e.Stat, e.Value)
	}

	return w.Flush()
}
