package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/varoOP/shinkrorec/internal/app"
)

var forYouCmd = &cobra.Command{
	Use:   "foryou",
	Short: "Recommend anime from the top genres of your watchlist",
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer application.Close()

		return printForYou(cmd, application)
	},
}

func printForYou(cmd *cobra.Command, application *app.App) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	application.Discover.Wait()

	top := application.Discover.TopGenres()
	if len(top) == 0 {
		fmt.Fprintln(out, "Add a few shows to your watchlist to unlock personalized picks.")
		return nil
	}

	names := map[int]string{}
	for _, e := range application.Watchlist.All(ctx) {
		for _, g := range e.Genres {
			names[g.MalID] = g.Name
		}
	}
	labels := make([]string, 0, len(top))
	for _, id := range top {
		labels = append(labels, names[id])
	}
	fmt.Fprintf(out, "\nFor You (based on %s)\n", strings.Join(labels, ", "))

	st := application.Discover.ForYouState()
	if st.Err != "" {
		return fmt.Errorf("failed to load recommendations: %s", st.Err)
	}

	printItems(out, application.Discover.Annotate(ctx, st.Data))
	return nil
}

func init() {
	rootCmd.AddCommand(forYouCmd)
}
