package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search anime by title",
	Long: `Search the catalog by title, best scored first.
Saved anime are marked with '*'.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		page, _ := cmd.Flags().GetInt("page")

		application, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer application.Close()

		ctx := cmd.Context()
		if !application.Discover.Search(ctx, strings.Join(args, " "), page) {
			return fmt.Errorf("empty search query")
		}
		application.Discover.Wait()

		st := application.Discover.SearchState()
		if st.Err != "" {
			return fmt.Errorf("search failed: %s", st.Err)
		}

		printItems(cmd.OutOrStdout(), application.Discover.Annotate(ctx, st.Data))
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show an anime with related picks and your reviews",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		application, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer application.Close()

		ctx := cmd.Context()
		application.Discover.Select(ctx, id)
		application.Discover.Wait()

		st := application.Discover.SelectionState()
		out := cmd.OutOrStdout()
		if st.Data.Anime != nil {
			printSelection(out, st.Data, application.Watchlist.Contains(ctx, id))
			printReviews(out, application.Reviews.List(ctx, id))
		}
		if st.Err != "" {
			return fmt.Errorf("failed to load anime %d: %s", id, st.Err)
		}

		return nil
	},
}

var saveCmd = &cobra.Command{
	Use:   "save <id>",
	Short: "Save an anime to the watchlist, or remove it when already saved",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		application, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer application.Close()

		anime, added, err := application.Toggle(cmd.Context(), id)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if added {
			fmt.Fprintf(out, "Saved %s\n", anime.DisplayTitle())
		} else {
			fmt.Fprintf(out, "Removed %s\n", anime.DisplayTitle())
		}

		return printForYou(cmd, application)
	},
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid anime id: %q", s)
	}
	return id, nil
}

func init() {
	searchCmd.Flags().Int("page", 1, "result page")

	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(saveCmd)
}
