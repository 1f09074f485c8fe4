package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Rate and comment on anime",
}

var reviewAddCmd = &cobra.Command{
	Use:   "add <id>",
	Short: "Add a review",
	Long: `Add a review to the log of an anime. Ratings are 1 to 5 stars;
a review needs a rating or a comment.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		rating, _ := cmd.Flags().GetInt("rating")
		comment, _ := cmd.Flags().GetString("comment")

		application, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer application.Close()

		ok, err := application.Reviews.Add(cmd.Context(), id, rating, comment)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("nothing to add: give a rating or a comment")
		}

		printReviews(cmd.OutOrStdout(), application.Reviews.List(cmd.Context(), id))
		return nil
	},
}

var reviewListCmd = &cobra.Command{
	Use:   "list <id>",
	Short: "List the reviews of an anime, newest first",
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

		printReviews(cmd.OutOrStdout(), application.Reviews.List(cmd.Context(), id))
		return nil
	},
}

func init() {
	reviewAddCmd.Flags().Int("rating", 5, "stars from 1 to 5, 0 for none")
	reviewAddCmd.Flags().String("comment", "", "short comment")

	reviewCmd.AddCommand(reviewAddCmd)
	reviewCmd.AddCommand(reviewListCmd)
	rootCmd.AddCommand(reviewCmd)
}
