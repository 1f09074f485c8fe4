package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/varoOP/shinkrorec/internal/domain"
	"github.com/varoOP/shinkrorec/internal/repository"
)

var watchlistCmd = &cobra.Command{
	Use:   "watchlist",
	Short: "List saved anime, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer application.Close()

		printEntries(cmd.OutOrStdout(), application.Watchlist.All(cmd.Context()))
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the watchlist as JSON or YAML",
	Long: `Export the watchlist to stdout, or to a file with --output.
The format defaults to the extension of the output file, then to json.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		format, _ := cmd.Flags().GetString("format")

		f := domain.ExportFormat(format)
		if f == "" {
			f = repository.FormatFromPath(output)
		}

		application, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer application.Close()

		ctx := cmd.Context()
		entries := application.Watchlist.All(ctx)

		if output == "" {
			return repository.Encode(cmd.OutOrStdout(), f, entries)
		}

		if err := application.Archive.Store(ctx, output, f, entries); err != nil {
			return fmt.Errorf("export failed: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d entries to %s\n", len(entries), output)
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Add the entries of an exported watchlist that are not saved yet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer application.Close()

		added, err := application.Import(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("import failed: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d entries\n", added)
		return nil
	},
}

func init() {
	exportCmd.Flags().String("format", "", "output format: 'json' or 'yaml'")
	exportCmd.Flags().StringP("output", "o", "", "write to this file instead of stdout")

	watchlistCmd.AddCommand(exportCmd)
	watchlistCmd.AddCommand(importCmd)
	rootCmd.AddCommand(watchlistCmd)
}
