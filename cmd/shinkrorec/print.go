package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/varoOP/shinkrorec/internal/discover"
	"github.com/varoOP/shinkrorec/internal/domain"
	"github.com/varoOP/shinkrorec/internal/jikan"
)

func printItems(w io.Writer, items []discover.Item) {
	if len(items) == 0 {
		fmt.Fprintln(w, "No results.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, it := range items {
		mark := " "
		if it.Saved {
			mark = "*"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\n", mark, it.MalID, it.DisplayTitle(), kind(it.Type), episodes(it.Episodes), score(it.Score))
	}
	tw.Flush()
}

func printEntries(w io.Writer, entries []domain.WatchlistEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No items yet. Use 'shinkrorec save <id>' to add some.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, e := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", e.MalID, e.Title, kind(e.Type), episodes(e.Episodes), score(e.Score), genreNames(e.Genres))
	}
	tw.Flush()
}

func printSelection(w io.Writer, sel domain.Selection, saved bool) {
	a := sel.Anime
	status := "Save"
	if saved {
		status = "Saved"
	}

	fmt.Fprintf(w, "%s [%s]\n", a.DisplayTitle(), status)
	fmt.Fprintf(w, "%s • %s eps • ★ %s\n", kind(a.Type), episodes(a.Episodes), score(a.Score))
	if img := a.Images.Large(); img != "" {
		fmt.Fprintln(w, img)
	}
	if a.Synopsis != "" {
		fmt.Fprintf(w, "\n%s\n", a.Synopsis)
	}
	if len(a.Genres) > 0 {
		fmt.Fprintf(w, "\nGenres: %s\n", genreNames(a.Genres))
	}

	fmt.Fprintln(w, "\nRecommendations")
	if len(sel.Related) == 0 {
		fmt.Fprintln(w, "No recommendations found.")
		return
	}
	for _, r := range sel.Related {
		fmt.Fprintf(w, "  %s  %s\n", r.DisplayTitle(), jikan.AnimeURL(r.MalID))
	}
}

func printReviews(w io.Writer, reviews []domain.Review) {
	fmt.Fprintln(w, "\nYour Reviews")
	if len(reviews) == 0 {
		fmt.Fprintln(w, "No reviews yet.")
		return
	}
	for _, r := range reviews {
		fmt.Fprintf(w, "  %s  %s\n", stars(r.Rating), r.CreatedAt.Local().Format(time.DateTime))
		if r.Comment != "" {
			fmt.Fprintf(w, "    %s\n", r.Comment)
		}
	}
}

func stars(rating int) string {
	if rating < domain.MinRating {
		rating = domain.MinRating
	}
	if rating > domain.MaxRating {
		rating = domain.MaxRating
	}
	return strings.Repeat("★", rating) + strings.Repeat("☆", domain.MaxRating-rating)
}

func kind(t *string) string {
	if t == nil || *t == "" {
		return "?"
	}
	return *t
}

func episodes(n *int) string {
	if n == nil {
		return "?"
	}
	return fmt.Sprintf("%d", *n)
}

func score(s *float64) string {
	if s == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.2f", *s)
}

func genreNames(genres []domain.GenreTag) string {
	names := make([]string, 0, len(genres))
	for _, g := range genres {
		names = append(names, g.Name)
	}
	return strings.Join(names, ", ")
}
