package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spacesedan/instalens/internal/format"
	"github.com/spacesedan/instalens/internal/models"
)

const topPostsShown = 10

func renderReport(out io.Writer, r models.Report) error {
	o := r.Overview

	fmt.Fprintf(out, "Report for @%s (%s to %s, %s-%s)\n", o.Handle, r.Query.From, r.Query.To, r.Query.Start, r.Query.End)
	if r.FromCache {
		fmt.Fprintln(out, "Annotation failed, showing the last cached dataset.")
	}
	fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Posts\t%s\n", format.Indian(o.TotalPosts))
	fmt.Fprintf(w, "Likes\t%s\n", format.Indian(o.TotalLikes))
	fmt.Fprintf(w, "Comments\t%s\n", format.Indian(o.TotalComments))
	fmt.Fprintf(w, "Positive\t%.1f%%\n", o.PositivePct)
	fmt.Fprintf(w, "Negative\t%.1f%%\n", o.NegativePct)
	fmt.Fprintf(w, "Neutral\t%.1f%%\n", o.NeutralPct)
	if err := w.Flush(); err != nil {
		return err
	}

	if len(r.Summaries) == 0 {
		fmt.Fprintln(out, "\nNo posts in the selected range.")
		return nil
	}

	fmt.Fprintln(out, "\nPosts")
	if err := renderEntries(out, r.Summaries); err != nil {
		return err
	}

	top := r.TopByLikes
	if len(top) > topPostsShown {
		top = top[:topPostsShown]
	}
	fmt.Fprintln(out, "\nTop posts by likes")
	return renderEntries(out, top)
}

func renderEntries(out io.Writer, entries []models.SummaryEntry) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "URL\tCAPTION\tHASHTAGS\tLIKES\tCOMMENTS\tSENTIMENT")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			e.URL, e.Caption, e.Hashtags, e.FormattedLikes, e.Comments, e.DominantDisplay())
	}
	return w.Flush()
}
