package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/japaniel/qisas/pkg/db"
	"github.com/spf13/cobra"
)

func newStoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stories",
		Short: "List imported stories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			stories, err := db.ListStories(a.conn)
			if err != nil {
				return err
			}
			if len(stories) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no stories imported yet")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tENGLISH\tPARAGRAPHS\tLEARNED")
			for _, s := range stories {
				paras, err := db.GetParagraphs(a.conn, s.ID)
				if err != nil {
					return err
				}
				learned, err := db.ListLearned(a.conn, s.ID)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\n", s.Slug, s.TitleArabic, s.TitleEnglish, len(paras), len(learned))
			}
			return w.Flush()
		},
	}
}
