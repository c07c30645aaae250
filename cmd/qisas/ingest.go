package main

import (
	"fmt"

	"github.com/japaniel/qisas/pkg/db"
	"github.com/japaniel/qisas/pkg/ingest"
	"github.com/spf13/cobra"
)

func newIngestCmd() *cobra.Command {
	var reset bool
	var top int

	cmd := &cobra.Command{
		Use:   "ingest STORY",
		Short: "Count where glossed words and phrases occur in a story",
		Long: "Tokenize every paragraph of a story and record how often each glossed word or\n" +
			"phrase occurs. An interrupted run resumes where it stopped.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()
			a.ensureCommon(cmd.Context())

			s, err := a.story(args[0])
			if err != nil {
				return err
			}
			if reset {
				if err := db.ClearOccurrences(a.conn, s.ID); err != nil {
					return err
				}
			}
			paras, err := db.GetParagraphs(a.conn, s.ID)
			if err != nil {
				return err
			}

			ig := ingest.NewIngester(a.conn, a.vocab)
			ig.Workers = a.cfg.Ingest.Workers
			ig.BatchSize = a.cfg.Ingest.BatchSize
			ig.Logger = a.log
			ig.OnProgress = func(current, total int) {
				a.log.Debug("ingest progress", "story", s.Slug, "current", current, "total", total)
			}
			n, err := ig.Ingest(cmd.Context(), s.ID, paras)
			if err != nil {
				return fmt.Errorf("ingest %s: %w", s.Slug, err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "recorded %d occurrences\n", n)
			occ, err := db.GetOccurrences(a.conn, s.ID)
			if err != nil {
				return err
			}
			for i, o := range occ {
				if i == top {
					break
				}
				kind := "word"
				if o.IsPhrase {
					kind = "phrase"
				}
				fmt.Fprintf(out, "%4d  %-6s  %s\t%s\n", o.OccurrenceCount, kind, o.Key, o.Translation)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "Discard recorded occurrences and start over")
	cmd.Flags().IntVar(&top, "top", 10, "Number of most frequent entries to print")
	return cmd
}
