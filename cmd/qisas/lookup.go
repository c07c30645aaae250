package main

import (
	"fmt"

	"github.com/japaniel/qisas/pkg/db"
	"github.com/japaniel/qisas/pkg/dictionary"
	"github.com/japaniel/qisas/pkg/gloss"
	"github.com/spf13/cobra"
)

func newLookupCmd() *cobra.Command {
	var slug string
	var limit int

	cmd := &cobra.Command{
		Use:   "lookup WORD",
		Short: "Look a word or phrase up, suggesting close entries when it has no gloss",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()
			a.ensureCommon(cmd.Context())

			storyID := db.CommonVocabulary
			if slug != "" {
				s, err := a.story(slug)
				if err != nil {
					return err
				}
				storyID = s.ID
			}
			entry, err := a.vocab.ForStory(storyID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			word := args[0]
			if tr, ok := entry.Dictionary[word]; ok {
				fmt.Fprintf(out, "%s\t%s\n", word, tr)
				return nil
			}
			if clean := gloss.CleanWord(word); clean != word {
				if tr, ok := entry.Dictionary[clean]; ok {
					fmt.Fprintf(out, "%s\t%s\n", clean, tr)
					return nil
				}
			}
			suggestions := dictionary.Suggest(word, entry.Dictionary, limit)
			if len(suggestions) == 0 {
				fmt.Fprintf(out, "no gloss for %s\n", word)
				return nil
			}
			fmt.Fprintf(out, "no gloss for %s, did you mean:\n", word)
			for _, s := range suggestions {
				fmt.Fprintf(out, "  %s\t%s\t%.2f\n", s.Key, s.Translation, s.Score)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&slug, "story", "", "Include this story's vocabulary")
	cmd.Flags().IntVar(&limit, "limit", 5, "Maximum number of suggestions")
	return cmd
}
