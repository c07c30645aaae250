package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/japaniel/qisas/pkg/db"
	"github.com/japaniel/qisas/pkg/dictionary"
	"github.com/japaniel/qisas/pkg/story"
	"github.com/spf13/cobra"
)

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import stories and vocabularies",
	}
	cmd.AddCommand(newImportStoriesCmd())
	cmd.AddCommand(newImportVocabCmd())
	cmd.AddCommand(newImportCommonCmd())
	cmd.AddCommand(newImportURLCmd())
	return cmd
}

func newImportStoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stories FILE...",
		Short: "Import stories from JSON or YAML files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			for _, path := range args {
				stories, err := story.LoadStories(path)
				if err != nil {
					return err
				}
				for _, s := range stories {
					if _, err := a.saveStory(cmd.Context(), s, ""); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "imported %s (%d paragraphs, %d glosses)\n",
						s.Slug, len(s.Content.Arabic), len(s.Vocabulary))
				}
			}
			return nil
		},
	}
}

func newImportVocabCmd() *cobra.Command {
	var slug string
	var replace bool

	cmd := &cobra.Command{
		Use:   "vocab FILE...",
		Short: "Import vocabulary files into the common vocabulary or a story's",
		Long: "Import vocabulary files. Later files override earlier ones. Without --story the\n" +
			"entries go to the common vocabulary shared by every story.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			storyID := db.CommonVocabulary
			target := "common vocabulary"
			if slug != "" {
				s, err := a.story(slug)
				if err != nil {
					return err
				}
				storyID = s.ID
				target = s.Slug
			}

			dict, err := dictionary.LoadVocabularies(cmd.Context(), args...)
			if err != nil {
				return err
			}
			n, err := a.vocab.Import(cmd.Context(), storyID, dict, replace)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d glosses into %s\n", n, target)
			return nil
		},
	}
	cmd.Flags().StringVar(&slug, "story", "", "Story id to attach the vocabulary to")
	cmd.Flags().BoolVar(&replace, "replace", false, "Remove existing entries first")
	return cmd
}

func newImportCommonCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "common",
		Short: "Import the configured common vocabulary, downloading it if missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.importCommon(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d glosses from %s\n", n, a.cfg.Paths.CommonVocab)
			return nil
		},
	}
}

func newImportURLCmd() *cobra.Command {
	var slug string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "url URL",
		Short: "Import the main article of a web page as a story",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			client := &http.Client{Timeout: timeout}
			s, err := story.Import(cmd.Context(), client, args[0], slug)
			if err != nil {
				return err
			}
			if _, err := a.saveStory(cmd.Context(), s, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %s %q (%d paragraphs)\n", s.Slug, s.Title.Arabic, len(s.Content.Arabic))
			return nil
		},
	}
	cmd.Flags().StringVar(&slug, "slug", "", "Story id (derived from the URL when empty)")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "HTTP timeout")
	return cmd
}
