package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/japaniel/qisas/pkg/db"
	"github.com/japaniel/qisas/pkg/gloss"
	"github.com/spf13/cobra"
)

// paragraphTokens is the JSON shape printed by `tokens --json`.
type paragraphTokens struct {
	Paragraph int           `json:"paragraph"`
	Text      string        `json:"text"`
	Tokens    []gloss.Token `json:"tokens"`
}

func newTokensCmd() *cobra.Command {
	var text string
	var paragraph int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "tokens [STORY]",
		Short: "Print the gloss tokens of a story or of --text",
		Long: "Print the gloss tokens of a story's paragraphs, or of --text. With a story id the\n" +
			"story's vocabulary is merged over the common one.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if text == "" && len(args) == 0 {
				return fmt.Errorf("give a story id or --text")
			}
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()
			a.ensureCommon(cmd.Context())

			storyID := db.CommonVocabulary
			var paras []db.Paragraph
			if len(args) == 1 {
				s, err := a.story(args[0])
				if err != nil {
					return err
				}
				storyID = s.ID
				if paras, err = db.GetParagraphs(a.conn, s.ID); err != nil {
					return err
				}
			}
			if text != "" {
				paras = []db.Paragraph{{Arabic: text}}
			} else if paragraph >= 0 {
				if paragraph >= len(paras) {
					return fmt.Errorf("story has %d paragraphs", len(paras))
				}
				paras = paras[paragraph : paragraph+1]
			}

			entry, err := a.vocab.ForStory(storyID)
			if err != nil {
				return err
			}
			out := make([]paragraphTokens, 0, len(paras))
			for _, p := range paras {
				tokens, err := entry.Tokenizer.Tokenize(p.Arabic)
				if err != nil {
					return fmt.Errorf("paragraph %d: %w", p.Position, err)
				}
				out = append(out, paragraphTokens{Paragraph: p.Position, Text: p.Arabic, Tokens: tokens})
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}
			printTokens(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&text, "text", "", "Tokenize this text instead of a stored story")
	cmd.Flags().IntVar(&paragraph, "paragraph", -1, "Only this paragraph position")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func printTokens(w io.Writer, paras []paragraphTokens) {
	for i, p := range paras {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "[%d] %s\n", p.Paragraph, p.Text)
		for _, t := range p.Tokens {
			switch {
			case t.IsPhrasePart:
				fmt.Fprintf(w, "  %d\t%s\t%s\t(%s)\n", t.Index, t.Text, t.Translation, t.PhraseKey)
			case t.Glossed():
				fmt.Fprintf(w, "  %d\t%s\t%s\n", t.Index, t.Text, t.Translation)
			default:
				fmt.Fprintf(w, "  %d\t%s\n", t.Index, t.Text)
			}
		}
	}
}
