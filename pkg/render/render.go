// Package render draws tokenized paragraphs and learned-word lists for the
// terminal.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/japaniel/qisas/pkg/db"
	"github.com/japaniel/qisas/pkg/gloss"
)

var (
	learnedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00D787"))

	glossedStyle = lipgloss.NewStyle().
			Underline(true).
			Foreground(lipgloss.Color("#FFFFFF"))

	plainStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))

	englishStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			Italic(true)

	popupStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#FFAA00")).
			Padding(0, 1)

	listTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFAA00"))

	listStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("#444444")).
			PaddingLeft(1)
)

// Kind is how a token is highlighted.
type Kind int

const (
	Plain Kind = iota
	Glossed
	Learned
)

// KindOf classifies a token against the learned set, which is keyed by
// gloss.Token.LearnedKey.
func KindOf(t gloss.Token, learned map[string]bool) Kind {
	if !t.Glossed() {
		return Plain
	}
	if learned[t.LearnedKey()] {
		return Learned
	}
	return Glossed
}

func styleFor(k Kind) lipgloss.Style {
	switch k {
	case Learned:
		return learnedStyle
	case Glossed:
		return glossedStyle
	default:
		return plainStyle
	}
}

// Paragraph renders the tokens of paragraph. The text between tokens is
// copied from paragraph, so the original spacing survives. selected is the
// index of the token under the cursor, or -1.
func Paragraph(paragraph string, tokens []gloss.Token, learned map[string]bool, selected int) string {
	var b strings.Builder
	cursor := 0
	for _, t := range tokens {
		if t.Start < cursor || t.End > len(paragraph) {
			// Tokens from a different paragraph; render them space separated.
			return joinTokens(tokens, learned, selected)
		}
		b.WriteString(paragraph[cursor:t.Start])
		b.WriteString(token(t, learned, selected))
		cursor = t.End
	}
	b.WriteString(paragraph[cursor:])
	return b.String()
}

func joinTokens(tokens []gloss.Token, learned map[string]bool, selected int) string {
	parts := make([]string, len(tokens))
	for i, t := range tokens {
		parts[i] = token(t, learned, selected)
	}
	return strings.Join(parts, " ")
}

func token(t gloss.Token, learned map[string]bool, selected int) string {
	style := styleFor(KindOf(t, learned))
	if t.Index == selected {
		style = style.Reverse(true)
	}
	return style.Render(t.Text)
}

// English renders the English rendering of a paragraph.
func English(text string) string {
	if text == "" {
		return ""
	}
	return englishStyle.Render(text)
}

// Popup renders the gloss shown when a token is activated.
func Popup(key, translation string) string {
	return popupStyle.Render(fmt.Sprintf("%s\n%s", key, translation))
}

// LearnedList renders a story's learned words, most recent first.
func LearnedList(words []db.LearnedWord) string {
	var b strings.Builder
	b.WriteString(listTitleStyle.Render(fmt.Sprintf("Learned (%d)", len(words))))
	for _, w := range words {
		b.WriteString("\n")
		b.WriteString(learnedStyle.Render(w.Key))
		if w.Translation != "" {
			b.WriteString("  ")
			b.WriteString(w.Translation)
		}
	}
	return listStyle.Render(b.String())
}
