package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/japaniel/qisas/pkg/db"
	"github.com/japaniel/qisas/pkg/gloss"
	"github.com/japaniel/qisas/pkg/render"
	"github.com/spf13/cobra"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFAA00"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000"))
)

type keyMap struct {
	Next     key.Binding
	Prev     key.Binding
	NextPara key.Binding
	PrevPara key.Binding
	Activate key.Binding
	English  key.Binding
	Clear    key.Binding
	Close    key.Binding
	Quit     key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Prev, k.Activate, k.English, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Next, k.Prev, k.NextPara, k.PrevPara},
		{k.Activate, k.English, k.Clear, k.Close, k.Quit},
	}
}

var keys = keyMap{
	Next:     key.NewBinding(key.WithKeys("right", "l", "tab"), key.WithHelp("→", "next word")),
	Prev:     key.NewBinding(key.WithKeys("left", "h", "shift+tab"), key.WithHelp("←", "previous word")),
	NextPara: key.NewBinding(key.WithKeys("down", "j", "pgdown"), key.WithHelp("↓", "next paragraph")),
	PrevPara: key.NewBinding(key.WithKeys("up", "k", "pgup"), key.WithHelp("↑", "previous paragraph")),
	Activate: key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "show gloss")),
	English:  key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "english")),
	Clear:    key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear learned")),
	Close:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close gloss")),
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// popup is the gloss shown for an activated token.
type popup struct {
	key, translation string
}

// readerModel is the interactive story reader. Learned words are persisted
// through store as soon as a gloss is opened.
type readerModel struct {
	store   db.DBExecutor
	story   db.Story
	paras   []db.Paragraph
	tokens  [][]gloss.Token
	learned []db.LearnedWord
	known   map[string]bool

	para, tok   int
	showEnglish bool
	popup       *popup
	err         error

	keys   keyMap
	help   help.Model
	width  int
	height int
}

func newReaderModel(store db.DBExecutor, s db.Story, paras []db.Paragraph, tk *gloss.Tokenizer) (*readerModel, error) {
	m := &readerModel{
		store:  store,
		story:  s,
		paras:  paras,
		tokens: make([][]gloss.Token, len(paras)),
		keys:   keys,
		help:   help.New(),
		width:  80,
		height: 24,
	}
	for i, p := range paras {
		t, err := tk.Tokenize(p.Arabic)
		if err != nil {
			return nil, fmt.Errorf("paragraph %d: %w", p.Position, err)
		}
		m.tokens[i] = t
	}
	if err := m.reloadLearned(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *readerModel) reloadLearned() error {
	words, err := db.ListLearned(m.store, m.story.ID)
	if err != nil {
		return err
	}
	m.learned = words
	m.known = make(map[string]bool, len(words))
	for _, w := range words {
		m.known[w.Key] = true
	}
	return nil
}

func (m *readerModel) current() (gloss.Token, bool) {
	if m.para >= len(m.tokens) || m.tok >= len(m.tokens[m.para]) {
		return gloss.Token{}, false
	}
	return m.tokens[m.para][m.tok], true
}

func (m *readerModel) move(delta int) {
	if len(m.tokens) == 0 {
		return
	}
	m.tok += delta
	for m.tok >= len(m.tokens[m.para]) {
		if m.para == len(m.tokens)-1 {
			m.tok = max(len(m.tokens[m.para])-1, 0)
			return
		}
		m.para++
		m.tok = 0
	}
	for m.tok < 0 {
		if m.para == 0 {
			m.tok = 0
			return
		}
		m.para--
		m.tok = len(m.tokens[m.para]) - 1
	}
}

func (m *readerModel) movePara(delta int) {
	next := m.para + delta
	if next < 0 || next >= len(m.tokens) {
		return
	}
	m.para = next
	m.tok = 0
}

// activate opens the gloss of the current token and marks it learned. Tokens
// without a translation do nothing.
func (m *readerModel) activate() {
	t, ok := m.current()
	if !ok || !t.Glossed() {
		return
	}
	k := t.LearnedKey()
	m.popup = &popup{key: k, translation: t.Translation}
	if err := db.MarkLearned(m.store, m.story.ID, k, t.Translation); err != nil {
		m.err = err
		return
	}
	m.err = m.reloadLearned()
}

func (m *readerModel) Init() tea.Cmd {
	return nil
}

func (m *readerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Close):
			m.popup = nil
		case key.Matches(msg, m.keys.Next):
			m.popup = nil
			m.move(1)
		case key.Matches(msg, m.keys.Prev):
			m.popup = nil
			m.move(-1)
		case key.Matches(msg, m.keys.NextPara):
			m.popup = nil
			m.movePara(1)
		case key.Matches(msg, m.keys.PrevPara):
			m.popup = nil
			m.movePara(-1)
		case key.Matches(msg, m.keys.Activate):
			m.activate()
		case key.Matches(msg, m.keys.English):
			m.showEnglish = !m.showEnglish
		case key.Matches(msg, m.keys.Clear):
			if err := db.ClearLearned(m.store, m.story.ID); err != nil {
				m.err = err
			} else {
				m.err = m.reloadLearned()
			}
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil
	}
	return m, nil
}

func (m *readerModel) View() string {
	if len(m.paras) == 0 {
		return "This story has no paragraphs."
	}

	title := m.story.TitleArabic
	if m.story.TitleEnglish != "" {
		title += "  " + m.story.TitleEnglish
	}

	var body strings.Builder
	p := m.paras[m.para]
	textWidth := max(m.width*2/3, 20)
	body.WriteString(lipgloss.NewStyle().Width(textWidth).Render(
		render.Paragraph(p.Arabic, m.tokens[m.para], m.known, m.tok)))
	if m.showEnglish && p.English != "" {
		body.WriteString("\n\n")
		body.WriteString(lipgloss.NewStyle().Width(textWidth).Render(render.English(p.English)))
	}
	if m.popup != nil {
		body.WriteString("\n\n")
		body.WriteString(render.Popup(m.popup.key, m.popup.translation))
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render(title))
	sb.WriteString("\n")
	sb.WriteString(statusStyle.Render(fmt.Sprintf("Paragraph %d/%d | %d learned", m.para+1, len(m.paras), len(m.learned))))
	sb.WriteString("\n\n")
	sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, body.String(), "  ", render.LearnedList(m.learned)))
	sb.WriteString("\n\n")
	if m.err != nil {
		sb.WriteString(errorStyle.Render(m.err.Error()))
		sb.WriteString("\n")
	}
	sb.WriteString(m.help.View(m.keys))
	return sb.String()
}

func newReadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read STORY",
		Short: "Read a story interactively",
		Args:  cobra.ExactArgs(1),
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
			paras, err := db.GetParagraphs(a.conn, s.ID)
			if err != nil {
				return err
			}
			entry, err := a.vocab.ForStory(s.ID)
			if err != nil {
				return err
			}
			m, err := newReaderModel(a.conn, s, paras, entry.Tokenizer)
			if err != nil {
				return err
			}

			p := tea.NewProgram(m,
				tea.WithAltScreen(),
				tea.WithContext(cmd.Context()),
				tea.WithInput(cmd.InOrStdin()),
				tea.WithOutput(cmd.OutOrStdout()),
			)
			_, err = p.Run()
			return err
		},
	}
}
