package story

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Title is the bilingual title of a story.
type Title struct {
	Arabic  string `json:"arabic" yaml:"arabic"`
	English string `json:"english" yaml:"english"`
}

// Content holds the story paragraphs. English, when present, is a
// paragraph-by-paragraph translation of Arabic.
type Content struct {
	Arabic  []string `json:"arabic" yaml:"arabic"`
	English []string `json:"english,omitempty" yaml:"english,omitempty"`
}

// Story is one readable story. Vocabulary holds the story's own glosses,
// which take precedence over the common vocabulary.
type Story struct {
	Slug       string            `json:"id" yaml:"id"`
	Title      Title             `json:"title" yaml:"title"`
	Content    Content           `json:"content" yaml:"content"`
	Vocabulary map[string]string `json:"vocabulary,omitempty" yaml:"vocabulary,omitempty"`
}

// Validate checks that the story can be stored and read.
func (s Story) Validate() error {
	if strings.TrimSpace(s.Slug) == "" {
		return fmt.Errorf("story id must be non-empty")
	}
	if len(s.Content.Arabic) == 0 {
		return fmt.Errorf("story %q has no Arabic paragraphs", s.Slug)
	}
	for i, p := range s.Content.Arabic {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("story %q has an empty Arabic paragraph at position %d", s.Slug, i)
		}
	}
	if n := len(s.Content.English); n > 0 && n != len(s.Content.Arabic) {
		return fmt.Errorf("story %q has %d English paragraphs for %d Arabic ones", s.Slug, n, len(s.Content.Arabic))
	}
	return nil
}

// LoadStories reads a story file. JSON and YAML are accepted, either as a
// plain list of stories or wrapped as {"stories": [...]}.
func LoadStories(path string) ([]Story, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stories, err := DecodeStories(f, formatOf(path))
	if err != nil {
		return nil, fmt.Errorf("load stories %s: %w", path, err)
	}
	return stories, nil
}

// DecodeStories decodes and validates stories in the given format ("json" or "yaml").
func DecodeStories(r io.Reader, format string) ([]Story, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var wrapped struct {
		Stories []Story `json:"stories" yaml:"stories"`
	}
	var list []Story
	switch format {
	case "yaml":
		if err := yaml.Unmarshal(data, &wrapped); err != nil || len(wrapped.Stories) == 0 {
			if err := yaml.Unmarshal(data, &list); err != nil {
				return nil, fmt.Errorf("failed to parse stories as object or list: %w", err)
			}
		} else {
			list = wrapped.Stories
		}
	case "json":
		if err := json.Unmarshal(data, &wrapped); err != nil || len(wrapped.Stories) == 0 {
			if err := json.Unmarshal(data, &list); err != nil {
				return nil, fmt.Errorf("failed to parse stories as object or array: %w", err)
			}
		} else {
			list = wrapped.Stories
		}
	default:
		return nil, fmt.Errorf("unsupported story format %q", format)
	}

	for _, s := range list {
		if err := s.Validate(); err != nil {
			return nil, err
		}
	}
	return list, nil
}

func formatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "json"
	}
}

// SplitParagraphs splits extracted text into paragraphs on line breaks,
// trimming whitespace and dropping empty lines.
func SplitParagraphs(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}
