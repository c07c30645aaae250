package story

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const storiesJSON = `[
  {
    "id": "the-lost-phone",
    "title": {"english": "The Lost Phone", "arabic": "الجوال الضائع"},
    "content": {
      "english": ["Sara was walking in the mall.", "She asked the security guard for help."],
      "arabic": ["سارة كانت تمشي في المول.", "سألت رجل الأمن للمساعدة."]
    }
  }
]`

const storiesYAML = `stories:
  - id: story-of-adam
    title:
      english: The Story of Adam
      arabic: قصة آدم
    content:
      arabic:
        - خلق الله آدم من تراب.
    vocabulary:
      آدم: Adam
      خلق الله: God created
`

func TestDecodeStories(t *testing.T) {
	list, err := DecodeStories(strings.NewReader(storiesJSON), "json")
	if err != nil {
		t.Fatalf("DecodeStories json: %v", err)
	}
	if len(list) != 1 || list[0].Slug != "the-lost-phone" || list[0].Title.Arabic != "الجوال الضائع" {
		t.Fatalf("unexpected stories: %+v", list)
	}
	if len(list[0].Content.English) != 2 {
		t.Fatalf("expected English paragraphs, got %+v", list[0].Content)
	}

	list, err = DecodeStories(strings.NewReader(storiesYAML), "yaml")
	if err != nil {
		t.Fatalf("DecodeStories yaml: %v", err)
	}
	if len(list) != 1 || list[0].Slug != "story-of-adam" || len(list[0].Content.English) != 0 {
		t.Fatalf("unexpected stories: %+v", list)
	}
	if list[0].Vocabulary["خلق الله"] != "God created" {
		t.Errorf("expected story vocabulary, got %v", list[0].Vocabulary)
	}

	if _, err := DecodeStories(strings.NewReader("{}"), "toml"); err == nil {
		t.Fatalf("expected unsupported format error")
	}
}

func TestLoadStoriesFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stories.yml")
	if err := os.WriteFile(path, []byte(storiesYAML), 0644); err != nil {
		t.Fatal(err)
	}
	list, err := LoadStories(path)
	if err != nil {
		t.Fatalf("LoadStories: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 story, got %d", len(list))
	}
	if _, err := LoadStories(filepath.Join(dir, "missing.json")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		s       Story
		wantErr bool
	}{
		{"ok", Story{Slug: "a", Content: Content{Arabic: []string{"نص"}}}, false},
		{"no slug", Story{Content: Content{Arabic: []string{"نص"}}}, true},
		{"no paragraphs", Story{Slug: "a"}, true},
		{"empty paragraph", Story{Slug: "a", Content: Content{Arabic: []string{"نص", ""}}}, true},
		{"whitespace paragraph", Story{Slug: "a", Content: Content{Arabic: []string{" \t\n", "نص"}}}, true},
		{"mismatched english", Story{Slug: "a", Content: Content{Arabic: []string{"نص", "نص"}, English: []string{"text"}}}, true},
	}
	for _, tt := range tests {
		if err := tt.s.Validate(); (err != nil) != tt.wantErr {
			t.Errorf("%s: Validate() = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}
}

func TestSplitParagraphs(t *testing.T) {
	got := SplitParagraphs("  الأول \n\n\t\nالثاني\r\nالثالث")
	want := []string{"الأول", "الثاني", "الثالث"}
	if len(got) != len(want) {
		t.Fatalf("SplitParagraphs = %q; want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("SplitParagraphs = %q; want %q", got, want)
		}
	}
}

func TestSlugFromURL(t *testing.T) {
	tests := []struct {
		in, out string
	}{
		{"https://example.com/stories/The_Lost-Phone.html", "the-lost-phone"},
		{"https://example.com/stories/adam/", "adam"},
		{"https://example.com/", "example-com"},
	}
	for _, tt := range tests {
		u, err := url.Parse(tt.in)
		if err != nil {
			t.Fatal(err)
		}
		if got := SlugFromURL(u); got != tt.out {
			t.Errorf("SlugFromURL(%q) = %q; want %q", tt.in, got, tt.out)
		}
	}
	if got := SlugFromURL(nil); got != "" {
		t.Errorf("SlugFromURL(nil) = %q", got)
	}
}
