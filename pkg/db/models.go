package db

import "time"

// Story is a stored story header.
type Story struct {
	ID                     int64
	Slug                   string
	TitleArabic            string
	TitleEnglish           string
	SourceURL              string
	AddedAt                time.Time
	LastProcessedParagraph int
}

// Paragraph is one paragraph of a story with its optional English rendering.
type Paragraph struct {
	ID       int64
	StoryID  int64
	Position int
	Arabic   string
	English  string
}

// LearnedWord is an entry of a story's learned-words list.
type LearnedWord struct {
	ID          int64
	StoryID     int64
	Key         string
	Translation string
	LearnedAt   time.Time
}

// Occurrence aggregates how often a glossed word or phrase appears in a story.
type Occurrence struct {
	ID               int64
	StoryID          int64
	Key              string
	Translation      string
	IsPhrase         bool
	OccurrenceCount  int
	FirstParagraphID int64
}

// CommonVocabulary is the story id under which shared vocabulary is stored.
const CommonVocabulary int64 = 0
