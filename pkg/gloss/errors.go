package gloss

// ArgumentError reports input a tokenizer call cannot work with.
type ArgumentError struct{ msg string }

func (e *ArgumentError) Error() string { return "gloss: " + e.msg }

var (
	// ErrNilDictionary is returned when a nil Dictionary is supplied.
	ErrNilDictionary = &ArgumentError{"dictionary must not be nil"}
	// ErrInvalidText is returned for a paragraph that is not valid UTF-8.
	ErrInvalidText = &ArgumentError{"paragraph is not valid UTF-8"}
)
