// Package scoring compares a spoken attempt with its reference sentence.
package scoring

import (
	"math"
	"strings"
	"unicode"

	"github.com/japaniel/phrasebook/pkg/apperr"
)

// Feedback messages, highest tier first.
const (
	FeedbackExcellent = "Excellent! Your pronunciation is perfect."
	FeedbackGood      = "Good job! Keep practicing."
	FeedbackFair      = "Not bad, but work on clarity."
	FeedbackRetry     = "Try again! Speak slowly and clearly."
)

// Result is the outcome of one comparison. All values are whole percentages;
// Fluency may exceed 100 when the attempt is shorter than the reference.
type Result struct {
	Score    int    `json:"score"`
	Accuracy int    `json:"accuracy"`
	Fluency  int    `json:"fluency"`
	Feedback string `json:"feedback"`
}

// Tokenizer splits text into comparable tokens.
type Tokenizer interface {
	Tokens(text string) []string
}

// Words is the default tokenizer: lowercase, drop punctuation and split on
// whitespace.
type Words struct{}

// Tokens implements Tokenizer.
func (Words) Tokens(text string) []string {
	return strings.Fields(normalize(text))
}

// Scorer scores attempts with a fixed tokenizer. It is safe for concurrent use
// when its tokenizer is.
type Scorer struct {
	tok Tokenizer
}

// New returns a Scorer. A nil tokenizer means Words.
func New(tok Tokenizer) *Scorer {
	if tok == nil {
		tok = Words{}
	}
	return &Scorer{tok: tok}
}

var defaultScorer = New(nil)

// Score compares attempt with reference using the default word tokenizer.
func Score(reference, attempt string) (Result, error) {
	return defaultScorer.Score(reference, attempt)
}

// Score compares attempt with reference position by position.
func (s *Scorer) Score(reference, attempt string) (Result, error) {
	if strings.TrimSpace(reference) == "" {
		return Result{}, apperr.Invalid("originalText", "must be non-empty")
	}
	if strings.TrimSpace(attempt) == "" {
		return Result{}, apperr.Invalid("userText", "must be non-empty")
	}

	ref := s.tok.Tokens(reference)
	got := s.tok.Tokens(attempt)
	if len(ref) == 0 {
		return Result{}, apperr.Invalid("originalText", "contains no words")
	}

	correct := 0
	for i := range min(len(ref), len(got)) {
		if ref[i] == got[i] {
			correct++
		}
	}

	accuracy := percent(correct, len(ref))
	fluency := 0
	if len(got) > 0 {
		fluency = percent(len(ref), len(got))
	}
	score := int(math.Round(float64(accuracy+fluency) / 2))

	return Result{
		Score:    score,
		Accuracy: accuracy,
		Fluency:  fluency,
		Feedback: feedback(score),
	}, nil
}

func percent(n, d int) int {
	return int(math.Round(100 * float64(n) / float64(d)))
}

func feedback(score int) string {
	switch {
	case score >= 90:
		return FeedbackExcellent
	case score >= 70:
		return FeedbackGood
	case score >= 50:
		return FeedbackFair
	default:
		return FeedbackRetry
	}
}

// normalize lowercases s and removes every rune that is not part of a word or
// whitespace.
func normalize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), unicode.IsMark(r), r == '_':
			return unicode.ToLower(r)
		case unicode.IsSpace(r):
			return ' '
		default:
			return -1
		}
	}, s)
}
