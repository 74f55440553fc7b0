package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/phrasebook/pkg/apperr"
)

func TestScoreExactMatch(t *testing.T) {
	r, err := Score("the cat sat", "the cat sat")
	require.NoError(t, err)
	assert.Equal(t, Result{Score: 100, Accuracy: 100, Fluency: 100, Feedback: FeedbackExcellent}, r)
}

func TestScoreOneWordWrong(t *testing.T) {
	r, err := Score("the cat sat", "the dog sat")
	require.NoError(t, err)
	assert.Equal(t, Result{Score: 84, Accuracy: 67, Fluency: 100, Feedback: FeedbackGood}, r)
}

func TestScoreRejectsEmptyInput(t *testing.T) {
	_, err := Score("hello world", "")
	assert.True(t, apperr.IsValidation(err))

	_, err = Score("  ", "hello")
	assert.True(t, apperr.IsValidation(err))

	_, err = Score("?!", "hello")
	assert.True(t, apperr.IsValidation(err), "reference without words")
}

func TestScoreIgnoresCaseAndPunctuation(t *testing.T) {
	r, err := Score("Hello, World!", "hello   world")
	require.NoError(t, err)
	assert.Equal(t, 100, r.Score)
}

func TestScoreIsPositional(t *testing.T) {
	// One inserted word shifts every later comparison.
	r, err := Score("a b c d", "x a b c d")
	require.NoError(t, err)
	assert.Equal(t, 0, r.Accuracy)
	assert.Equal(t, 80, r.Fluency)
	assert.Equal(t, 40, r.Score)
	assert.Equal(t, FeedbackRetry, r.Feedback)
}

func TestScoreFluencyUncapped(t *testing.T) {
	r, err := Score("one two three four", "one two")
	require.NoError(t, err)
	assert.Equal(t, 50, r.Accuracy)
	assert.Equal(t, 200, r.Fluency)
	assert.Equal(t, 125, r.Score)
	assert.Equal(t, FeedbackExcellent, r.Feedback)
}

func TestScoreAttemptWithoutWords(t *testing.T) {
	r, err := Score("hello", "...")
	require.NoError(t, err)
	assert.Equal(t, Result{Score: 0, Accuracy: 0, Fluency: 0, Feedback: FeedbackRetry}, r)
}

func TestFeedbackTiers(t *testing.T) {
	cases := map[int]string{
		100: FeedbackExcellent,
		90:  FeedbackExcellent,
		89:  FeedbackGood,
		70:  FeedbackGood,
		69:  FeedbackFair,
		50:  FeedbackFair,
		49:  FeedbackRetry,
		0:   FeedbackRetry,
	}
	for score, want := range cases {
		assert.Equal(t, want, feedback(score), "score %d", score)
	}
}

func TestWordsKeepsAccentsAndScripts(t *testing.T) {
	assert.Equal(t, []string{"café", "naïve", "привет", "snake_case"}, Words{}.Tokens("Café, naïve! Привет? snake_case"))
}

func TestKagomeTokenizer(t *testing.T) {
	tok, err := NewKagomeTokenizer()
	require.NoError(t, err)

	words := tok.Tokens("私は学生です。")
	assert.Equal(t, []string{"私", "は", "学生", "です"}, words)

	s := New(tok)
	r, err := s.Score("私は学生です。", "私は学生です")
	require.NoError(t, err)
	assert.Equal(t, 100, r.Score)

	r, err = s.Score("私は学生です。", "私は先生です")
	require.NoError(t, err)
	assert.Equal(t, 75, r.Accuracy)
	assert.Equal(t, 100, r.Fluency)
	assert.Equal(t, FeedbackGood, r.Feedback)
}
