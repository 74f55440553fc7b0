package query

import (
	"math"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/phrasebook/pkg/apperr"
)

func intp(n int) *int { return &n }

func TestBuildNoCriteriaSelectsEverything(t *testing.T) {
	q := Build(Criteria{}, DefaultAdminLimit)

	assert.Empty(t, q.Where)
	assert.Empty(t, q.Args)
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, 20, q.Limit)
	assert.Equal(t, 0, q.Offset)
	assert.Equal(t, `ORDER BY "id" DESC`, q.Order)
	assert.Equal(t, []any{20, 0}, q.PageArgs())
}

func TestBuildAllCriteriaInOrder(t *testing.T) {
	q := Build(Criteria{
		Search:     "Hello",
		Status:     "practiced",
		IsNew:      intp(0),
		Difficulty: "hard",
		IsFavorite: intp(1),
		Page:       3,
		Limit:      10,
	}, DefaultAdminLimit)

	assert.Equal(t, `WHERE LOWER("original") LIKE ? ESCAPE '\'`+
		` AND COALESCE("status", 'unpracticed') = ?`+
		` AND COALESCE("isNew", 1) = ?`+
		` AND COALESCE("difficulty", 'medium') = ?`+
		` AND COALESCE("isFavorite", 0) = ?`, q.Where)
	assert.Equal(t, []any{"%hello%", "practiced", 0, "hard", 1}, q.Args)
	assert.Equal(t, 20, q.Offset)
	assert.Equal(t, []any{"%hello%", "practiced", 0, "hard", 1, 10, 20}, q.PageArgs())
}

func TestBuildEscapesLikeWildcards(t *testing.T) {
	q := Build(Criteria{Search: `100%_a\b`}, DefaultAdminLimit)
	assert.Equal(t, []any{`%100\%\_a\\b%`}, q.Args)
}

func TestBuildOldestFirst(t *testing.T) {
	q := Build(Criteria{Order: Oldest}, DefaultLearnerLimit)
	assert.Equal(t, `ORDER BY "id" ASC`, q.Order)
	assert.Equal(t, 1, q.Limit)
}

func TestPaginate(t *testing.T) {
	cases := []struct {
		name                   string
		page, limit, def       int
		wantPage, wantLim, off int
	}{
		{"defaults", 0, 0, 20, 1, 20, 0},
		{"learner default", 0, 0, 1, 1, 1, 0},
		{"third page", 3, 20, 20, 3, 20, 40},
		{"negative clamps", -4, -1, 20, 1, 1, 0},
		{"explicit limit", 2, 5, 20, 2, 5, 5},
		{"limit capped", 1, 5000, 20, 1, MaxLimit, 0},
		{"huge page", math.MaxInt, 2, 20, math.MaxInt / 2, 2, (math.MaxInt/2 - 1) * 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, l, o := Paginate(tc.page, tc.limit, tc.def)
			assert.Equal(t, tc.wantPage, p)
			assert.Equal(t, tc.wantLim, l)
			assert.Equal(t, tc.off, o)
			assert.GreaterOrEqual(t, o, 0)
		})
	}
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 1, TotalPages(0, 20))
	assert.Equal(t, 3, TotalPages(45, 20))
	assert.Equal(t, 2, TotalPages(40, 20))
	assert.Equal(t, 1, TotalPages(1, 20))
	assert.Equal(t, 45, TotalPages(45, 1))
}

func TestParseValues(t *testing.T) {
	v := url.Values{
		"search":     {" cat "},
		"status":     {"practiced"},
		"isNew":      {"true"},
		"isFavorite": {"0"},
		"page":       {"abc"},
		"limit":      {"5"},
		"order":      {"oldest"},
	}
	c, err := ParseValues(v)
	require.NoError(t, err)

	assert.Equal(t, "cat", c.Search)
	assert.Equal(t, "practiced", c.Status)
	require.NotNil(t, c.IsNew)
	assert.Equal(t, 1, *c.IsNew)
	require.NotNil(t, c.IsFavorite)
	assert.Equal(t, 0, *c.IsFavorite)
	assert.Empty(t, c.Difficulty)
	assert.Equal(t, 0, c.Page, "non-numeric page is absent")
	assert.Equal(t, 5, c.Limit)
	assert.Equal(t, Oldest, c.Order)
}

func TestParseValuesRejectsBadFlag(t *testing.T) {
	_, err := ParseValues(url.Values{"isFavorite": {"maybe"}})
	require.Error(t, err)
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "isFavorite", ve.Field)
}
