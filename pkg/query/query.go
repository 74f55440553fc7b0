// Package query turns optional client criteria into a parameterized predicate
// and a pagination clause.
package query

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/japaniel/phrasebook/pkg/apperr"
	"github.com/japaniel/phrasebook/pkg/schema"
)

const (
	// DefaultAdminLimit is the page size for administrative listing.
	DefaultAdminLimit = 20
	// DefaultLearnerLimit is the page size for learner-facing single-item paging.
	DefaultLearnerLimit = 1
	// MaxLimit caps the page size a client can ask for.
	MaxLimit = 1000
)

// Order selects the id ordering of listed rows.
type Order int

const (
	Newest Order = iota // descending id
	Oldest              // ascending id
)

// Criteria holds the optional filters. Empty strings and nil pointers are
// absent; zero Page and Limit mean "use the default".
type Criteria struct {
	Search     string
	Status     string
	IsNew      *int
	Difficulty string
	IsFavorite *int
	Page       int
	Limit      int
	Order      Order
}

// Query is the built predicate plus normalised pagination.
type Query struct {
	// Where is empty or a complete "WHERE ..." clause.
	Where  string
	Args   []any
	Order  string
	Page   int
	Limit  int
	Offset int
}

// Pagination is appended after Order; its values come from PageArgs.
const Pagination = "LIMIT ? OFFSET ?"

// PageArgs returns the predicate args followed by limit and offset.
func (q Query) PageArgs() []any {
	args := make([]any, 0, len(q.Args)+2)
	args = append(args, q.Args...)
	return append(args, q.Limit, q.Offset)
}

// Build translates c into a Query. Conditions are joined with AND in the order
// search, status, isNew, difficulty, isFavorite.
func Build(c Criteria, defaultLimit int) Query {
	var where []string
	var args []any

	if c.Search != "" {
		where = append(where, `LOWER("original") LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(strings.ToLower(c.Search))+"%")
	}
	if c.Status != "" {
		where = append(where, schema.Coalesced("status")+" = ?")
		args = append(args, c.Status)
	}
	if c.IsNew != nil {
		where = append(where, schema.Coalesced("isNew")+" = ?")
		args = append(args, *c.IsNew)
	}
	if c.Difficulty != "" {
		where = append(where, schema.Coalesced("difficulty")+" = ?")
		args = append(args, c.Difficulty)
	}
	if c.IsFavorite != nil {
		where = append(where, schema.Coalesced("isFavorite")+" = ?")
		args = append(args, *c.IsFavorite)
	}

	q := Query{Args: args, Order: c.Order.Clause()}
	if len(where) > 0 {
		q.Where = "WHERE " + strings.Join(where, " AND ")
	}
	q.Page, q.Limit, q.Offset = Paginate(c.Page, c.Limit, defaultLimit)
	return q
}

// Clause renders the ORDER BY clause.
func (o Order) Clause() string {
	if o == Oldest {
		return `ORDER BY "id" ASC`
	}
	return `ORDER BY "id" DESC`
}

// Paginate applies defaults to zero values, clamps to at least 1, caps limit
// at MaxLimit and page so that the row offset cannot overflow.
func Paginate(page, limit, defaultLimit int) (int, int, int) {
	if defaultLimit < 1 {
		defaultLimit = 1
	}
	if page == 0 {
		page = 1
	}
	if limit == 0 {
		limit = defaultLimit
	}
	limit = min(max(limit, 1), MaxLimit)
	page = min(max(page, 1), math.MaxInt/limit)
	return page, limit, (page - 1) * limit
}

// TotalPages is ceil(total/limit) but never less than 1.
func TotalPages(total int64, limit int) int {
	if limit < 1 || total <= 0 {
		return 1
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }

// ParseValues reads criteria from URL query values. Non-numeric page and
// limit count as absent; isNew and isFavorite accept 0, 1, true and false.
func ParseValues(v url.Values) (Criteria, error) {
	c := Criteria{
		Search:     strings.TrimSpace(v.Get("search")),
		Status:     strings.TrimSpace(v.Get("status")),
		Difficulty: strings.TrimSpace(v.Get("difficulty")),
		Page:       atoi(v.Get("page")),
		Limit:      atoi(v.Get("limit")),
	}
	var err error
	if c.IsNew, err = flag("isNew", v.Get("isNew")); err != nil {
		return Criteria{}, err
	}
	if c.IsFavorite, err = flag("isFavorite", v.Get("isFavorite")); err != nil {
		return Criteria{}, err
	}
	if strings.EqualFold(v.Get("order"), "oldest") || strings.EqualFold(v.Get("order"), "asc") {
		c.Order = Oldest
	}
	return c, nil
}

func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

func flag(field, s string) (*int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return nil, apperr.Invalid(field, "expected 0, 1, true or false")
	}
	n := 0
	if b {
		n = 1
	}
	return &n, nil
}
