// Package sentences is the domain-facing API over the sentences table.
package sentences

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"

	"github.com/japaniel/phrasebook/pkg/apperr"
	"github.com/japaniel/phrasebook/pkg/artifact"
	"github.com/japaniel/phrasebook/pkg/query"
	"github.com/japaniel/phrasebook/pkg/schema"
	"github.com/japaniel/phrasebook/pkg/store"
)

var (
	fullColumns = strings.Join([]string{
		`"id"`, `"original"`, `"translation"`, `"audioPath"`, `"explanation"`, `"createdAt"`,
		schema.Coalesced("status") + ` AS "status"`,
		schema.Coalesced("isNew") + ` AS "isNew"`,
		schema.Coalesced("difficulty") + ` AS "difficulty"`,
		schema.Coalesced("isFavorite") + ` AS "isFavorite"`,
	}, ", ")

	summaryColumns = strings.Join([]string{
		`"id"`, `"original"`, `"audioPath"`,
		schema.Coalesced("status") + ` AS "status"`,
		schema.Coalesced("isNew") + ` AS "isNew"`,
		schema.Coalesced("difficulty") + ` AS "difficulty"`,
		schema.Coalesced("isFavorite") + ` AS "isFavorite"`,
	}, ", ")
)

// Repository mediates all sentence reads and writes. It holds no locks and
// opens no transactions; concurrent patch/delete on one id is last-write-wins.
type Repository struct {
	db        store.Driver
	artifacts artifact.Remover
	log       *slog.Logger
}

// New creates a repository. artifacts may be nil, in which case duplicate
// creates skip the compensating cleanup. A nil logger discards output.
func New(db store.Driver, artifacts artifact.Remover, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Repository{db: db, artifacts: artifacts, log: logger}
}

// List returns one page of full rows, oldest first.
func (r *Repository) List(ctx context.Context, page, limit int) (Page[Sentence], error) {
	q := query.Build(query.Criteria{Page: page, Limit: limit, Order: query.Oldest}, query.DefaultLearnerLimit)
	recs, pg, err := r.page(ctx, fullColumns, q)
	if err != nil {
		return Page[Sentence]{}, err
	}
	out := make([]Sentence, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toSentence(rec))
	}
	return Page[Sentence]{Data: out, Pagination: pg}, nil
}

// Practice returns one page of practice items, oldest first.
func (r *Repository) Practice(ctx context.Context, page, limit int) (Page[PracticeItem], error) {
	q := query.Build(query.Criteria{Page: page, Limit: limit, Order: query.Oldest}, query.DefaultLearnerLimit)
	recs, pg, err := r.page(ctx, `"id", "original", "audioPath"`, q)
	if err != nil {
		return Page[PracticeItem]{}, err
	}
	out := make([]PracticeItem, 0, len(recs))
	for _, rec := range recs {
		out = append(out, PracticeItem{
			ID:        rec.Int64("id"),
			Original:  rec.String("original"),
			AudioPath: rec.String("audioPath"),
		})
	}
	return Page[PracticeItem]{Data: out, Pagination: pg}, nil
}

// Filter returns one page of summaries matching c, newest first unless
// c.Order says otherwise.
func (r *Repository) Filter(ctx context.Context, c query.Criteria) (Page[Summary], error) {
	recs, pg, err := r.page(ctx, summaryColumns, query.Build(c, query.DefaultAdminLimit))
	if err != nil {
		return Page[Summary]{}, err
	}
	out := make([]Summary, 0, len(recs))
	for _, rec := range recs {
		out = append(out, Summary{
			ID:         rec.Int64("id"),
			Original:   rec.String("original"),
			AudioPath:  rec.String("audioPath"),
			Status:     rec.String("status"),
			IsNew:      int(rec.Int64("isNew")),
			Difficulty: rec.String("difficulty"),
			IsFavorite: int(rec.Int64("isFavorite")),
		})
	}
	return Page[Summary]{Data: out, Pagination: pg}, nil
}

// page runs the count and the row query under the same predicate and args.
func (r *Repository) page(ctx context.Context, columns string, q query.Query) ([]store.Record, Pagination, error) {
	count, err := r.db.FetchOne(ctx, fmt.Sprintf(`SELECT COUNT(*) AS "total" FROM %s %s`, schema.Table, q.Where), q.Args...)
	if err != nil {
		return nil, Pagination{}, fmt.Errorf("count sentences: %w", err)
	}
	total := count.Int64("total")

	rows, err := r.db.FetchAll(ctx,
		fmt.Sprintf(`SELECT %s FROM %s %s %s %s`, columns, schema.Table, q.Where, q.Order, query.Pagination),
		q.PageArgs()...)
	if err != nil {
		return nil, Pagination{}, fmt.Errorf("list sentences: %w", err)
	}
	return rows, Pagination{
		Page:       q.Page,
		Limit:      q.Limit,
		Total:      total,
		TotalPages: query.TotalPages(total, q.Limit),
	}, nil
}

// Get returns the full row for id.
func (r *Repository) Get(ctx context.Context, id int64) (Sentence, error) {
	rec, err := r.db.FetchOne(ctx, fmt.Sprintf(`SELECT %s FROM %s WHERE "id" = ?`, fullColumns, schema.Table), id)
	if err != nil {
		return Sentence{}, fmt.Errorf("get sentence %d: %w", id, err)
	}
	if rec == nil {
		return Sentence{}, fmt.Errorf("sentence %d: %w", id, apperr.ErrNotFound)
	}
	return toSentence(rec), nil
}

// Exists reports whether a sentence with exactly this original text is stored.
func (r *Repository) Exists(ctx context.Context, original string) (bool, error) {
	rec, err := r.lookup(ctx, original)
	return rec != nil, err
}

// lookup returns the id and audioPath of the row holding original, or nil.
func (r *Repository) lookup(ctx context.Context, original string) (store.Record, error) {
	rec, err := r.db.FetchOne(ctx, fmt.Sprintf(`SELECT "id", "audioPath" FROM %s WHERE "original" = ?`, schema.Table), original)
	if err != nil {
		return nil, fmt.Errorf("lookup sentence: %w", err)
	}
	return rec, nil
}

// Create inserts a new sentence and returns its id. The audio artifact at
// in.AudioPath has already been stored by the caller; when the original text
// is a duplicate that artifact is removed before ErrDuplicate is returned,
// unless the stored row references the same artifact.
func (r *Repository) Create(ctx context.Context, in NewSentence) (int64, error) {
	switch {
	case strings.TrimSpace(in.Original) == "":
		return 0, apperr.Invalid("original", "must be non-empty")
	case strings.TrimSpace(in.Translation) == "":
		return 0, apperr.Invalid("translation", "must be non-empty")
	case strings.TrimSpace(in.AudioPath) == "":
		return 0, apperr.Invalid("audioPath", "must be non-empty")
	}

	existing, err := r.lookup(ctx, in.Original)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		return 0, r.duplicate(ctx, in, existing)
	}

	var explanation any
	if in.Explanation != "" {
		explanation = in.Explanation
	}
	// The unique index closes the window between the check above and this
	// insert: a concurrent create with the same original fails here.
	res, err := r.db.Execute(ctx,
		fmt.Sprintf(`INSERT INTO %s ("original", "translation", "audioPath", "explanation") VALUES (?, ?, ?, ?)`, schema.Table),
		in.Original, in.Translation, in.AudioPath, explanation)
	if errors.Is(err, store.ErrUniqueViolation) {
		existing, lerr := r.lookup(ctx, in.Original)
		if lerr != nil {
			// Without the winning row we cannot tell whether it shares the
			// artifact, so keep it.
			r.log.Warn("re-reading duplicate sentence failed", "original", in.Original, "err", lerr)
			return 0, fmt.Errorf("%q: %w", in.Original, apperr.ErrDuplicate)
		}
		return 0, r.duplicate(ctx, in, existing)
	}
	if err != nil {
		return 0, fmt.Errorf("insert sentence: %w", err)
	}
	return res.InsertedID, nil
}

// duplicate removes the artifact of a rejected create. existing is the stored
// row for the same original and may be nil when it could not be seen.
func (r *Repository) duplicate(ctx context.Context, in NewSentence, existing store.Record) error {
	shared := existing != nil && existing.String("audioPath") == in.AudioPath
	if r.artifacts != nil && !shared {
		if err := r.artifacts.Remove(ctx, in.AudioPath); err != nil {
			r.log.Warn("removing orphaned audio failed", "audioPath", in.AudioPath, "err", err)
		}
	}
	return fmt.Errorf("%q: %w", in.Original, apperr.ErrDuplicate)
}

// Patch updates exactly the given fields of sentence id. Only status,
// difficulty, isNew, isFavorite, translation and explanation may change.
func (r *Repository) Patch(ctx context.Context, id int64, fields map[string]any) error {
	if len(fields) == 0 {
		return apperr.Invalid("", "no fields to update")
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	sets := make([]string, 0, len(names))
	args := make([]any, 0, len(names)+1)
	for _, name := range names {
		v, err := patchValue(name, fields[name])
		if err != nil {
			return err
		}
		sets = append(sets, schema.Quote(name)+" = ?")
		args = append(args, v)
	}
	args = append(args, id)

	res, err := r.db.Execute(ctx,
		fmt.Sprintf(`UPDATE %s SET %s WHERE "id" = ?`, schema.Table, strings.Join(sets, ", ")), args...)
	if err != nil {
		return fmt.Errorf("update sentence %d: %w", id, err)
	}
	if res.AffectedCount == 0 {
		return fmt.Errorf("sentence %d: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// Delete removes sentence id permanently. Its audio artifact is left alone.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.Execute(ctx, fmt.Sprintf(`DELETE FROM %s WHERE "id" = ?`, schema.Table), id)
	if err != nil {
		return fmt.Errorf("delete sentence %d: %w", id, err)
	}
	if res.AffectedCount == 0 {
		return fmt.Errorf("sentence %d: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// patchValue validates one patch entry and converts it to its column value.
func patchValue(name string, v any) (any, error) {
	switch name {
	case "status":
		return label(name, v, Statuses)
	case "difficulty":
		return label(name, v, Difficulties)
	case "isNew", "isFavorite":
		return flag(name, v)
	case "translation":
		s, ok := v.(string)
		if !ok || strings.TrimSpace(s) == "" {
			return nil, apperr.Invalid(name, "must be a non-empty string")
		}
		return s, nil
	case "explanation":
		if v == nil {
			return nil, nil
		}
		s, ok := v.(string)
		if !ok {
			return nil, apperr.Invalid(name, "must be a string or null")
		}
		return s, nil
	default:
		return nil, apperr.Invalid(name, "is not an updatable field")
	}
}

func label(name string, v any, allowed []string) (any, error) {
	s, ok := v.(string)
	if !ok || !slices.Contains(allowed, s) {
		return nil, apperr.Invalid(name, "must be one of "+strings.Join(allowed, ", "))
	}
	return s, nil
}

func flag(name string, v any) (any, error) {
	switch x := v.(type) {
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case int:
		if x == 0 || x == 1 {
			return x, nil
		}
	case int64:
		if x == 0 || x == 1 {
			return int(x), nil
		}
	case float64:
		if x == 0 || x == 1 {
			return int(x), nil
		}
	case json.Number:
		return flag(name, x.String())
	case string:
		switch x {
		case "0", "false":
			return 0, nil
		case "1", "true":
			return 1, nil
		}
	}
	return nil, apperr.Invalid(name, "must be 0, 1, true or false")
}

func toSentence(rec store.Record) Sentence {
	return Sentence{
		ID:          rec.Int64("id"),
		Original:    rec.String("original"),
		Translation: rec.String("translation"),
		AudioPath:   rec.String("audioPath"),
		Explanation: rec.NullString("explanation"),
		CreatedAt:   rec.Time("createdAt"),
		Status:      rec.String("status"),
		IsNew:       int(rec.Int64("isNew")),
		Difficulty:  rec.String("difficulty"),
		IsFavorite:  int(rec.Int64("isFavorite")),
	}
}
