package store

import (
	"strconv"
	"strings"
)

// placeholders returns the byte offsets of ? placeholders that sit outside
// quoted literals and quoted identifiers.
func placeholders(query string) []int {
	var out []int
	var quote byte
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '?':
			out = append(out, i)
		}
	}
	return out
}

// rebindDollar rewrites ? placeholders to $1, $2, ...
func rebindDollar(query string) string {
	pos := placeholders(query)
	if len(pos) == 0 {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + len(pos)*2)
	last := 0
	for n, p := range pos {
		b.WriteString(query[last:p])
		b.WriteByte('$')
		b.WriteString(strconv.Itoa(n + 1))
		last = p + 1
	}
	b.WriteString(query[last:])
	return b.String()
}

func isInsert(query string) bool {
	q := strings.TrimSpace(query)
	return len(q) >= 6 && strings.EqualFold(q[:6], "INSERT")
}

func hasReturning(query string) bool {
	return strings.Contains(strings.ToUpper(query), "RETURNING")
}
