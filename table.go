package pgbulk

import (
	"strings"

	"github.com/jackc/pgx/v5"
)

// Table identifies the target table of a COPY. An empty Schema leaves the
// name unqualified.
type Table struct {
	Schema string
	Name   string
}

// QualifiedName returns schema.name, or name when Schema is empty. With quote
// set every part is double-quoted and escaped.
func (t Table) QualifiedName(quote bool) string {
	parts := make(pgx.Identifier, 0, 2)
	if t.Schema != "" {
		parts = append(parts, t.Schema)
	}
	parts = append(parts, t.Name)
	return identifier(parts, quote)
}

func identifier(parts pgx.Identifier, quote bool) string {
	if quote {
		return parts.Sanitize()
	}
	return strings.Join(parts, ".")
}

// String returns the unquoted qualified name.
func (t Table) String() string {
	return t.QualifiedName(false)
}
