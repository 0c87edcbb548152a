package internal

import (
	"strings"

	"github.com/jackc/pgx/v5"
)

// tableIdentifier splits a possibly schema-qualified table name into its parts,
// dropping empty segments and surrounding quotes.
func tableIdentifier(table string) pgx.Identifier {
	var ident pgx.Identifier
	for _, part := range strings.Split(table, ".") {
		if part = strings.Trim(part, ` "`); part != "" {
			ident = append(ident, part)
		}
	}
	return ident
}

func quoteTable(table string) string {
	return tableIdentifier(table).Sanitize()
}

// kindIndexName names the kind index of table. Postgres places it in the table's schema.
func kindIndexName(table string) string {
	ident := tableIdentifier(table)
	if len(ident) == 0 {
		return ""
	}
	return pgx.Identifier{ident[len(ident)-1] + "_kind_idx"}.Sanitize()
}
