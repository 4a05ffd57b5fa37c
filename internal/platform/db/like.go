package db

import "strings"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike escapes LIKE and ILIKE metacharacters so user input matches
// literally when embedded in a pattern. A raw "%" would otherwise match
// every row.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}
