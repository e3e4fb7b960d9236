package db

import "strings"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ContainsPattern turns s into an ILIKE pattern matching any value that
// contains s literally.
func ContainsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
