package query

import (
	"strconv"
	"strings"
)

// Tokenize splits a program into one token slice per non-blank,
// non-comment line (§4.3: "Whitespace within a line separates tokens; a
// line starting with # is a comment; blank lines are ignored").
func Tokenize(program string) [][]string {
	var lines [][]string
	for _, raw := range strings.Split(program, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, strings.Fields(line))
	}
	return lines
}

func parseInt(tok string) (int64, error) {
	return strconv.ParseInt(tok, 10, 64)
}

func parseFloat(tok string) (float64, error) {
	return strconv.ParseFloat(tok, 64)
}
