package query

import (
	"regexp"
	"strings"
)

// exprFieldPattern flags a FIELD entry as an expression rather than a
// plain name (§4.3.1, §9 item 1). Expression evaluation itself stays
// unimplemented; this only decides how the field is tagged.
var exprFieldPattern = regexp.MustCompile(`[+\-*/()=]`)

// keywords is the set of words that open a new clause. Any other first
// word on a line is treated as a continuation of whatever clause is
// currently being accumulated, so a WHERE/HAVING/FIELD/RETURN clause may
// span several lines.
var keywords = map[string]bool{
	"CREATE": true, "SELECT": true, "GROUP": true, "AS": true,
	"ORDERBY": true, "RETURN": true, "UPDATE": true, "DELETE": true,
	"FIELD": true, "WHERE": true, "HAVING": true,
}

// ParseProgram turns tokenized lines (Tokenize's output) into a Program.
// Statement boundaries are driven by the AS clause; a trailing RETURN
// line harvests the names to hand back as the program's output (§4.3).
// When there are several RETURN lines, the names of all of them are
// accumulated in order.
func ParseProgram(lines [][]string) (*Program, error) {
	prog := &Program{}
	var cur *Statement
	currentKeyword := ""
	var currentWords []string
	currentLine := 0

	flush := func(lineNo int) (bool, error) {
		if len(currentWords) == 0 {
			return false, nil
		}
		if cur == nil {
			cur = &Statement{}
		}
		return applyClause(currentKeyword, currentWords, cur, prog, lineNo)
	}

	for lineNo, tokens := range lines {
		if len(tokens) == 0 {
			continue
		}
		first := tokens[0]
		if keywords[first] {
			end, err := flush(currentLine)
			if err != nil {
				return nil, err
			}
			currentWords = nil
			if first == "RETURN" {
				if cur == nil {
					cur = &Statement{}
				}
				if _, err := applyClause("RETURN", tokens, cur, prog, lineNo); err != nil {
					return nil, err
				}
				if end {
					prog.Statements = append(prog.Statements, *cur)
					cur = nil
				}
				currentKeyword = ""
				currentLine = lineNo
				continue
			}
			if end {
				prog.Statements = append(prog.Statements, *cur)
				cur = nil
			}
			currentWords = append(currentWords, tokens...)
			currentKeyword = first
			currentLine = lineNo
		} else {
			currentWords = append(currentWords, tokens...)
		}
	}

	if end, err := flush(currentLine); err != nil {
		return nil, err
	} else if cur != nil {
		prog.Statements = append(prog.Statements, *cur)
		_ = end
	}

	return prog, nil
}

// applyClause parses one accumulated (keyword, words) run into stmt (or,
// for RETURN, into prog.Returns) and reports whether it closes the
// statement (true only for AS, §4.3).
func applyClause(keyword string, words []string, stmt *Statement, prog *Program, line int) (bool, error) {
	switch keyword {
	case "CREATE":
		return false, parseCreate(words, stmt, line)
	case "SELECT":
		return false, parseSelect(words, stmt, line)
	case "GROUP":
		return false, parseGroup(words, stmt, line)
	case "AS":
		if len(words) < 2 {
			return false, &ParseError{Line: line, Reason: "AS requires a binding name"}
		}
		stmt.As = words[1]
		return true, nil
	case "ORDERBY":
		return false, parseOrderBy(words, stmt, line)
	case "RETURN":
		parseReturn(words, prog)
		return false, nil
	case "UPDATE":
		stmt.HasUpdate = true
		return false, nil
	case "DELETE":
		stmt.HasDelete = true
		return false, nil
	case "FIELD":
		return false, parseField(words, stmt, line)
	case "WHERE":
		if len(words) < 2 {
			return false, &ParseError{Line: line, Reason: "empty WHERE clause"}
		}
		expr, err := parseConditionBlock(words[1:], line)
		if err != nil {
			return false, err
		}
		stmt.Where = expr
		return false, nil
	case "HAVING":
		if len(words) < 2 {
			return false, &ParseError{Line: line, Reason: "empty HAVING clause"}
		}
		expr, err := parseConditionBlock(words[1:], line)
		if err != nil {
			return false, err
		}
		stmt.Having = expr
		return false, nil
	default:
		return false, &ParseError{Line: line, Reason: "unknown keyword: " + keyword}
	}
}

// createModifiers are the recognized words that may appear between
// CREATE and the collection name, in any combination (§4.3.1 "CREATE
// [ONE] [CREATEONLY|UPDATEONLY|MERGE] <collection>").
var createModifiers = map[string]bool{
	"ONE": true, "CREATEONLY": true, "UPDATEONLY": true, "MERGE": true,
}

func parseCreate(words []string, stmt *Statement, line int) error {
	if len(words) < 2 {
		return &ParseError{Line: line, Reason: "CREATE requires a collection name"}
	}
	offset := 0
	for offset+1 < len(words) && createModifiers[words[1+offset]] {
		offset++
	}
	if contains(words[1:1+offset], "ONE") {
		stmt.One = true
	}
	switch {
	case contains(words[1:1+offset], "CREATEONLY"):
		stmt.Mode = ModeCreateOnly
	case contains(words[1:1+offset], "UPDATEONLY"):
		stmt.Mode = ModeUpdateOnly
	default:
		stmt.Mode = ModeMerge
	}
	if len(words) <= 1+offset {
		return &ParseError{Line: line, Reason: "CREATE requires a collection name"}
	}
	stmt.Kind = KindCreate
	stmt.Collection = words[1+offset]
	return nil
}

func parseSelect(words []string, stmt *Statement, line int) error {
	if len(words) < 2 {
		return &ParseError{Line: line, Reason: "SELECT requires a collection name"}
	}
	offset := 0
	if contains(words, "ONE") {
		stmt.One = true
		offset = 1
	}
	if len(words) <= 1+offset {
		return &ParseError{Line: line, Reason: "SELECT requires a collection name"}
	}
	stmt.Kind = KindSelect
	stmt.Collection = words[1+offset]
	return nil
}

func parseGroup(words []string, stmt *Statement, line int) error {
	if len(words) != 4 || words[2] != "BY" {
		return &ParseError{Line: line, Reason: "GROUP requires the form GROUP <collection> BY <field>"}
	}
	stmt.Kind = KindGroup
	stmt.Collection = words[1]
	stmt.GroupBy = words[3]
	return nil
}

func parseOrderBy(words []string, stmt *Statement, line int) error {
	if len(words) < 2 {
		return &ParseError{Line: line, Reason: "ORDERBY requires a field name"}
	}
	ob := &OrderBy{Field: words[1]}
	if i := indexOf(words, "SKIP"); i > 0 && i+1 < len(words) {
		lit := ParseLiteral(words[i+1])
		ob.Skip = &lit
	}
	if i := indexOf(words, "LIMIT"); i > 0 && i+1 < len(words) {
		lit := ParseLiteral(words[i+1])
		ob.Limit = &lit
	}
	ob.Desc = contains(words, "DESC")
	stmt.OrderBy = ob
	return nil
}

func parseReturn(words []string, prog *Program) {
	if len(words) < 2 {
		return
	}
	joined := strings.Join(words[1:], "")
	for _, name := range strings.Split(joined, ",") {
		name = strings.TrimSpace(name)
		if name != "" {
			prog.Returns = append(prog.Returns, name)
		}
	}
}

func parseField(words []string, stmt *Statement, line int) error {
	if len(words) < 2 {
		return &ParseError{Line: line, Reason: "FIELD requires at least one field"}
	}
	joined := strings.Join(words[1:], "")
	for _, part := range strings.Split(joined, ",") {
		if part == "" {
			continue
		}
		if part == "*" {
			stmt.Fields = append(stmt.Fields, Field{Text: part, IsStar: true})
			continue
		}
		stmt.Fields = append(stmt.Fields, Field{Text: part, IsExpr: exprFieldPattern.MatchString(part)})
	}
	return nil
}

func contains(words []string, w string) bool {
	for _, x := range words {
		if x == w {
			return true
		}
	}
	return false
}

func indexOf(words []string, w string) int {
	for i, x := range words {
		if x == w {
			return i
		}
	}
	return -1
}
