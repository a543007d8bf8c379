package query

import "testing"

func TestParseProgramCreateInsertSelectOne(t *testing.T) {
	program := `
CREATE users
FIELD name, age
WHERE name = "alice"
AS created

SELECT ONE users
WHERE name = "alice"
AS found

RETURN found
`
	prog, err := ParseProgram(Tokenize(program))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(prog.Statements) != 2 {
		t.Fatalf("expected 2 statements, got %d: %+v", len(prog.Statements), prog.Statements)
	}
	create := prog.Statements[0]
	if create.Kind != KindCreate || create.Collection != "users" || create.As != "created" {
		t.Errorf("unexpected create statement: %+v", create)
	}
	sel := prog.Statements[1]
	if sel.Kind != KindSelect || !sel.One || sel.Collection != "users" || sel.As != "found" {
		t.Errorf("unexpected select statement: %+v", sel)
	}
	if len(prog.Returns) != 1 || prog.Returns[0] != "found" {
		t.Errorf("unexpected returns: %v", prog.Returns)
	}
}

func TestParseProgramOrderByDescWithSkipLimit(t *testing.T) {
	program := `
SELECT events
ORDERBY score DESC SKIP 5 LIMIT 20
AS ranked

RETURN ranked
`
	prog, err := ParseProgram(Tokenize(program))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stmt := prog.Statements[0]
	if stmt.OrderBy == nil {
		t.Fatalf("expected an ORDERBY clause")
	}
	if stmt.OrderBy.Field != "score" || !stmt.OrderBy.Desc {
		t.Errorf("unexpected orderby: %+v", stmt.OrderBy)
	}
	if stmt.OrderBy.Skip == nil || stmt.OrderBy.Skip.IntVal != 5 {
		t.Errorf("unexpected skip: %+v", stmt.OrderBy.Skip)
	}
	if stmt.OrderBy.Limit == nil || stmt.OrderBy.Limit.IntVal != 20 {
		t.Errorf("unexpected limit: %+v", stmt.OrderBy.Limit)
	}
}

func TestParseProgramMultipleReturns(t *testing.T) {
	program := `
SELECT a
AS first

SELECT b
AS second

RETURN first, second
`
	prog, err := ParseProgram(Tokenize(program))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(prog.Returns) != 2 || prog.Returns[0] != "first" || prog.Returns[1] != "second" {
		t.Errorf("unexpected returns: %v", prog.Returns)
	}
}

func TestParseProgramFieldAndParameterIn(t *testing.T) {
	program := `
SELECT orders
FIELD id, total
WHERE status IN $statuses
AS matched

RETURN matched
`
	prog, err := ParseProgram(Tokenize(program))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stmt := prog.Statements[0]
	if len(stmt.Fields) != 2 || stmt.Fields[0].Text != "id" || stmt.Fields[1].Text != "total" {
		t.Errorf("unexpected fields: %+v", stmt.Fields)
	}
	if stmt.Where == nil || stmt.Where.Leaf == nil || stmt.Where.Leaf.Kind != CondIn {
		t.Fatalf("expected an IN leaf condition, got %+v", stmt.Where)
	}
	if !stmt.Where.Leaf.Value.IsRef || stmt.Where.Leaf.Value.Ref != "statuses" {
		t.Errorf("unexpected IN value: %+v", stmt.Where.Leaf.Value)
	}
}

func TestParseCreateModifiers(t *testing.T) {
	prog, err := ParseProgram(Tokenize("CREATE ONE CREATEONLY users\nAS r\nRETURN r\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stmt := prog.Statements[0]
	if !stmt.One || stmt.Mode != ModeCreateOnly || stmt.Collection != "users" {
		t.Errorf("unexpected statement: %+v", stmt)
	}
}

func TestParseGroupByRequiresField(t *testing.T) {
	_, err := ParseProgram(Tokenize("GROUP orders BY\nAS g\n"))
	if err == nil {
		t.Fatal("expected a parse error for a malformed GROUP clause")
	}
}

func TestParseUnknownKeywordFails(t *testing.T) {
	_, err := ParseProgram([][]string{{"BOGUS", "x"}})
	if err == nil {
		t.Fatal("expected a parse error for an unknown keyword")
	}
}
