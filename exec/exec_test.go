package exec

import (
	"encoding/json"
	"testing"

	"github.com/ledgerwatch/minimongo/mmgdb"
	"github.com/ledgerwatch/minimongo/query"
)

func newTestDB(t *testing.T) *mmgdb.DB {
	t.Helper()
	reg := mmgdb.NewRegistry(t.TempDir())
	db, err := reg.Open("W")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return db
}

func mustInsert(t *testing.T, db *mmgdb.DB, coll string, docs ...map[string]interface{}) {
	t.Helper()
	raws := make([]json.RawMessage, len(docs))
	for i, d := range docs {
		b, err := json.Marshal(d)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		raws[i] = b
	}
	if _, err := db.UpdateRecords(coll, raws, mmgdb.Merge); err != nil {
		t.Fatalf("UpdateRecords: %v", err)
	}
}

func runQuery(t *testing.T, db *mmgdb.DB, program string, params map[string]interface{}) map[string]interface{} {
	t.Helper()
	prog, err := query.ParseProgram(query.Tokenize(program))
	if err != nil {
		t.Fatalf("ParseProgram: %v", err)
	}
	env := NewEnvironment(params)
	result, err := Execute(db, prog, env)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	return result
}

func TestExecuteSelectOneByPrimaryKey(t *testing.T) {
	db := newTestDB(t)
	if err := db.CreateCollection(mmgdb.CollectionDef{Name: "users", PrimaryKey: "id"}); err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}
	mustInsert(t, db, "users", map[string]interface{}{"id": "alice", "age": 30.0})

	result := runQuery(t, db, `
SELECT ONE users
WHERE id = "alice"
AS found

RETURN found
`, nil)

	found, ok := result["found"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected a single document, got %#v", result["found"])
	}
	if found["id"] != "alice" {
		t.Errorf("unexpected document: %+v", found)
	}
}

func TestExecuteRangeOrderByDescWithLimit(t *testing.T) {
	db := newTestDB(t)
	def := mmgdb.CollectionDef{Name: "scores", PrimaryKey: "id", IndexesF64: []string{"value"}}
	if err := db.CreateCollection(def); err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}
	for i, v := range []float64{10, 20, 30, 40, 50} {
		mustInsert(t, db, "scores", map[string]interface{}{"id": string(rune('a' + i)), "value": v})
	}

	result := runQuery(t, db, `
SELECT scores
WHERE value > 15 AND value < 45
ORDERBY value DESC LIMIT 2
AS top

RETURN top
`, nil)

	top, ok := result["top"].([]interface{})
	if !ok {
		t.Fatalf("expected a list, got %#v", result["top"])
	}
	if len(top) != 2 {
		t.Fatalf("expected 2 results, got %d: %+v", len(top), top)
	}
	first := top[0].(map[string]interface{})
	second := top[1].(map[string]interface{})
	if first["value"].(float64) != 40 || second["value"].(float64) != 30 {
		t.Errorf("unexpected ordering: %v, %v", first["value"], second["value"])
	}
}

func TestExecuteBooleanAlgebraWithExplicitPriority(t *testing.T) {
	db := newTestDB(t)
	def := mmgdb.CollectionDef{
		Name:          "items",
		PrimaryKey:    "id",
		IndexesString: []string{"tag"},
		IndexesF64:    []string{"price"},
	}
	if err := db.CreateCollection(def); err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}
	mustInsert(t, db, "items",
		map[string]interface{}{"id": "i1", "tag": "red", "price": 5.0},
		map[string]interface{}{"id": "i2", "tag": "blue", "price": 50.0},
		map[string]interface{}{"id": "i3", "tag": "blue", "price": 5.0},
	)

	// tag = "red" OR[1] tag = "blue" AND[2] price > 10 selects i1 (red)
	// and i2 (blue, price 50), but not i3 (blue, price 5).
	result := runQuery(t, db, `
SELECT items
WHERE tag = "red" OR[1] tag = "blue" AND[2] price > 10
AS matched

RETURN matched
`, nil)

	matched, ok := result["matched"].([]interface{})
	if !ok {
		t.Fatalf("expected a list, got %#v", result["matched"])
	}
	ids := map[string]bool{}
	for _, d := range matched {
		ids[d.(map[string]interface{})["id"].(string)] = true
	}
	if len(ids) != 2 || !ids["i1"] || !ids["i2"] {
		t.Errorf("unexpected match set: %v", ids)
	}
}

func TestExecuteParameterDrivenIn(t *testing.T) {
	db := newTestDB(t)
	def := mmgdb.CollectionDef{Name: "orders", PrimaryKey: "id", IndexesStringUnique: []string{"code"}}
	if err := db.CreateCollection(def); err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}
	mustInsert(t, db, "orders",
		map[string]interface{}{"id": "o1", "code": "A"},
		map[string]interface{}{"id": "o2", "code": "B"},
		map[string]interface{}{"id": "o3", "code": "C"},
	)

	result := runQuery(t, db, `
SELECT orders
WHERE code IN $codes
AS picked

RETURN picked
`, map[string]interface{}{"codes": []interface{}{"A", "C"}})

	picked, ok := result["picked"].([]interface{})
	if !ok {
		t.Fatalf("expected a list, got %#v", result["picked"])
	}
	if len(picked) != 2 {
		t.Fatalf("expected 2 results, got %d: %+v", len(picked), picked)
	}
}

func TestExecuteReturnsMultipleBindings(t *testing.T) {
	db := newTestDB(t)
	if err := db.CreateCollection(mmgdb.CollectionDef{Name: "a", PrimaryKey: "id"}); err != nil {
		t.Fatalf("CreateCollection a: %v", err)
	}
	if err := db.CreateCollection(mmgdb.CollectionDef{Name: "b", PrimaryKey: "id"}); err != nil {
		t.Fatalf("CreateCollection b: %v", err)
	}
	mustInsert(t, db, "a", map[string]interface{}{"id": "x"})
	mustInsert(t, db, "b", map[string]interface{}{"id": "y"})

	result := runQuery(t, db, `
SELECT a
AS firstSet

SELECT b
AS secondSet

RETURN firstSet, secondSet
`, nil)

	if _, ok := result["firstSet"]; !ok {
		t.Error("missing firstSet binding")
	}
	if _, ok := result["secondSet"]; !ok {
		t.Error("missing secondSet binding")
	}
}

func TestExecuteUnknownFieldClassReturnsEmpty(t *testing.T) {
	db := newTestDB(t)
	if err := db.CreateCollection(mmgdb.CollectionDef{Name: "plain", PrimaryKey: "id"}); err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}
	mustInsert(t, db, "plain", map[string]interface{}{"id": "p1", "note": "hello"})

	result := runQuery(t, db, `
SELECT plain
WHERE note = "hello"
AS matched

RETURN matched
`, nil)

	matched, ok := result["matched"].([]interface{})
	if !ok {
		t.Fatalf("expected a list, got %#v", result["matched"])
	}
	if len(matched) != 0 {
		t.Errorf("an un-indexed field should probe to the empty set, got %+v", matched)
	}
}
