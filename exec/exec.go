package exec

import (
	"encoding/json"

	"github.com/RoaringBitmap/roaring"
	"github.com/ledgerwatch/minimongo/common/dbutils"
	"github.com/ledgerwatch/minimongo/ethdb"
	"github.com/ledgerwatch/minimongo/mmgdb"
	"github.com/ledgerwatch/minimongo/query"
)

func decodeDocument(raw []byte) (map[string]interface{}, error) {
	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// resolveConditionExpr walks a parsed condition tree and evaluates it
// into a lazy Set, probing the relevant index at each leaf and
// combining sub-results via the §4.4.2 AND/OR/NOT table (grounded on
// resolve_condition_results_recursive, with the tree already built by
// the parser instead of being re-split here).
func resolveConditionExpr(tx ethdb.Tx, collName string, def mmgdb.CollectionDef, expr *query.ConditionExpr, env *Environment) Set {
	switch {
	case expr == nil:
		return EmptySet()
	case expr.Leaf != nil:
		return probeCondition(tx, collName, def, expr.Leaf, env)
	case expr.Not != nil:
		return resolveConditionExpr(tx, collName, def, expr.Not, env).Not()
	case expr.IsBin:
		left := resolveConditionExpr(tx, collName, def, expr.Left, env)
		right := resolveConditionExpr(tx, collName, def, expr.Right, env)
		if expr.Op == query.OpOr {
			return left.Or(right)
		}
		return left.And(right)
	default:
		return EmptySet()
	}
}

// filterRecords evaluates a WHERE/HAVING tree and materializes it,
// gated by MaxFullLen when the root result is a complement (spec
// §4.4.2, grounded on resolve_condition_results_if). where == nil means
// "no filter at all" and is distinct from an empty result.
func filterRecords(tx ethdb.Tx, collName string, def mmgdb.CollectionDef, where *query.ConditionExpr, env *Environment) *roaring.Bitmap {
	if where == nil {
		return nil
	}
	set := resolveConditionExpr(tx, collName, def, where, env)
	payload := tx.Bucket(dbutils.PayloadTable(collName))
	return set.Materialize(
		func() int { return bucketLen(payload) },
		func() *roaring.Bitmap { return firstN(payload, MaxFullLen) },
	)
}

// defaultRecordIDs is the unfiltered, unordered default: the first
// DefaultLimit record-IDs in payload-table order (grounded on
// default_record_ids).
func defaultRecordIDs(tx ethdb.Tx, collName string) []uint32 {
	b := tx.Bucket(dbutils.PayloadTable(collName))
	if b == nil {
		return nil
	}
	var ids []uint32
	c := b.Cursor()
	for k, _, err := c.First(); k != nil && err == nil && len(ids) < DefaultLimit; k, _, err = c.Next() {
		ids = append(ids, dbutils.DecodeRecordID(k))
	}
	return ids
}

// Execute runs prog against db, starting from env, and returns the
// values bound by any RETURN clause (spec §4.4, grounded on
// MgDb::query_records). CREATE and GROUP statements are accepted by the
// parser but intentionally left unexecuted here, matching the source's
// empty execute_create/execute_group (§9 item 1): a program containing
// them still runs to completion, it simply never populates their AS
// binding.
func Execute(db *mmgdb.DB, prog *query.Program, env *Environment) (map[string]interface{}, error) {
	for _, stmt := range prog.Statements {
		switch stmt.Kind {
		case query.KindSelect:
			if err := executeSelect(db, stmt, env); err != nil {
				return nil, err
			}
		case query.KindCreate, query.KindGroup:
			// stubs in the source this is grounded on; see doc comment.
		}
	}

	result := make(map[string]interface{})
	for _, name := range prog.Returns {
		pack, ok := env.Vars[name]
		if !ok {
			continue
		}
		switch pack.Kind {
		case PackList:
			docs := make([]interface{}, len(pack.List))
			for i, d := range pack.List {
				docs[i] = d
			}
			result[name] = docs
		case PackValue:
			result[name] = pack.Value
		}
	}
	return result, nil
}

func executeSelect(db *mmgdb.DB, stmt query.Statement, env *Environment) error {
	def, err := db.GetCollection(stmt.Collection)
	if err != nil {
		return err
	}

	var docs []map[string]interface{}
	err = db.KV().View(func(tx ethdb.Tx) error {
		filtered := filterRecords(tx, stmt.Collection, def, stmt.Where, env)

		var ids []uint32
		switch {
		case stmt.OrderBy != nil:
			ids = orderedIDs(tx, stmt.Collection, def, stmt.OrderBy, filtered, env)
		case filtered != nil:
			it := filtered.Iterator()
			for it.HasNext() && len(ids) < DefaultLimit {
				ids = append(ids, it.Next())
			}
		default:
			ids = defaultRecordIDs(tx, stmt.Collection)
		}

		if stmt.One && len(ids) > 1 {
			ids = ids[:1]
		}

		docs = projectDocuments(db, tx, stmt.Collection, stmt.Fields, ids)
		return nil
	})
	if err != nil {
		return err
	}

	bindResult(env, stmt, docs)
	return nil
}

// projectDocuments loads each record's payload and applies the FIELD
// clause: no FIELD clause (or a bare "*") returns the whole document;
// otherwise only the named plain fields are kept (in a map, so with no
// field order), with missing fields silently dropped (§9 item 4) and expression
// fields ignored (§9 item 1), grounded on export_data.
func projectDocuments(db *mmgdb.DB, tx ethdb.Tx, collName string, fields []query.Field, ids []uint32) []map[string]interface{} {
	b := tx.Bucket(dbutils.PayloadTable(collName))
	if b == nil {
		return nil
	}

	all := len(fields) == 0
	var names []string
	for _, f := range fields {
		if f.IsStar {
			all = true
			continue
		}
		if f.IsExpr {
			continue
		}
		names = append(names, f.Text)
	}

	var out []map[string]interface{}
	for _, id := range ids {
		raw, err := db.GetDocument(b, collName, id)
		if err != nil || raw == nil {
			continue
		}
		doc, err := decodeDocument(raw)
		if err != nil {
			continue
		}
		if all {
			out = append(out, doc)
			continue
		}
		sub := make(map[string]interface{}, len(names))
		for _, name := range names {
			if v, ok := doc[name]; ok {
				sub[name] = v
			}
		}
		out = append(out, sub)
	}
	return out
}

// bindResult installs a statement's projected documents under its AS
// name: SELECT ONE binds a single document (or nil when nothing
// matched), a plain SELECT binds a list (grounded on export_data's
// ValuePack::Value vs. ValuePack::List split).
func bindResult(env *Environment, stmt query.Statement, docs []map[string]interface{}) {
	if stmt.As == "" {
		return
	}
	if stmt.One {
		if len(docs) > 0 {
			env.Vars[stmt.As] = ValuePack{Kind: PackValue, Value: docs[0]}
		} else {
			env.Vars[stmt.As] = ValuePack{Kind: PackValue, Value: nil}
		}
		return
	}
	env.Vars[stmt.As] = ValuePack{Kind: PackList, List: docs}
}
