package exec

import (
	"math"
	"regexp"

	"github.com/RoaringBitmap/roaring"
	"github.com/ledgerwatch/minimongo/common/dbutils"
	"github.com/ledgerwatch/minimongo/ethdb"
	"github.com/ledgerwatch/minimongo/mmgdb"
	"github.com/ledgerwatch/minimongo/query"
)

// probeCondition dispatches one leaf condition to the probe for its
// field's index classification, checked in the §4.4.1 priority order
// (the classification itself lives in mmgdb.CollectionDef.Classify):
// primary-key, string-unique, string-multi, f64, no index.
func probeCondition(tx ethdb.Tx, collName string, def mmgdb.CollectionDef, cond *query.Condition, env *Environment) Set {
	switch def.Classify(cond.Field) {
	case mmgdb.ClassPrimaryKey:
		return probeStringUnique(tx.Bucket(dbutils.PrimaryTable(collName)), cond, env)
	case mmgdb.ClassStringUnique:
		return probeStringUnique(tx.Bucket(dbutils.StringUniqueTable(collName, cond.Field)), cond, env)
	case mmgdb.ClassStringMulti:
		return probeStringMulti(tx.Bucket(dbutils.StringTable(collName, cond.Field)), cond, env)
	case mmgdb.ClassF64:
		return probeF64(tx.Bucket(dbutils.F64Table(collName, cond.Field)), cond, env)
	default:
		return EmptySet()
	}
}

// resolveLiteral turns a parsed literal into a Go value, resolving a
// $ref against env (§4.3.2).
func resolveLiteral(lit query.Literal, env *Environment) interface{} {
	switch {
	case lit.IsRef:
		return env.resolveOne(lit.Ref)
	case lit.IsInt:
		return lit.IntVal
	case lit.IsFloat:
		return lit.FloatVal
	default:
		return lit.StrVal
	}
}

// resolveLiteralList resolves a literal used on the right of an IN
// clause to a value list, the same way the environment resolves a list
// $ref (§4.4, grounded on resolve_list_value_ref): a ref that names a
// bound List contributes its documents, a scalar ref or literal
// contributes a single-element list.
func resolveLiteralList(lit query.Literal, env *Environment) []interface{} {
	if lit.IsRef {
		return env.resolveList(lit.Ref)
	}
	return []interface{}{resolveLiteral(lit, env)}
}

func asString(v interface{}) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// probeStringUnique handles both the primary-key table and a declared
// string-unique index: both map one string key to exactly one
// record-ID (grounded on filter_id_from_table_string_unique).
func probeStringUnique(b ethdb.Bucket, cond *query.Condition, env *Environment) Set {
	ids := roaring.New()
	if b == nil {
		return NewSet(ids)
	}
	switch cond.Kind {
	case query.CondEqual:
		if key, ok := asString(resolveLiteral(cond.Value, env)); ok {
			if v, err := b.Get([]byte(key)); err == nil && v != nil {
				ids.Add(dbutils.DecodeRecordID(v))
			}
		}
	case query.CondIn:
		for _, v := range resolveLiteralList(cond.Value, env) {
			key, ok := asString(v)
			if !ok {
				continue
			}
			if raw, err := b.Get([]byte(key)); err == nil && raw != nil {
				ids.Add(dbutils.DecodeRecordID(raw))
			}
		}
	case query.CondRegex:
		re, err := regexp.Compile(cond.Pattern)
		if err != nil {
			return NewSet(ids)
		}
		c := b.Cursor()
		for k, v, err := c.First(); k != nil; k, v, err = c.Next() {
			if err != nil {
				break
			}
			if re.Match(k) {
				ids.Add(dbutils.DecodeRecordID(v))
			}
		}
	case query.CondRange:
		// unreferenced shape for a unique-string field (§9 item 4): ∅.
	}
	return NewSet(ids)
}

// probeStringMulti handles a declared multivalued string index
// (grounded on filter_id_from_table_string).
func probeStringMulti(b ethdb.Bucket, cond *query.Condition, env *Environment) Set {
	ids := roaring.New()
	if b == nil {
		return NewSet(ids)
	}
	switch cond.Kind {
	case query.CondEqual:
		if key, ok := asString(resolveLiteral(cond.Value, env)); ok {
			_ = ethdb.MultimapForEach(b, []byte(key), func(id uint32) bool {
				ids.Add(id)
				return true
			})
		}
	case query.CondIn:
		for _, v := range resolveLiteralList(cond.Value, env) {
			key, ok := asString(v)
			if !ok {
				continue
			}
			_ = ethdb.MultimapForEach(b, []byte(key), func(id uint32) bool {
				ids.Add(id)
				return true
			})
		}
	case query.CondRegex:
		re, err := regexp.Compile(cond.Pattern)
		if err != nil {
			return NewSet(ids)
		}
		_ = ethdb.MultimapScanAll(b, func(key []byte, id uint32) bool {
			if re.Match(key) {
				ids.Add(id)
			}
			return true
		})
	case query.CondRange:
		// unreferenced shape for a multi-string field (§9 item 4): ∅.
	}
	return NewSet(ids)
}

// probeF64 handles a declared f64 index: only RANGE is meaningful,
// matching filter_id_from_table_f64's empty arms for EQUAL/IN/REGEX
// (spec §4.4.1's probe table; §9 item 4 "unreferenced value shapes...
// silently yield ∅").
func probeF64(b ethdb.Bucket, cond *query.Condition, env *Environment) Set {
	ids := roaring.New()
	if b == nil || cond.Kind != query.CondRange {
		return NewSet(ids)
	}
	lo := rangeBound(cond.Lo, cond.HasLo, env, false)
	hi := rangeBound(cond.Hi, cond.HasHi, env, true)

	loKey := dbutils.EncodeF64Key(lo, 0)
	hiKey := dbutils.EncodeF64Key(hi, ^uint32(0))

	c := b.Cursor()
	for k, _, err := c.Seek(loKey); k != nil; k, _, err = c.Next() {
		if err != nil {
			break
		}
		if bytesGreater(k, hiKey) {
			break
		}
		_, id := dbutils.DecodeF64Key(k)
		ids.Add(id)
	}
	return NewSet(ids)
}

// rangeBound resolves one side of a RANGE condition to a float64,
// defaulting to -Inf/+Inf when that side is absent. A ref that does not
// resolve to a JSON number collapses to -1.0, matching the source's
// number_to_f64 fallback (§9 item 4: "a non-numeric range bound
// resolves to -1.0").
func rangeBound(lit query.Literal, has bool, env *Environment, upper bool) float64 {
	if !has {
		if upper {
			return math.Inf(1)
		}
		return math.Inf(-1)
	}
	if !lit.IsRef {
		if lit.IsInt {
			return float64(lit.IntVal)
		}
		return lit.FloatVal
	}
	switch v := env.resolveOne(lit.Ref).(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	default:
		return -1.0
	}
}

func bytesGreater(a, b []byte) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] > b[i]
		}
	}
	return len(a) > len(b)
}
