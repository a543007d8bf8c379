// Package exec runs a parsed query.Program against an mmgdb.DB: it
// filters record-IDs through the declared indexes, orders and paginates
// them, projects fields, and binds the result of each statement into a
// shared variable environment that a trailing RETURN harvests from
// (spec §4.4).
//
// Grounded on the teacher's separation of "plan" (query.Program, built
// once) from "run" (this package, walking the plan against live state),
// the same split eth/stagedsync draws between a StageState and the
// stage function that advances it.
package exec

// PackKind tags which shape a bound variable holds.
type PackKind int

const (
	PackList PackKind = iota
	PackValue
	PackIDList
)

// ValuePack is the result of one AS binding: either a list of
// documents (a plain SELECT), a single document or scalar (a SELECT
// ONE), or a raw ID list (reserved for GROUP, unused while GROUP is a
// stub — §9 item 1).
type ValuePack struct {
	Kind   PackKind
	List   []map[string]interface{}
	Value  interface{}
	IDList []uint32
}

// Environment is the variable environment shared by every statement in
// one program run: caller-supplied params plus the AS bindings
// accumulated so far (spec §4.4, "Variable environment" in the
// glossary).
type Environment struct {
	Params map[string]interface{}
	Vars   map[string]ValuePack
}

// NewEnvironment returns an environment seeded with params; params may
// be nil.
func NewEnvironment(params map[string]interface{}) *Environment {
	if params == nil {
		params = make(map[string]interface{})
	}
	return &Environment{Params: params, Vars: make(map[string]ValuePack)}
}

// resolveOne resolves a $name reference to a single value: a param
// wins over a bound variable; a List variable contributes its first
// element; an IDList variable never resolves to a scalar (§4.4,
// grounded on resolve_one_value_ref).
func (e *Environment) resolveOne(name string) interface{} {
	if v, ok := e.Params[name]; ok {
		return v
	}
	pack, ok := e.Vars[name]
	if !ok {
		return nil
	}
	switch pack.Kind {
	case PackValue:
		return pack.Value
	case PackList:
		if len(pack.List) > 0 {
			return pack.List[0]
		}
	}
	return nil
}

// resolveList resolves a $name reference to a value list: a param or
// bound Value that is itself a JSON array contributes its elements; a
// scalar contributes a single-element list; a bound List variable
// contributes its documents; null/missing resolves to an empty list
// (grounded on resolve_list_value_ref).
func (e *Environment) resolveList(name string) []interface{} {
	var one interface{}
	if v, ok := e.Params[name]; ok {
		one = v
	} else if pack, ok := e.Vars[name]; ok {
		switch pack.Kind {
		case PackList:
			out := make([]interface{}, len(pack.List))
			for i, d := range pack.List {
				out[i] = d
			}
			return out
		case PackValue:
			one = pack.Value
		}
	}
	if one == nil {
		return nil
	}
	if list, ok := one.([]interface{}); ok {
		return list
	}
	return []interface{}{one}
}

