// Package core provides the built-in node kinds: events, constants,
// arithmetic and logic, control flow, member access, functions and the
// converters used by auto-conversion.
package core

import (
	"github.com/specialistvlad/nodegraph/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Kind names.
const (
	KindEvent       = "core.event"
	KindConstant    = "core.constant"
	KindMath        = "core.math"
	KindCompare     = "core.compare"
	KindLogic       = "core.logic"
	KindNot         = "core.not"
	KindConcat      = "core.concat"
	KindReroute     = "core.reroute"
	KindBranch      = "core.branch"
	KindSequence    = "core.sequence"
	KindFor         = "core.for"
	KindWhile       = "core.while"
	KindDelay       = "core.delay"
	KindGet         = "core.get"
	KindSet         = "core.set"
	KindEntry       = "core.function_entry"
	KindReturn      = "core.return"
	KindCall        = "core.call"
	KindToString    = "core.to_string"
	KindParseNumber = "core.parse_number"
	KindParseBool   = "core.parse_bool"
	KindCast        = "core.cast"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the core kinds and conversion rules.
func (m *Module) Register(r *registry.Registry) {
	for _, k := range []*registry.Kind{
		eventKind(),
		constantKind(), mathKind(), compareKind(), logicKind(), notKind(), concatKind(), rerouteKind(),
		branchKind(), sequenceKind(), forKind(), whileKind(), delayKind(),
		getKind(), setKind(), entryKind(), returnKind(), callKind(),
		toStringKind(), parseNumberKind(), parseBoolKind(), castKind(),
	} {
		r.RegisterKind(k)
	}

	castTo := func(t string) map[string]cty.Value {
		return map[string]cty.Value{"type": cty.StringVal(t)}
	}
	for _, c := range []registry.Converter{
		{Name: "number_to_string", Priority: 10, From: cty.Number, To: cty.String, Kind: KindToString},
		{Name: "bool_to_string", Priority: 20, From: cty.Bool, To: cty.String, Kind: KindToString},
		{Name: "string_to_number", Priority: 30, From: cty.String, To: cty.Number, Kind: KindParseNumber},
		{Name: "cast_bool", Priority: 40, From: cty.DynamicPseudoType, To: cty.Bool, Kind: KindCast, Settings: castTo("bool")},
		{Name: "cast_number", Priority: 40, From: cty.DynamicPseudoType, To: cty.Number, Kind: KindCast, Settings: castTo("number")},
		{Name: "cast_string", Priority: 40, From: cty.DynamicPseudoType, To: cty.String, Kind: KindCast, Settings: castTo("string")},
		{Name: "string_to_bool", Priority: 50, From: cty.String, To: cty.Bool, Kind: KindParseBool},
	} {
		r.RegisterConverter(c)
	}
}
