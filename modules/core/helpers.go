package core

import (
	"fmt"
	"strings"

	"github.com/specialistvlad/nodegraph/internal/registry"
	"github.com/specialistvlad/nodegraph/internal/typecache"
	"github.com/specialistvlad/nodegraph/internal/types"
	"github.com/zclconf/go-cty/cty"
)

func numberIn(ec registry.ExecContext, port string) (float64, error) {
	v, err := ec.Input(port)
	if err != nil {
		return 0, err
	}
	return types.Float(v)
}

func stringIn(ec registry.ExecContext, port string) (string, error) {
	v, err := ec.Input(port)
	if err != nil {
		return "", err
	}
	return types.Str(v)
}

func boolIn(ec registry.ExecContext, port string) (bool, error) {
	v, err := ec.Input(port)
	if err != nil {
		return false, err
	}
	return types.Bool(v)
}

func nativeIn(ec registry.ExecContext, port string) (any, error) {
	v, err := ec.Input(port)
	if err != nil {
		return nil, err
	}
	return types.ToNative(v)
}

func setNumber(ec registry.ExecContext, port string, f float64) error {
	v, err := types.Number(f)
	if err != nil {
		return err
	}
	return ec.SetOutput(port, v)
}

// inputs resolves several value inputs to expressions in order.
func inputs(ec registry.EmitContext, ports ...string) ([]string, error) {
	out := make([]string, 0, len(ports))
	for _, p := range ports {
		expr, err := ec.Input(p)
		if err != nil {
			return nil, err
		}
		out = append(out, expr)
	}
	return out, nil
}

func paren(expr string) string {
	return "(" + expr + ")"
}

// opSetting reads an operator setting, falling back to def, and checks it
// against the allowed set.
func opSetting(n interface{ SettingString(string) string }, def string, allowed ...string) (string, error) {
	op := n.SettingString("op")
	if op == "" {
		op = def
	}
	for _, a := range allowed {
		if a == op {
			return op, nil
		}
	}
	return "", fmt.Errorf("unknown operator %q, expected one of %s", op, strings.Join(allowed, ", "))
}

// typeSetting parses the optional "type" setting, defaulting to any.
func typeSetting(n interface{ SettingString(string) string }) (cty.Type, error) {
	src := n.SettingString("type")
	if src == "" {
		return cty.DynamicPseudoType, nil
	}
	return typecache.Default().Type(src)
}
