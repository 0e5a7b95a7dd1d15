package pipeline

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/cfgir/internal/ir"
)

// ParamFor resolves key to a parameter of g. Key is either a place label
// ("b_1") or a source name ("b") that identifies exactly one parameter.
func ParamFor(g *ir.Graph, key string) (ir.Place, error) {
	var matches []ir.Place
	for _, p := range g.Params {
		if p.Label == key {
			return p, nil
		}
		if name, _, ok := cutGeneration(p.Label); ok && name == key {
			matches = append(matches, p)
		}
	}
	switch len(matches) {
	case 0:
		return ir.Place{}, fmt.Errorf("%s has no parameter %q", g.Name, key)
	case 1:
		return matches[0], nil
	default:
		return ir.Place{}, fmt.Errorf("%q is ambiguous in %s; use a label such as %s", key, g.Name, matches[0].Label)
	}
}

// ParseInputs converts textual inputs keyed by parameter name or label into
// constants keyed by label, typed by the parameter.
func ParseInputs(g *ir.Graph, raw map[string]string) (map[string]ir.Constant, error) {
	out := make(map[string]ir.Constant, len(raw))
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, key := range keys {
		text := raw[key]
		p, err := ParamFor(g, key)
		if err != nil {
			return nil, err
		}
		if _, dup := out[p.Label]; dup {
			return nil, fmt.Errorf("%s bound more than once", p.Label)
		}
		c, err := ir.ParseConstant(p.Type, text)
		if err != nil {
			return nil, fmt.Errorf("input %s: %w", key, err)
		}
		out[p.Label] = c
	}
	return out, nil
}

// cutGeneration splits "a_12" into "a" and "12".
func cutGeneration(label string) (name, gen string, ok bool) {
	i := strings.LastIndexByte(label, '_')
	if i <= 0 || i == len(label)-1 {
		return "", "", false
	}
	return label[:i], label[i+1:], true
}
