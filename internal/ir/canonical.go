package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces canonical JSON for hashing: object keys sorted by
// UTF-16 code units, strings NFC normalized, no HTML escaping, no floats and
// no null. Accepts string, int, int64, bool, []any and map[string]any.
//
// This is the only serialization used for content-addressed identity.
func MarshalCanonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		return fmt.Errorf("null is forbidden in canonical JSON")
	case string:
		return writeCanonicalString(buf, val)
	case int:
		fmt.Fprintf(buf, "%d", val)
	case int64:
		fmt.Fprintf(buf, "%d", val)
	case uint32:
		fmt.Fprintf(buf, "%d", val)
	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case []any:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, elem); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		buf.WriteByte('{')
		for i, k := range sortedKeys(val) {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonicalString(buf, k); err != nil {
				return fmt.Errorf("key %q: %w", k, err)
			}
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k]); err != nil {
				return fmt.Errorf("value for key %q: %w", k, err)
			}
		}
		buf.WriteByte('}')
	case float32, float64:
		return fmt.Errorf("floats are forbidden in canonical JSON: %v", val)
	default:
		return fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
	return nil
}

func writeCanonicalString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return err
	}
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte("\n")))
	return nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareUTF16)
	return keys
}

func compareUTF16(a, b string) int {
	ua := utf16.Encode([]rune(a))
	ub := utf16.Encode([]rune(b))
	return slices.Compare(ua, ub)
}

// CanonicalGraph converts g into the generic tree hashed by GraphHash.
func CanonicalGraph(g *Graph) map[string]any {
	params := make([]any, len(g.Params))
	for i, p := range g.Params {
		params[i] = canonicalPlace(p)
	}
	blocks := make([]any, len(g.Blocks))
	for i, b := range g.Blocks {
		preds := make([]any, len(b.Preds))
		for j, p := range b.Preds {
			preds[j] = int64(p)
		}
		instrs := make([]any, len(b.Instrs))
		for j, in := range b.Instrs {
			instrs[j] = canonicalInstr(in)
		}
		blocks[i] = map[string]any{
			"id":     int64(b.ID),
			"preds":  preds,
			"instrs": instrs,
		}
	}
	return map[string]any{
		"name":   g.Name,
		"params": params,
		"result": g.Result.String(),
		"blocks": blocks,
	}
}

func canonicalPlace(p Place) map[string]any {
	return map[string]any{
		"label": p.Label,
		"kind":  p.Kind.String(),
		"type":  p.Type.String(),
	}
}

func canonicalOperand(op Operand) map[string]any {
	switch v := op.(type) {
	case Constant:
		return map[string]any{"const": v.Value, "type": v.Type.String()}
	case PlaceRef:
		return map[string]any{"place": canonicalPlace(v.Place)}
	default:
		return map[string]any{"unknown": fmt.Sprintf("%T", op)}
	}
}

func canonicalInstr(in Instr) map[string]any {
	switch v := in.(type) {
	case *LoadData:
		return map[string]any{"op": "load", "dest": canonicalPlace(v.Dest), "src": canonicalOperand(v.Src)}
	case *Jump:
		return map[string]any{"op": "jump", "target": int64(v.Target)}
	case *JumpIfCond:
		return map[string]any{
			"op":     "jump_if",
			"cmp":    v.Cmp.String(),
			"lhs":    canonicalOperand(v.Lhs),
			"rhs":    canonicalOperand(v.Rhs),
			"target": int64(v.Target),
		}
	case *Ret:
		return map[string]any{"op": "ret", "value": canonicalOperand(v.Value)}
	default:
		return map[string]any{"op": fmt.Sprintf("unknown:%T", in)}
	}
}
