package store

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/roach88/cfgir/internal/ir"
)

// storedConstant is the JSON shape of a constant in the inputs and value
// columns.
type storedConstant struct {
	Type  string      `json:"type"`
	Value json.Number `json:"value"`
}

func marshalInputs(inputs map[string]ir.Constant) (string, error) {
	data, err := ir.CanonicalInputs(inputs)
	if err != nil {
		return "", fmt.Errorf("marshal inputs: %w", err)
	}
	return string(data), nil
}

func marshalValue(c *ir.Constant) (any, error) {
	if c == nil {
		return nil, nil
	}
	data, err := ir.MarshalCanonical(map[string]any{"type": c.Type.String(), "value": c.Value})
	if err != nil {
		return nil, fmt.Errorf("marshal value: %w", err)
	}
	return string(data), nil
}

func marshalPath(path []ir.BlockID) (string, error) {
	arr := make([]any, len(path))
	for i, id := range path {
		arr[i] = int64(id)
	}
	data, err := ir.MarshalCanonical(arr)
	if err != nil {
		return "", fmt.Errorf("marshal path: %w", err)
	}
	return string(data), nil
}

// decode uses json.Number so 64-bit values survive the round trip.
func decode(data string, v any) error {
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.UseNumber()
	return dec.Decode(v)
}

func (sc storedConstant) constant() (ir.Constant, error) {
	t, err := ir.ParseType(sc.Type)
	if err != nil {
		return ir.Constant{}, err
	}
	n, err := sc.Value.Int64()
	if err != nil {
		return ir.Constant{}, err
	}
	return ir.Const(t, n), nil
}

func unmarshalInputs(data string) (map[string]ir.Constant, error) {
	var raw map[string]storedConstant
	if err := decode(data, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal inputs: %w", err)
	}
	out := make(map[string]ir.Constant, len(raw))
	for label, sc := range raw {
		c, err := sc.constant()
		if err != nil {
			return nil, fmt.Errorf("unmarshal inputs: %s: %w", label, err)
		}
		out[label] = c
	}
	return out, nil
}

func unmarshalValue(data string) (*ir.Constant, error) {
	var sc storedConstant
	if err := decode(data, &sc); err != nil {
		return nil, fmt.Errorf("unmarshal value: %w", err)
	}
	c, err := sc.constant()
	if err != nil {
		return nil, fmt.Errorf("unmarshal value: %w", err)
	}
	return &c, nil
}

func unmarshalPath(data string) ([]ir.BlockID, error) {
	var raw []uint32
	if err := decode(data, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal path: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]ir.BlockID, len(raw))
	for i, id := range raw {
		out[i] = ir.BlockID(id)
	}
	return out, nil
}
