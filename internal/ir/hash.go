package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainGraph  = "cfgir/graph/v1"
	DomainInputs = "cfgir/inputs/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// GraphHash returns the content hash of g. Two graphs hash equal iff their
// canonical forms are identical, including predecessor lists.
func GraphHash(g *Graph) (string, error) {
	canonical, err := MarshalCanonical(CanonicalGraph(g))
	if err != nil {
		return "", fmt.Errorf("GraphHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainGraph, canonical), nil
}

// MustGraphHash is like GraphHash but panics on error.
func MustGraphHash(g *Graph) string {
	h, err := GraphHash(g)
	if err != nil {
		panic(err)
	}
	return h
}

// CanonicalInputs renders an input binding as canonical JSON, keyed by label.
func CanonicalInputs(inputs map[string]Constant) ([]byte, error) {
	obj := make(map[string]any, len(inputs))
	for label, c := range inputs {
		obj[label] = map[string]any{"type": c.Type.String(), "value": c.Value}
	}
	return MarshalCanonical(obj)
}

// InputsHash returns the content hash of an input binding.
func InputsHash(inputs map[string]Constant) (string, error) {
	canonical, err := CanonicalInputs(inputs)
	if err != nil {
		return "", fmt.Errorf("InputsHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainInputs, canonical), nil
}

// SortedLabels returns the keys of inputs in ascending order.
func SortedLabels(inputs map[string]Constant) []string {
	out := make([]string, 0, len(inputs))
	for k := range inputs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
