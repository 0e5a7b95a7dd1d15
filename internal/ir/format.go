package ir

import (
	"fmt"
	"io"
	"strings"
)

// FormatGraph renders g as text. Output is deterministic and is used for
// golden files, so layout changes must be made deliberately.
//
//	fn name(params) -> result {
//	  local mut a_1: i32
//	  b0:
//	    a_1 = 0:i32
//	    jump_if b_1 != 7:i32, b2
//	  b1: ; preds b0
//	    ...
//	}
func FormatGraph(g *Graph) string {
	var b strings.Builder
	writeGraph(&b, g)
	return b.String()
}

// FormatModule renders several graphs separated by blank lines.
func FormatModule(graphs []*Graph) string {
	var b strings.Builder
	for i, g := range graphs {
		if i > 0 {
			b.WriteString("\n")
		}
		writeGraph(&b, g)
	}
	return b.String()
}

// WriteGraph writes the FormatGraph rendering of g to w.
func WriteGraph(w io.Writer, g *Graph) error {
	_, err := io.WriteString(w, FormatGraph(g))
	return err
}

func writeGraph(b *strings.Builder, g *Graph) {
	params := make([]string, len(g.Params))
	for i, p := range g.Params {
		params[i] = p.Decl()
	}
	fmt.Fprintf(b, "fn %s(%s) -> %s {\n", g.Name, strings.Join(params, ", "), g.Result)

	isParam := make(map[string]bool, len(g.Params))
	for _, p := range g.Params {
		isParam[p.Label] = true
	}
	for _, p := range g.Places() {
		if isParam[p.Label] {
			continue
		}
		fmt.Fprintf(b, "  local %s\n", p.Decl())
	}

	for _, blk := range g.Blocks {
		writeBlock(b, blk)
	}
	b.WriteString("}\n")
}

func writeBlock(b *strings.Builder, blk *BasicBlock) {
	fmt.Fprintf(b, "  b%d:", blk.ID)
	if len(blk.Preds) > 0 {
		preds := make([]string, len(blk.Preds))
		for i, p := range blk.Preds {
			preds[i] = p.String()
		}
		fmt.Fprintf(b, " ; preds %s", strings.Join(preds, ", "))
	}
	b.WriteString("\n")
	for _, in := range blk.Instrs {
		fmt.Fprintf(b, "    %s\n", in)
	}
}
