package chunker

import "strings"

// DefaultBudget is the per-unit token budget used when none is configured.
const DefaultBudget = 3000

// Split bounds a chunk by budget. A chunk whose estimated cost fits is
// returned as is. Otherwise its lines are accumulated in order, and a Block
// chunk is closed whenever the running sum of line costs reaches budget or the
// last line is reached. The resulting spans partition the chunk's lines
// exactly. A single line costing more than budget becomes a block of its
// own; if the walk produces only one block, the original chunk is returned.
func Split(c Chunk, budget int, est Estimator) []Chunk {
	if est.Estimate(c.Text) <= budget {
		return []Chunk{c}
	}

	lines := strings.Split(c.Text, "\n")
	var (
		out       []Chunk
		block     []string
		cost      int
		blockLine = c.StartLine
	)
	for i, line := range lines {
		block = append(block, line)
		cost += est.Estimate(line)
		if cost < budget && i < len(lines)-1 {
			continue
		}
		sub := c
		sub.Kind = KindBlock
		sub.StartLine = blockLine
		sub.EndLine = blockLine + len(block) - 1
		sub.Text = strings.Join(block, "\n")
		out = append(out, sub)

		blockLine = sub.EndLine + 1
		block = nil
		cost = 0
	}

	if len(out) == 1 {
		return []Chunk{c}
	}
	return out
}

// SplitAll applies Split to every chunk, preserving order.
func SplitAll(chunks []Chunk, budget int, est Estimator) []Chunk {
	out := make([]Chunk, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, Split(c, budget, est)...)
	}
	return out
}
