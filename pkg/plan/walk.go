package plan

import "strings"

// Walk visits n and every node reachable from it, pre-order.
func Walk(n Node, visit func(Node)) {
	if n == nil {
		return
	}
	visit(n)
	for _, in := range n.Inputs() {
		Walk(in, visit)
	}
}

// Count returns the number of nodes in the tree rooted at n.
func Count(n Node) int {
	total := 0
	Walk(n, func(Node) { total++ })
	return total
}

// Format renders the tree with two-space indentation, one node per line.
func Format(n Node) string {
	var sb strings.Builder
	format(&sb, n, 0)
	return sb.String()
}

func format(sb *strings.Builder, n Node, depth int) {
	sb.WriteString(strings.Repeat("  ", depth))
	sb.WriteString(n.String())
	sb.WriteByte('\n')
	for _, in := range n.Inputs() {
		format(sb, in, depth+1)
	}
}
