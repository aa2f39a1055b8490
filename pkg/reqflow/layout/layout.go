// Package layout assigns 2-D coordinates to abstract flow graphs.
//
// The algorithm is a layered (Sugiyama-style) drawing oriented top to
// bottom: break cycles, assign each node to a rank by longest path from the
// roots, reduce crossings with barycenter sweeps, then space nodes inside
// each rank. All tie-breaking follows input order, so identical input
// produces identical positions.
package layout

import "sort"

// Node is an abstract node to place. Type selects the bounding box height.
type Node struct {
	ID   string
	Type string
}

// Edge is a directed connection between two node IDs.
type Edge struct {
	Source string
	Target string
}

// Position is a top-left-anchored coordinate, the convention the rendering
// layer expects. Internally the engine works with box centers and converts
// on the way out.
type Position struct {
	X float64
	Y float64
}

// Config holds the box dimensions and separation constants.
type Config struct {
	NodeWidth      float64
	StepHeight     float64
	DecisionHeight float64
	RankSep        float64
	NodeSep        float64
}

// DefaultConfig matches the rendered node glyphs: 220 px wide cards and a
// 120 px tall decision diamond.
func DefaultConfig() Config {
	return Config{
		NodeWidth:      220,
		StepHeight:     72,
		DecisionHeight: 120,
		RankSep:        80,
		NodeSep:        60,
	}
}

// Height returns the bounding-box height for a node type. The same value is
// used for glyph sizing and for the center-to-top-left conversion; keeping
// them identical is what keeps glyphs aligned with edge endpoints.
func (c Config) Height(nodeType string) float64 {
	if nodeType == "decision" {
		return c.DecisionHeight
	}
	return c.StepHeight
}

const barycenterSweeps = 4

// Compute lays out the graph and returns a position for every node,
// including nodes no edge touches. Edges referencing unknown IDs are
// ignored.
func Compute(nodes []Node, edges []Edge, cfg Config) map[string]Position {
	n := len(nodes)
	positions := make(map[string]Position, n)
	if n == 0 {
		return positions
	}

	index := make(map[string]int, n)
	for i, node := range nodes {
		index[node.ID] = i
	}

	// Adjacency over known nodes, in input order. Self-loops carry no
	// layering information and are skipped.
	succ := make([][]int, n)
	pred := make([][]int, n)
	for _, e := range edges {
		s, okS := index[e.Source]
		t, okT := index[e.Target]
		if !okS || !okT || s == t {
			continue
		}
		succ[s] = append(succ[s], t)
		pred[t] = append(pred[t], s)
	}

	forward := breakCycles(n, succ)
	ranks := assignRanks(n, forward)

	// Group nodes into rows by rank, preserving input order.
	maxRank := 0
	for _, r := range ranks {
		if r > maxRank {
			maxRank = r
		}
	}
	rows := make([][]int, maxRank+1)
	for i := 0; i < n; i++ {
		rows[ranks[i]] = append(rows[ranks[i]], i)
	}

	orderRows(rows, succ, pred)

	// Vertical placement: each row is as tall as its tallest box.
	rowCenterY := make([]float64, len(rows))
	y := 0.0
	for r, row := range rows {
		rowHeight := 0.0
		for _, i := range row {
			if h := cfg.Height(nodes[i].Type); h > rowHeight {
				rowHeight = h
			}
		}
		rowCenterY[r] = y + rowHeight/2
		y += rowHeight + cfg.RankSep
	}

	// Horizontal placement: rows centered on a shared vertical axis, then
	// everything shifted so the leftmost top-left corner lands at x = 0.
	minX := 0.0
	for r, row := range rows {
		rowWidth := float64(len(row))*cfg.NodeWidth + float64(len(row)-1)*cfg.NodeSep
		x := -rowWidth / 2
		for _, i := range row {
			centerX := x + cfg.NodeWidth/2
			positions[nodes[i].ID] = Position{
				X: centerX - cfg.NodeWidth/2,
				Y: rowCenterY[r] - cfg.Height(nodes[i].Type)/2,
			}
			if positions[nodes[i].ID].X < minX {
				minX = positions[nodes[i].ID].X
			}
			x += cfg.NodeWidth + cfg.NodeSep
		}
	}
	if minX < 0 {
		for id, p := range positions {
			positions[id] = Position{X: p.X - minX, Y: p.Y}
		}
	}
	return positions
}

// breakCycles returns the forward-edge adjacency: successor lists with back
// edges (as found by a depth-first walk in input order) removed. The walk is
// iterative so pathological graphs cannot blow the stack.
func breakCycles(n int, succ [][]int) [][]int {
	const (
		unvisited = 0
		onStack   = 1
		done      = 2
	)
	state := make([]int, n)
	forward := make([][]int, n)

	type frame struct {
		node int
		next int
	}
	for start := 0; start < n; start++ {
		if state[start] != unvisited {
			continue
		}
		state[start] = onStack
		stack := []frame{{node: start}}
		for len(stack) > 0 {
			f := &stack[len(stack)-1]
			if f.next < len(succ[f.node]) {
				t := succ[f.node][f.next]
				f.next++
				if state[t] == onStack {
					continue // back edge, dropped for layering
				}
				forward[f.node] = append(forward[f.node], t)
				if state[t] == unvisited {
					state[t] = onStack
					stack = append(stack, frame{node: t})
				}
			} else {
				state[f.node] = done
				stack = stack[:len(stack)-1]
			}
		}
	}
	return forward
}

// assignRanks gives each node the length of the longest forward path from
// any root. Roots, and nodes no edge touches, sit at rank 0.
func assignRanks(n int, forward [][]int) []int {
	indegree := make([]int, n)
	for _, targets := range forward {
		for _, t := range targets {
			indegree[t]++
		}
	}

	ranks := make([]int, n)
	queue := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if indegree[i] == 0 {
			queue = append(queue, i)
		}
	}
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		for _, t := range forward[i] {
			if ranks[i]+1 > ranks[t] {
				ranks[t] = ranks[i] + 1
			}
			if indegree[t]--; indegree[t] == 0 {
				queue = append(queue, t)
			}
		}
	}
	return ranks
}

// orderRows runs alternating down/up barycenter sweeps to reduce edge
// crossings. Sorting is stable, so nodes without neighbors in the adjacent
// row, and exact barycenter ties, keep their existing order.
func orderRows(rows [][]int, succ, pred [][]int) {
	pos := make(map[int]int)
	reindex := func(row []int) {
		for p, i := range row {
			pos[i] = p
		}
	}
	for _, row := range rows {
		reindex(row)
	}

	barycenter := func(i int, neighbors []int) (float64, bool) {
		sum, count := 0.0, 0
		for _, nb := range neighbors {
			if p, ok := pos[nb]; ok {
				sum += float64(p)
				count++
			}
		}
		if count == 0 {
			return 0, false
		}
		return sum / float64(count), true
	}

	sortRow := func(row []int, neighbors [][]int) {
		centers := make(map[int]float64, len(row))
		for p, i := range row {
			if bc, ok := barycenter(i, neighbors[i]); ok {
				centers[i] = bc
			} else {
				centers[i] = float64(p)
			}
		}
		sort.SliceStable(row, func(a, b int) bool {
			return centers[row[a]] < centers[row[b]]
		})
		reindex(row)
	}

	for sweep := 0; sweep < barycenterSweeps; sweep++ {
		if sweep%2 == 0 {
			for r := 1; r < len(rows); r++ {
				sortRow(rows[r], pred)
			}
		} else {
			for r := len(rows) - 2; r >= 0; r-- {
				sortRow(rows[r], succ)
			}
		}
	}
}
