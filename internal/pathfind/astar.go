// Package pathfind implements weighted graph search over the world grid:
// A* point-to-point paths and movement-budget reachable sets, both on the
// 4-directional neighborhood.
package pathfind

import (
	"container/heap"
	"math"

	"github.com/gurulost/IsometricEmpires-sub000/internal/world"
)

// NoLimit disables the movement-budget bound on a path query.
const NoLimit = math.MaxInt

// WalkableFunc reports whether a cell may be entered. Callers compose
// terrain walkability with unit or building occupancy as the query demands;
// the moving unit's own cell must not be reported occupied.
type WalkableFunc func(world.Cell) bool

// CostFunc returns the movement points consumed entering a cell. Must be
// at least 1 for every walkable cell so the Manhattan heuristic stays
// admissible.
type CostFunc func(world.Cell) int

type pathNode struct {
	cell   world.Cell
	g, h   int
	seq    int // insertion order, breaks f-score ties
	parent *pathNode
	index  int // heap index
}

type openList []*pathNode

func (ol openList) Len() int { return len(ol) }
func (ol openList) Less(i, j int) bool {
	fi, fj := ol[i].g+ol[i].h, ol[j].g+ol[j].h
	if fi != fj {
		return fi < fj
	}
	return ol[i].seq < ol[j].seq
}
func (ol openList) Swap(i, j int) {
	ol[i], ol[j] = ol[j], ol[i]
	ol[i].index = i
	ol[j].index = j
}
func (ol *openList) Push(x any) {
	n := x.(*pathNode)
	n.index = len(*ol)
	*ol = append(*ol, n)
}
func (ol *openList) Pop() any {
	old := *ol
	n := old[len(old)-1]
	old[len(old)-1] = nil
	*ol = old[:len(old)-1]
	return n
}

// FindPath returns the cheapest path from start to goal as an ordered list
// of cells, start and goal included. Nodes whose accumulated cost exceeds
// maxCost are pruned. Returns nil when no path exists within the budget.
func FindPath(start, goal world.Cell, walkable WalkableFunc, cost CostFunc, maxCost int) []world.Cell {
	if !walkable(start) || !walkable(goal) {
		return nil
	}
	if start == goal {
		return []world.Cell{start}
	}

	seq := 0
	startNode := &pathNode{cell: start, h: world.Manhattan(start, goal)}
	ol := &openList{startNode}
	heap.Init(ol)

	closed := make(map[world.Cell]bool)
	best := map[world.Cell]int{start: 0}

	for ol.Len() > 0 {
		cur := heap.Pop(ol).(*pathNode)
		if cur.cell == goal {
			return buildPath(cur)
		}
		if closed[cur.cell] {
			continue
		}
		closed[cur.cell] = true

		for _, nc := range cur.cell.Neighbors() {
			if closed[nc] || !walkable(nc) {
				continue
			}
			step := cost(nc)
			if step < 1 {
				panic("BUG: pathfind step cost below 1")
			}
			g := cur.g + step
			if g > maxCost {
				continue // beyond the movement budget
			}
			if prev, ok := best[nc]; ok && g >= prev {
				continue
			}
			seq++
			node := &pathNode{cell: nc, g: g, h: world.Manhattan(nc, goal), seq: seq, parent: cur}
			best[nc] = g
			heap.Push(ol, node)
		}
	}
	return nil
}

// PathCost sums the entry costs along a path returned by FindPath. The
// first cell is the mover's current position and costs nothing.
func PathCost(path []world.Cell, cost CostFunc) int {
	total := 0
	for _, c := range path[1:] {
		total += cost(c)
	}
	return total
}

func buildPath(end *pathNode) []world.Cell {
	var cells []world.Cell
	for n := end; n != nil; n = n.parent {
		cells = append(cells, n.cell)
	}
	// Reverse
	for i, j := 0, len(cells)-1; i < j; i, j = i+1, j-1 {
		cells[i], cells[j] = cells[j], cells[i]
	}
	return cells
}
