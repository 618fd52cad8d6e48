package pathfind

import (
	"container/heap"

	"github.com/gurulost/IsometricEmpires-sub000/internal/world"
)

// ReachableSet returns every cell reachable from start within the movement
// budget, mapped to its minimum entry cost. The start cell is always
// included at cost zero. Cells whose cheapest entry exceeds the budget are
// never enqueued, so the result is exactly the set FindPath can reach with
// maxCost equal to movementPoints.
func ReachableSet(start world.Cell, movementPoints int, walkable WalkableFunc, cost CostFunc) map[world.Cell]int {
	result := map[world.Cell]int{start: 0}
	if movementPoints <= 0 {
		return result
	}

	seq := 0
	ol := &openList{{cell: start}}
	heap.Init(ol)
	closed := make(map[world.Cell]bool)

	for ol.Len() > 0 {
		cur := heap.Pop(ol).(*pathNode)
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
			if g > movementPoints {
				continue
			}
			if prev, ok := result[nc]; ok && g >= prev {
				continue
			}
			result[nc] = g
			seq++
			heap.Push(ol, &pathNode{cell: nc, g: g, seq: seq})
		}
	}
	return result
}
