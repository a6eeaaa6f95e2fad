package world

import (
	"math"

	"github.com/l1jgo/convoy/internal/convoy"
)

// AOIGrid is a cell-based spatial index over player positions. Range queries
// scan only the cells a circle overlaps and leave exact distance filtering
// to the caller.
// Accessed only from the game loop goroutine, no locks.

const cellSize = 50.0

type cellKey struct {
	cx int32
	cz int32
}

func toCell(v float64) int32 {
	return int32(math.Floor(v / cellSize))
}

// AOIGrid tracks which players are in which cells.
type AOIGrid struct {
	cells map[cellKey]map[convoy.PlayerID]struct{}
}

func NewAOIGrid() *AOIGrid {
	return &AOIGrid{
		cells: make(map[cellKey]map[convoy.PlayerID]struct{}),
	}
}

func key(pos convoy.Vec3) cellKey {
	return cellKey{cx: toCell(pos.X), cz: toCell(pos.Z)}
}

// Add places a player into the grid.
func (g *AOIGrid) Add(id convoy.PlayerID, pos convoy.Vec3) {
	k := key(pos)
	cell := g.cells[k]
	if cell == nil {
		cell = make(map[convoy.PlayerID]struct{})
		g.cells[k] = cell
	}
	cell[id] = struct{}{}
}

// Remove takes a player out of the grid.
func (g *AOIGrid) Remove(id convoy.PlayerID, pos convoy.Vec3) {
	k := key(pos)
	cell := g.cells[k]
	if cell != nil {
		delete(cell, id)
		if len(cell) == 0 {
			delete(g.cells, k)
		}
	}
}

// Move updates a player's cell when its position changes.
func (g *AOIGrid) Move(id convoy.PlayerID, from, to convoy.Vec3) {
	if key(from) == key(to) {
		return
	}
	g.Remove(id, from)
	g.Add(id, to)
}

// Nearby returns every player in a cell overlapped by the circle of radius r
// around center.
func (g *AOIGrid) Nearby(center convoy.Vec3, r float64) []convoy.PlayerID {
	minX, maxX := toCell(center.X-r), toCell(center.X+r)
	minZ, maxZ := toCell(center.Z-r), toCell(center.Z+r)
	var result []convoy.PlayerID
	for cx := minX; cx <= maxX; cx++ {
		for cz := minZ; cz <= maxZ; cz++ {
			for id := range g.cells[cellKey{cx: cx, cz: cz}] {
				result = append(result, id)
			}
		}
	}
	return result
}
