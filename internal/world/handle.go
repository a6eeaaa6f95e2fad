package world

import "github.com/l1jgo/convoy/internal/convoy"

// Handles pack a 32-bit slot index in the lower bits and a 32-bit generation
// in the upper bits. Destroying an entity bumps its slot's generation, so old
// handles stop resolving instead of pointing at whatever reuses the slot.
func makeHandle(index, generation uint32) convoy.EntityHandle {
	return convoy.EntityHandle(uint64(generation)<<32 | uint64(index))
}

func handleIndex(h convoy.EntityHandle) uint32      { return uint32(h) }
func handleGeneration(h convoy.EntityHandle) uint32 { return uint32(uint64(h) >> 32) }

// HandlePool allocates generational handles with a free list.
// Generations start at 1 so the zero handle never resolves.
type HandlePool struct {
	generations []uint32
	freeList    []uint32
	nextIndex   uint32
}

func NewHandlePool() *HandlePool {
	return &HandlePool{
		generations: make([]uint32, 0, 64),
		freeList:    make([]uint32, 0, 16),
	}
}

func (p *HandlePool) Create() convoy.EntityHandle {
	if n := len(p.freeList); n > 0 {
		idx := p.freeList[n-1]
		p.freeList = p.freeList[:n-1]
		return makeHandle(idx, p.generations[idx])
	}
	idx := p.nextIndex
	p.nextIndex++
	p.generations = append(p.generations, 1)
	return makeHandle(idx, 1)
}

func (p *HandlePool) Alive(h convoy.EntityHandle) bool {
	idx := handleIndex(h)
	if h == 0 || idx >= p.nextIndex {
		return false
	}
	return p.generations[idx] == handleGeneration(h)
}

// Destroy invalidates h. Stale or unknown handles are ignored.
func (p *HandlePool) Destroy(h convoy.EntityHandle) bool {
	if !p.Alive(h) {
		return false
	}
	idx := handleIndex(h)
	p.generations[idx]++
	if p.generations[idx] == 0 {
		p.generations[idx] = 1
	}
	p.freeList = append(p.freeList, idx)
	return true
}
