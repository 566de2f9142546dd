package optimizing

// All graph entities are allocated from a per-compilation arena and released
// in one step when the compilation attempt ends. Chunks are never resized in
// place, so pointers handed out stay valid for the arena's lifetime.

const arenaChunkSize = 64

type pool[T any] struct {
	chunks [][]T
}

func (p *pool[T]) alloc() *T {
	n := len(p.chunks)
	if n == 0 || len(p.chunks[n-1]) == cap(p.chunks[n-1]) {
		p.chunks = append(p.chunks, make([]T, 0, arenaChunkSize))
		n++
	}
	c := &p.chunks[n-1]
	*c = append(*c, *new(T))
	return &(*c)[len(*c)-1]
}

func (p *pool[T]) forEach(fn func(*T)) {
	for _, c := range p.chunks {
		for i := range c {
			fn(&c[i])
		}
	}
}

type arena struct {
	blocks pool[BasicBlock]
	insts  pool[HIR]
	values pool[Value]
	freed  bool
}

func newArena() *arena {
	return &arena{}
}

func (a *arena) checkAlive() {
	if a.freed {
		// Use of a destroyed arena is a defect in this package, never an
		// input-shape problem, so it is process-fatal.
		panic("optimizing: use of freed graph arena")
	}
}

func (a *arena) newBlock() *BasicBlock {
	a.checkAlive()
	return a.blocks.alloc()
}

func (a *arena) newHIR() *HIR {
	a.checkAlive()
	return a.insts.alloc()
}

func (a *arena) newValue() *Value {
	a.checkAlive()
	return a.values.alloc()
}

// free retires the arena. The chunks are dropped in one step; any later
// allocation through the handle panics.
func (a *arena) free() {
	a.blocks.chunks = nil
	a.insts.chunks = nil
	a.values.chunks = nil
	a.freed = true
}
