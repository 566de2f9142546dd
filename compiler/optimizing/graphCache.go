package optimizing

import (
	"github.com/VictoriaMetrics/fastcache"
	lru "github.com/hashicorp/golang-lru/v2"
)

// MethodKey identifies a method body by its content hash.
type MethodKey [32]byte

// GraphCache keeps finished graphs resident and remembers the instruction
// boundary bitmap of recently scanned methods, so a rebuild of the same
// bytecode skips the boundary scan.
type GraphCache struct {
	graphs     *lru.Cache[MethodKey, *Graph]
	boundaries *fastcache.Cache
}

// Global graph cache instance.
var graphCache *GraphCache

const (
	// Small relative to the boundary cache due to the memory footprint of a
	// full graph arena.
	graphCacheCap = 4096

	boundaryCacheBytes = 32 * 1024 * 1024
)

func init() {
	graphCache = newGraphCache(graphCacheCap)
}

func newGraphCache(capacity int) *GraphCache {
	graphs, _ := lru.New[MethodKey, *Graph](capacity)
	return &GraphCache{
		graphs:     graphs,
		boundaries: fastcache.New(boundaryCacheBytes),
	}
}

// getGraphCacheInstance returns the global graph cache instance.
func getGraphCacheInstance() *GraphCache {
	return graphCache
}

// GetCachedGraph retrieves a cached graph by method hash.
func (c *GraphCache) GetCachedGraph(key MethodKey) *Graph {
	g, _ := c.graphs.Get(key)
	return g
}

// AddGraphCache adds a finished graph to the cache.
func (c *GraphCache) AddGraphCache(key MethodKey, g *Graph) {
	c.graphs.Add(key, g)
}

// RemoveGraphCache removes a graph from the cache.
func (c *GraphCache) RemoveGraphCache(key MethodKey) {
	c.graphs.Remove(key)
}

// Len returns the number of cached graphs.
func (c *GraphCache) Len() int {
	return c.graphs.Len()
}

// GetCachedBoundary returns the boundary bitmap recorded for a method, or
// nil when none is cached.
func (c *GraphCache) GetCachedBoundary(key MethodKey) []byte {
	if !c.boundaries.Has(key[:]) {
		return nil
	}
	return c.boundaries.Get(nil, key[:])
}

// AddBoundaryCache records a method's boundary bitmap.
func (c *GraphCache) AddBoundaryCache(key MethodKey, bits []byte) {
	if len(bits) == 0 {
		return
	}
	c.boundaries.Set(key[:], bits)
}
