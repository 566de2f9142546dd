package optimizing

import (
	"errors"
	"runtime"

	"github.com/panjf2000/ants/v2"
)

var (
	enabled    bool
	workerPool *ants.Pool
)

var (
	ErrGraphBuildFailed = errors.New("fail to build method graph")
	ErrBuildsDisabled   = errors.New("background graph builds are disabled")
	ErrQueueSaturated   = errors.New("graph build queue is saturated")
)

const buildQueueSize = 64 * 1024

// BuildRequest carries everything a background build needs.
type BuildRequest struct {
	Key      MethodKey
	Code     *CodeItemAccessor
	Sig      *MethodSignature
	Resolver SymbolResolver
	Config   *Config
}

func init() {
	workers := runtime.NumCPU() * 1 / 8 // No need to use too many threads.
	if workers < 1 {
		workers = 1
	}
	// Nonblocking with a bounded backlog; a saturated queue sheds requests
	// instead of stalling the caller.
	workerPool, _ = ants.NewPool(workers,
		ants.WithMaxBlockingTasks(buildQueueSize),
		ants.WithNonblocking(true))
}

func EnableGraphBuilds() {
	if enabled {
		return
	}
	enabled = true
}

func DisableGraphBuilds() {
	enabled = false
}

func IsEnabled() bool {
	return enabled
}

// LoadGraph returns the cached graph for a method, or nil.
func LoadGraph(key MethodKey) *Graph {
	if !enabled {
		return nil
	}
	g := getGraphCacheInstance().GetCachedGraph(key)
	if g != nil {
		cacheHits.Inc(1)
	}
	return g
}

// ScheduleBuild queues a background build for the method. The finished
// graph lands in the cache; lookups poll it through LoadGraph.
func ScheduleBuild(req BuildRequest) error {
	if !enabled {
		return ErrBuildsDisabled
	}
	err := workerPool.Submit(func() {
		_, _ = TryBuildGraph(req)
	})
	if err != nil {
		return ErrQueueSaturated
	}
	return nil
}

// TryBuildGraph returns the cached graph or builds and caches one.
func TryBuildGraph(req BuildRequest) (*Graph, error) {
	cache := getGraphCacheInstance()
	if g := cache.GetCachedGraph(req.Key); g != nil {
		cacheHits.Inc(1)
		return g, nil
	}
	cacheMisses.Inc(1)
	return BuildAndCacheGraph(req)
}

// BuildAndCacheGraph builds the graph and refreshes the cache entry.
func BuildAndCacheGraph(req BuildRequest) (*Graph, error) {
	if !enabled {
		return nil, ErrBuildsDisabled
	}
	gb := NewGraphBuilder(req.Code, req.Sig, req.Resolver, req.Config).WithCacheKey(req.Key)
	g, res := gb.BuildGraph()
	if res != AnalysisSuccess {
		DebugWarn("graph build failed", "result", res.String())
		return nil, ErrGraphBuildFailed
	}
	getGraphCacheInstance().AddGraphCache(req.Key, g)
	return g, nil
}

// DropGraph flushes a stale cache entry, e.g. after method redefinition.
func DropGraph(key MethodKey) {
	if !enabled {
		return
	}
	getGraphCacheInstance().RemoveGraphCache(key)
}
