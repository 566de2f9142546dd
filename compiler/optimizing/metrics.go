package optimizing

import "github.com/rcrowley/go-metrics"

var (
	buildAttempts   = metrics.NewRegisteredCounter("hgraph/build/attempts", nil)
	buildSuccesses  = metrics.NewRegisteredCounter("hgraph/build/success", nil)
	buildSkipped    = metrics.NewRegisteredCounter("hgraph/build/skipped", nil)
	buildInvalid    = metrics.NewRegisteredCounter("hgraph/build/invalid", nil)
	buildFailDom    = metrics.NewRegisteredCounter("hgraph/build/faildomtree", nil)
	buildFailBlocks = metrics.NewRegisteredCounter("hgraph/build/failblocks", nil)
	cacheHits       = metrics.NewRegisteredCounter("hgraph/cache/hits", nil)
	cacheMisses     = metrics.NewRegisteredCounter("hgraph/cache/misses", nil)

	buildTimer = metrics.NewRegisteredTimer("hgraph/build/time", nil)
)

func countFailure(res GraphAnalysisResult) {
	switch res {
	case AnalysisSkipped:
		buildSkipped.Inc(1)
	case AnalysisInvalidBytecode:
		buildInvalid.Inc(1)
	case AnalysisFailDominatorTree:
		buildFailDom.Inc(1)
	case AnalysisFailBlockStructure:
		buildFailBlocks.Inc(1)
	}
}
