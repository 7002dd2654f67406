// Command raceloom enumerates bounded-depth execution traces of an SDN
// network-algebra model and reports harmful concurrency races, writing a
// raw + DOT file per race and a stats report.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"raceloom/internal/analyzer"
	"raceloom/internal/config"
	"raceloom/internal/engine"
	"raceloom/internal/generator"
	"raceloom/internal/model"
	"raceloom/internal/oracle"
	"raceloom/internal/race"
	"raceloom/internal/racefile"
	"raceloom/internal/stats"
	"raceloom/internal/statsserver"
	"raceloom/internal/trace"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load("raceloom", args)
	if err != nil {
		return err
	}

	meta, policies, rootExpr, err := loadModel(cfg.ModelPath)
	if err != nil {
		return err
	}

	var templates map[race.Kind]string
	if cfg.PropertiesPath != "" {
		templates, err = loadTemplates(cfg.PropertiesPath)
		if err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eng, err := engine.NewMaudeEngine(ctx, cfg.EngineDriver, cfg.EngineModule)
	if err != nil {
		return err
	}
	defer eng.Close()
	timedEng := engine.NewTimedEngine(eng)

	orc := oracle.NewMemoOracle(oracle.NewKATchOracle(cfg.OracleTool, cfg.OutputDir))

	collector := stats.NewCollector()
	var liveUpdates chan *stats.Collector
	if cfg.LiveStatsAddr != "" {
		liveUpdates = make(chan *stats.Collector, 1)
		srv := statsserver.NewServer(cfg.LiveStatsAddr, liveUpdates)
		go func() {
			if err := srv.Serve(); err != nil {
				fmt.Fprintln(os.Stderr, "live stats server:", err)
			}
		}()
		defer close(liveUpdates)
	}

	genStart := time.Now()
	result, err := generateTraces(ctx, cfg, timedEng, rootExpr, len(meta), policies)
	if err != nil {
		return err
	}
	genElapsed := time.Since(genStart).Seconds()

	collector.Add(stats.Entry{Key: stats.KeyTracesGenerated, Label: "Traces generated", Value: len(result.Tree.Traces())})
	collector.Add(stats.Entry{Key: stats.KeyEngineCalls, Label: "Engine calls", Value: result.EngineCalls})
	collector.Add(stats.Entry{Key: stats.KeyGenerationTime, Label: "Generation time (s)", Value: genElapsed})
	collector.Add(stats.Entry{Key: stats.KeyEngineTime, Label: "Engine time (s)", Value: timedEng.ElapsedSeconds()})
	if result.Cache != nil {
		collector.Add(stats.Entry{Key: stats.KeyEngineCacheHits, Label: "Engine cache hits", Value: result.Cache.Hits()})
		collector.Add(stats.Entry{Key: stats.KeyEngineCacheMiss, Label: "Engine cache misses", Value: result.Cache.Misses()})
	}

	agg := race.NewAggregator()
	analyzeStart := time.Now()
	skipped, err := analyzeTraces(ctx, result.Tree.Traces(), result.Tree, meta, orc, templates, agg, cfg.Threads, func() {
		if liveUpdates != nil {
			select {
			case liveUpdates <- collector:
			default:
			}
		}
	})
	if err != nil {
		return err
	}
	collector.Add(stats.Entry{Key: stats.KeyAnalyzerTime, Label: "Analyzer time (s)", Value: time.Since(analyzeStart).Seconds()})

	for kind, n := range skipped {
		collector.Add(stats.Entry{Key: stats.KeySkippedRacePrefix + string(kind), Label: "Skipped " + string(kind), Value: n})
	}
	collector.Add(stats.Entry{Key: stats.KeyHarmfulRaceCount, Label: "Harmful races", Value: agg.Len()})

	oStats := orc.Stats()
	collector.Add(
		stats.Entry{Key: stats.KeyOracleCacheHits, Label: "Oracle cache hits", Value: oStats.CacheHits},
		stats.Entry{Key: stats.KeyOracleCacheMiss, Label: "Oracle cache misses", Value: oStats.CacheMisses},
	)

	if err := writeRaces(cfg.OutputDir, agg.Races(), meta); err != nil {
		return err
	}
	return writeStats(cfg.OutputDir, collector)
}

func loadModel(path string) (model.Metadata, *trace.PolicyTable, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, "", err
	}
	defer f.Close()

	n, err := model.LoadNetwork(f)
	if err != nil {
		return nil, nil, "", err
	}
	meta := n.ToMetadata()
	if err := meta.Validate(); err != nil {
		return nil, nil, "", err
	}
	return meta, trace.NewPolicyTable(), "root", nil
}

func loadTemplates(path string) (map[race.Kind]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sp, err := model.LoadSafetyProperties(f)
	if err != nil {
		return nil, err
	}
	return sp.ToTemplates(), nil
}

func generateTraces(ctx context.Context, cfg *config.Config, eng engine.Engine, rootExpr string, elementCount int, policies *trace.PolicyTable) (generator.Result, error) {
	tree, root := generator.NewRoot(elementCount, rootExpr, cfg.Depth, policies)
	cache := generator.NewCache()

	switch cfg.Strategy {
	case config.StrategyPBFS:
		return generator.ParallelBFS(ctx, tree, root, eng, cache, cfg.Threads)
	case config.StrategyBFS:
		return generator.Sequential(ctx, generator.StrategyBFS, tree, root, eng, cache)
	default:
		return generator.Sequential(ctx, generator.StrategyDFS, tree, root, eng, cache)
	}
}

// analyzeTraces runs analyzer.Analyze over every trace, bounded to
// concurrency workers via errgroup. Per spec §5, the analyzer is sequential
// per trace and traces share no state but the harmful-race set, so a
// mutex-guarded aggregator append is sufficient to parallelize across
// traces.
func analyzeTraces(ctx context.Context, traces []trace.Trace, tree *trace.Tree, meta model.Metadata, orc oracle.Oracle, templates map[race.Kind]string, agg *race.Aggregator, concurrency int, onProgress func()) (analyzer.SkippedCounts, error) {
	eg, egCtx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, concurrency)

	var mu sync.Mutex
	skipped := analyzer.SkippedCounts{}

	for _, tr := range traces {
		tr := tr
		eg.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()

			nodes := tree.Nodes(tr)
			res, err := analyzer.Analyze(egCtx, nodes, meta, orc, templates, nil)
			if err != nil {
				return err
			}

			mu.Lock()
			for kind, n := range res.Skipped {
				skipped[kind] += n
			}
			mu.Unlock()

			if res.Race != nil {
				agg.Add(*res.Race)
			}
			onProgress()
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return skipped, nil
}

func writeRaces(outDir string, races []race.Race, meta model.Metadata) error {
	for i, r := range races {
		rawPath := filepath.Join(outDir, fmt.Sprintf("race_%d.txt", i))
		dotPath := filepath.Join(outDir, fmt.Sprintf("race_%d.dot", i))

		if err := writeFile(rawPath, func(f *os.File) error { return racefile.WriteRaw(f, r) }); err != nil {
			return err
		}
		if err := writeFile(dotPath, func(f *os.File) error { return racefile.WriteDOT(f, r, meta) }); err != nil {
			return err
		}
	}
	return nil
}

func writeStats(outDir string, collector *stats.Collector) error {
	path := filepath.Join(outDir, "stats.txt")
	return writeFile(path, func(f *os.File) error {
		_, err := f.WriteString(collector.Pretty())
		return err
	})
}

func writeFile(path string, fn func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return fn(f)
}
