package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/arbordb/arbor/alloc"
	"github.com/arbordb/arbor/btree"
	"github.com/arbordb/arbor/common"
	"github.com/arbordb/arbor/common/benchmark"
)

func main() {
	quick := flag.Bool("quick", false, "Run quick benchmarks (shorter duration)")
	workload := flag.String("workload", "all", "Workload to run (all, write-heavy-uniform, read-heavy-zipfian, balanced-uniform, write-only-sequential)")
	duration := flag.Duration("duration", 60*time.Second, "Duration for each benchmark")
	concurrency := flag.Int("concurrency", 8, "Number of concurrent workers")
	variant := flag.String("variant", "compare", "Tree variant to benchmark: default, compact, wide-page, free-list, or compare (default: compare)")
	flag.Parse()

	fmt.Println("arbor Benchmark Suite")
	fmt.Println("======================")
	fmt.Printf("Duration: %v\n", *duration)
	fmt.Printf("Concurrency: %d\n", *concurrency)
	fmt.Printf("Mode: %s\n\n", *variant)

	var configs []benchmark.Config
	if *quick {
		configs = benchmark.QuickWorkloads()
	} else {
		configs = benchmark.StandardWorkloads()
	}

	if flag.Lookup("duration").Value.String() != flag.Lookup("duration").DefValue {
		for i := range configs {
			configs[i].Duration = *duration
		}
	}
	if flag.Lookup("concurrency").Value.String() != flag.Lookup("concurrency").DefValue {
		for i := range configs {
			configs[i].Concurrency = *concurrency
		}
	}

	if *workload != "all" {
		filtered := make([]benchmark.Config, 0)
		for _, config := range configs {
			if config.Name == *workload {
				filtered = append(filtered, config)
			}
		}
		if len(filtered) == 0 {
			fmt.Printf("Unknown workload: %s\n", *workload)
			os.Exit(1)
		}
		configs = filtered
	}

	switch *variant {
	case "default", "compact", "wide-page", "free-list":
		runSingle(*variant, configs)
	case "compare":
		runComparison(configs)
	default:
		fmt.Printf("Unknown variant: %s (must be default, compact, wide-page, free-list, or compare)\n", *variant)
		os.Exit(1)
	}
}

// treeVariants names the Config overrides worth comparing: a plain default
// tree, one tuned for small records and a small buffer pool ("compact"),
// one with a bigger page for wider fan-out ("wide-page"), and one that swaps
// the default stack allocator for a free-list allocator ("free-list"). The
// workloads only put and get, and the tree never frees pages, so the
// free-list variant never reuses a page.
func treeVariants() map[string]btree.Config {
	wide := btree.DefaultConfig()
	wide.PageSize = 16 * 1024

	compact := btree.DefaultConfig()
	compact.Capacity = 256
	compact.KeySize, compact.ValSize = 8, 16

	freelist := btree.DefaultConfig()
	freelist.Allocator = alloc.NewFreeListAllocator(freelist.PageSize, 0, 0)

	return map[string]btree.Config{
		"default":   btree.DefaultConfig(),
		"compact":   compact,
		"wide-page": wide,
		"free-list": freelist,
	}
}

func openVariant(name string) (*btree.Adapter, func(), error) {
	cfg, ok := treeVariants()[name]
	if !ok {
		return nil, nil, fmt.Errorf("unknown tree variant %q", name)
	}
	dir, err := os.MkdirTemp("", "arbor-benchmark-"+name+"-")
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() { os.RemoveAll(dir) }

	tree, err := btree.Open(dir+"/"+uuid.NewString(), cfg)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return btree.NewAdapter(tree), cleanup, nil
}

func runSingle(name string, configs []benchmark.Config) {
	fmt.Printf("=== %s tree benchmark ===\n\n", name)

	adapter, cleanup, err := openVariant(name)
	if err != nil {
		fmt.Printf("Failed to open tree: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()
	defer adapter.Close()

	results := runBenchmarks(adapter, name, configs)
	printSummaryTable(results)
}

func runComparison(configs []benchmark.Config) {
	fmt.Println("=== Comparing arbor tree variants ===")

	engines := map[string]common.StorageEngine{}
	var cleanups []func()
	defer func() {
		for _, c := range cleanups {
			c()
		}
	}()

	for name := range treeVariants() {
		adapter, cleanup, err := openVariant(name)
		if err != nil {
			fmt.Printf("Failed to open variant %s: %v\n", name, err)
			os.Exit(1)
		}
		cleanups = append(cleanups, cleanup, func() { adapter.Close() })
		engines[name] = adapter
	}

	suite := benchmark.NewComparisonSuite()
	suite.SetWorkloads(configs)
	results := suite.RunComparison(engines)

	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("COMPARISON RESULTS")
	fmt.Println(strings.Repeat("=", 80))
	suite.PrintComparisonTable(results)
}

func runBenchmarks(engine common.StorageEngine, name string, configs []benchmark.Config) []*benchmark.Result {
	results := make([]*benchmark.Result, 0)

	for _, config := range configs {
		fmt.Printf("\n=== Running: %s ===\n", config.Name)

		bench := benchmark.NewBenchmark(engine, config)
		result, err := bench.Run()
		if err != nil {
			fmt.Printf("Benchmark failed: %v\n", err)
			continue
		}

		results = append(results, result)
		printResult(result)
	}

	return results
}

func printResult(r *benchmark.Result) {
	fmt.Printf("\n--- Results (dataset %s) ---\n", r.DatasetID)
	fmt.Printf("Throughput: %.0f ops/sec\n", r.OpsPerSec)
	fmt.Printf("Total Ops: %d (writes: %d, reads: %d)\n",
		r.TotalOps, r.WriteOps, r.ReadOps)

	if r.WriteOps > 0 {
		fmt.Printf("\nWrite Latency:\n")
		fmt.Printf("  Min:  %8s\n", r.WriteLatency.Min)
		fmt.Printf("  Mean: %8s\n", r.WriteLatency.Mean)
		fmt.Printf("  P50:  %8s\n", r.WriteLatency.P50)
		fmt.Printf("  P95:  %8s\n", r.WriteLatency.P95)
		fmt.Printf("  P99:  %8s\n", r.WriteLatency.P99)
		fmt.Printf("  P999: %8s\n", r.WriteLatency.P999)
		fmt.Printf("  Max:  %8s\n", r.WriteLatency.Max)
	}

	if r.ReadOps > 0 {
		fmt.Printf("\nRead Latency:\n")
		fmt.Printf("  Min:  %8s\n", r.ReadLatency.Min)
		fmt.Printf("  Mean: %8s\n", r.ReadLatency.Mean)
		fmt.Printf("  P50:  %8s\n", r.ReadLatency.P50)
		fmt.Printf("  P95:  %8s\n", r.ReadLatency.P95)
		fmt.Printf("  P99:  %8s\n", r.ReadLatency.P99)
		fmt.Printf("  P999: %8s\n", r.ReadLatency.P999)
		fmt.Printf("  Max:  %8s\n", r.ReadLatency.Max)
	}

	fmt.Printf("\nPages/op: write=%.2f read=%.2f\n", r.PagesPerWrite, r.PagesPerRead)
	fmt.Printf("Engine: %s\n", r.EngineStats)
}

func printSummaryTable(results []*benchmark.Result) {
	if len(results) == 0 {
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("BENCHMARK SUMMARY")
	fmt.Println(strings.Repeat("=", 80))

	fmt.Printf("\n%-25s %12s %12s %12s %12s\n",
		"Workload", "Throughput", "Write P99", "Read P99", "Pages/write")
	fmt.Println(strings.Repeat("-", 80))

	for _, r := range results {
		writeP99 := "N/A"
		if r.WriteOps > 0 {
			writeP99 = fmt.Sprintf("%s", r.WriteLatency.P99)
		}

		readP99 := "N/A"
		if r.ReadOps > 0 {
			readP99 = fmt.Sprintf("%s", r.ReadLatency.P99)
		}

		fmt.Printf("%-25s %10.0f/s %12s %12s %11.2f\n",
			r.Config.Name,
			r.OpsPerSec,
			writeP99,
			readP99,
			r.PagesPerWrite)
	}
}
