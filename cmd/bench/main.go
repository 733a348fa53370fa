// bench - matching and formatting benchmark runner
//
// Times the engine on generated workloads:
//   - key-join: two lists joined on a shared id
//   - transpose: people regrouped by state
//   - independent: six unrelated 1000-element sequences round-tripped
//   - instantiate: one template formatted once per binding set
//
// Output: CSV and markdown summary
package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/spf13/pflag"

	"github.com/Neumenon/regular/regular"
)

type CaseResult struct {
	Name      string
	Size      int
	Runs      int
	Results   int
	OutBytes  int
	Best      time.Duration
	Mean      time.Duration
	PerResult time.Duration
}

// workload builds a case of size n and returns the function to time. It
// reports the number of results and the output.
type workload func(n int) func() (int, *regular.Value, error)

var cases = []struct {
	name string
	make workload
}{
	{"key-join", keyJoin},
	{"transpose", transpose},
	{"independent", independent},
	{"instantiate", instantiate},
}

func main() {
	sizes := pflag.IntSlice("sizes", []int{100, 1000, 5000}, "Workload sizes")
	runs := pflag.Int("runs", 5, "Timed runs per case")
	csvPath := pflag.String("csv", "bench_results.csv", "CSV output path (empty to skip)")
	mdPath := pflag.String("md", "BENCH.md", "Markdown output path (empty to skip)")
	pflag.Parse()

	if *runs < 1 {
		fmt.Fprintln(os.Stderr, "--runs must be at least 1")
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "regular Benchmark Runner\n")
	fmt.Fprintf(os.Stderr, "========================\n")
	fmt.Fprintf(os.Stderr, "Cases: %d, sizes: %v, runs: %d\n\n", len(cases), *sizes, *runs)

	var results []CaseResult
	for _, c := range cases {
		for _, n := range *sizes {
			r, err := runCase(c.name, c.make(n), n, *runs)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Skip %s n=%d: %v\n", c.name, n, err)
				continue
			}
			fmt.Fprintf(os.Stderr, "%-12s n=%-6d best=%-12s results=%d\n", c.name, n, r.Best, r.Results)
			results = append(results, r)
		}
	}

	if *csvPath != "" {
		if f, err := os.Create(*csvPath); err == nil {
			writeCSV(f, results)
			f.Close()
			fmt.Fprintf(os.Stderr, "CSV written to: %s\n", *csvPath)
		}
	}
	if *mdPath != "" {
		if f, err := os.Create(*mdPath); err == nil {
			writeMarkdown(f, results, *runs)
			f.Close()
			fmt.Fprintf(os.Stderr, "Markdown written to: %s\n", *mdPath)
		}
	}

	var total time.Duration
	for _, r := range results {
		total += r.Best
	}
	fmt.Printf("\n=== SUMMARY ===\n")
	fmt.Printf("Cases:      %d\n", len(results))
	fmt.Printf("Total best: %s\n", total)
	if slowest := slowestFirst(results); len(slowest) > 0 {
		fmt.Printf("Slowest:    %s n=%d (%s)\n", slowest[0].Name, slowest[0].Size, slowest[0].Best)
	}
}

func runCase(name string, run func() (int, *regular.Value, error), n, runs int) (CaseResult, error) {
	r := CaseResult{Name: name, Size: n, Runs: runs}
	var sum time.Duration
	for i := 0; i < runs; i++ {
		start := time.Now()
		count, out, err := run()
		elapsed := time.Since(start)
		if err != nil {
			return r, err
		}
		if i == 0 || elapsed < r.Best {
			r.Best = elapsed
		}
		sum += elapsed
		r.Results = count
		r.OutBytes = len(regular.Canonical(out))
	}
	r.Mean = sum / time.Duration(runs)
	if r.Results > 0 {
		r.PerResult = r.Best / time.Duration(r.Results)
	}
	return r, nil
}

// ============================================================
// Workloads
// ============================================================

func keyJoin(n int) func() (int, *regular.Value, error) {
	names := make([]*regular.Value, n)
	emails := make([]*regular.Value, n)
	for i := 0; i < n; i++ {
		names[i] = regular.Map(regular.FieldVal("id", regular.Int(int64(i))), regular.FieldVal("name", regular.Str(fmt.Sprintf("user%d", i))))
		emails[n-1-i] = regular.Map(regular.FieldVal("id", regular.Int(int64(i))), regular.FieldVal("email", regular.Str(fmt.Sprintf("u%d@example.com", i))))
	}
	data := regular.Map(regular.FieldVal("names", regular.List(names...)), regular.FieldVal("emails", regular.List(emails...)))
	tmpl := regular.Map(
		regular.FieldVal("names", regular.List(regular.Map(regular.FieldVal("id", regular.Sym("id")), regular.FieldVal("name", regular.Sym("name"))))),
		regular.FieldVal("emails", regular.List(regular.Map(regular.FieldVal("id", regular.Sym("id")), regular.FieldVal("email", regular.Sym("email"))))),
	)
	return func() (int, *regular.Value, error) {
		sets, err := regular.Match(tmpl, data).All()
		if err != nil {
			return 0, nil, err
		}
		items := make([]*regular.Value, len(sets))
		for i, b := range sets {
			items[i] = b.ToValue()
		}
		return len(sets), regular.List(items...), nil
	}
}

var states = []string{"CA", "CT", "NY", "WA", "TX"}

func transpose(n int) func() (int, *regular.Value, error) {
	people := make([]*regular.Value, n)
	for i := range people {
		people[i] = regular.Map(
			regular.FieldVal("name", regular.Str(fmt.Sprintf("p%d", i))),
			regular.FieldVal("state", regular.Str(states[i%len(states)])),
		)
	}
	data := regular.Map(regular.FieldVal("people", regular.List(people...)))
	tmpl := regular.Map(regular.FieldVal("people", regular.List(regular.Map(
		regular.FieldVal("name", regular.Sym("name")),
		regular.FieldVal("state", regular.Sym("state")),
	))))
	out := regular.List(regular.Map(
		regular.FieldVal("state", regular.Sym("state")),
		regular.FieldVal("names", regular.List(regular.Sym("name"))),
	))
	return func() (int, *regular.Value, error) {
		v, err := regular.Format(out, regular.Match(tmpl, data))
		if err != nil {
			return 0, nil, err
		}
		return v.Len(), v, nil
	}
}

func independent(n int) func() (int, *regular.Value, error) {
	keys := []string{"u", "v", "w", "x", "y", "z"}
	data := make([]regular.MapEntry, len(keys))
	tmpl := make([]regular.MapEntry, len(keys))
	for k, key := range keys {
		items := make([]*regular.Value, n)
		for i := range items {
			items[i] = regular.Float(float64(i) + float64(k)/10 + 0.5)
		}
		data[k] = regular.FieldVal(key, regular.List(items...))
		tmpl[k] = regular.FieldVal(key, regular.List(regular.Sym(key)))
	}
	d, t := regular.Map(data...), regular.Map(tmpl...)
	return func() (int, *regular.Value, error) {
		v, err := regular.Format(t, regular.Match(t, d))
		if err != nil {
			return 0, nil, err
		}
		if !regular.Equal(d, v) {
			return 0, nil, fmt.Errorf("round trip mismatch")
		}
		return len(keys) * n, v, nil
	}
}

func instantiate(n int) func() (int, *regular.Value, error) {
	sets := make([]regular.Bindings, n)
	for i := range sets {
		sets[i] = regular.Bindings{
			"id":   regular.Int(int64(i)),
			"name": regular.Str(fmt.Sprintf("user%d", i)),
		}
	}
	tmpl := regular.Map(
		regular.FieldVal("user", regular.Map(
			regular.FieldVal("id", regular.Sym("id")),
			regular.FieldVal("name", regular.Sym("name")),
			regular.FieldVal("nick", regular.Opt(regular.Sym("nick"))),
		)),
		regular.FieldVal("kind", regular.Str("account")),
	)
	return func() (int, *regular.Value, error) {
		out, err := regular.FormatEach(tmpl, sets)
		if err != nil {
			return 0, nil, err
		}
		return len(out), regular.List(out...), nil
	}
}

// ============================================================
// Reports
// ============================================================

func slowestFirst(results []CaseResult) []CaseResult {
	sorted := make([]CaseResult, len(results))
	copy(sorted, results)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Best > sorted[j].Best
	})
	return sorted
}

func writeCSV(w io.Writer, results []CaseResult) {
	fmt.Fprintln(w, "name,size,runs,results,out_bytes,best_ns,mean_ns,per_result_ns")
	for _, r := range results {
		fmt.Fprintf(w, "%s,%d,%d,%d,%d,%d,%d,%d\n",
			r.Name, r.Size, r.Runs, r.Results, r.OutBytes,
			r.Best.Nanoseconds(), r.Mean.Nanoseconds(), r.PerResult.Nanoseconds())
	}
}

func writeMarkdown(w io.Writer, results []CaseResult, runs int) {
	fmt.Fprintf(w, "# regular Benchmark Results\n\n")
	fmt.Fprintf(w, "**Date:** %s  \n", time.Now().Format("2006-01-02"))
	fmt.Fprintf(w, "**Runs per case:** %d  \n\n", runs)

	fmt.Fprintf(w, "## Slowest Cases\n\n")
	fmt.Fprintf(w, "| Case | Size | Best | Per result |\n")
	fmt.Fprintf(w, "|------|------|------|------------|\n")
	sorted := slowestFirst(results)
	for i := 0; i < min(5, len(sorted)); i++ {
		r := sorted[i]
		fmt.Fprintf(w, "| %s | %d | %s | %s |\n", r.Name, r.Size, r.Best, r.PerResult)
	}

	fmt.Fprintf(w, "\n## Methodology\n\n")
	fmt.Fprintf(w, "- **Best/Mean:** wall time over %d runs, match and format together\n", runs)
	fmt.Fprintf(w, "- **Out bytes:** length of the canonical text of the output\n\n")

	fmt.Fprintf(w, "## Detailed Results\n\n")
	fmt.Fprintf(w, "| Case | Size | Results | Out Bytes | Best | Mean |\n")
	fmt.Fprintf(w, "|------|------|---------|-----------|------|------|\n")
	for _, r := range results {
		fmt.Fprintf(w, "| %s | %d | %d | %d | %s | %s |\n",
			r.Name, r.Size, r.Results, r.OutBytes, r.Best, r.Mean)
	}
}
