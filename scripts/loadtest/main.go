// Loadtest drives concurrent dispatches against the dispatcher and reports
// throughput, rejections by status code and the distribution across
// providers (X-Provider-Id).
//
// Usage:
//
//	go run ./scripts/loadtest -url http://localhost:8080 -concurrency 30 -requests 3000
//	go run ./scripts/loadtest -concurrency 50 -requests 5000 -out summary.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"slices"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

type providerStats struct {
	Count     int             `json:"count"`
	Success   int             `json:"success"`
	Failure   int             `json:"failure"`
	Latencies []time.Duration `json:"-"`
}

type summary struct {
	Target        string                    `json:"target"`
	Requests      int                       `json:"requests"`
	Concurrency   int                       `json:"concurrency"`
	Errors        int                       `json:"errors"`
	DurationMS    int64                     `json:"duration_ms"`
	ThroughputRPS float64                   `json:"throughput_rps"`
	StatusCodes   map[int]int               `json:"status_codes"`
	Providers     map[string]*providerStats `json:"providers"`
}

func main() {
	var (
		target      = flag.String("url", "http://localhost:8080", "Dispatcher URL")
		concurrency = flag.Int("concurrency", 10, "Number of concurrent requests")
		requests    = flag.Int("requests", 100, "Total number of requests to send")
		timeout     = flag.Duration("timeout", 10*time.Second, "Per-request timeout")
		outJSON     = flag.String("out", "", "Write JSON summary to this file (optional)")
	)
	flag.Parse()

	client := &http.Client{Timeout: *timeout}

	var mu sync.Mutex
	sum := summary{
		Target:      *target,
		Requests:    *requests,
		Concurrency: *concurrency,
		StatusCodes: make(map[int]int),
		Providers:   make(map[string]*providerStats),
	}

	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(*concurrency)

	start := time.Now()
	for i := 0; i < *requests; i++ {
		g.Go(func() error {
			status, providerID, dur, err := hit(ctx, client, *target)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				sum.Errors++
				return nil
			}

			sum.StatusCodes[status]++
			if providerID == "" {
				return nil
			}

			ps, ok := sum.Providers[providerID]
			if !ok {
				ps = &providerStats{}
				sum.Providers[providerID] = ps
			}
			ps.Count++
			if status == http.StatusOK {
				ps.Success++
			} else {
				ps.Failure++
			}
			ps.Latencies = append(ps.Latencies, dur)
			return nil
		})
	}
	_ = g.Wait()

	elapsed := time.Since(start)
	sum.DurationMS = elapsed.Milliseconds()
	sum.ThroughputRPS = float64(*requests) / elapsed.Seconds()

	report(sum)

	if *outJSON != "" {
		if err := writeJSON(*outJSON, sum); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write json summary: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("\nWrote JSON summary to %s\n", *outJSON)
	}

	if sum.Errors > 0 {
		os.Exit(2)
	}
}

func hit(ctx context.Context, client *http.Client, target string) (int, string, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, "", 0, err
	}

	start := time.Now()
	resp, err := client.Do(req)
	dur := time.Since(start)
	if err != nil {
		return 0, "", dur, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, resp.Header.Get("X-Provider-Id"), dur, nil
}

func report(sum summary) {
	fmt.Println("--- Load Test Summary ---")
	fmt.Printf("Target: %s\n", sum.Target)
	fmt.Printf("Requests: %d  Concurrency: %d  Transport errors: %d\n", sum.Requests, sum.Concurrency, sum.Errors)
	fmt.Printf("Duration: %dms  Throughput: %.2f req/s\n", sum.DurationMS, sum.ThroughputRPS)

	fmt.Println("\nStatus codes:")
	codes := make([]int, 0, len(sum.StatusCodes))
	for code := range sum.StatusCodes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		fmt.Printf("  %d %-22s -> %d\n", code, http.StatusText(code), sum.StatusCodes[code])
	}

	fmt.Println("\nProvider distribution:")
	ids := make([]string, 0, len(sum.Providers))
	for id := range sum.Providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		ps := sum.Providers[id]
		lat := slices.Clone(ps.Latencies)
		slices.Sort(lat)
		fmt.Printf("  %s -> total=%d success=%d failure=%d p50=%v p99=%v\n",
			id, ps.Count, ps.Success, ps.Failure, pick(lat, 0.50), pick(lat, 0.99))
	}
}

func pick(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	return sorted[int(float64(len(sorted)-1)*p)]
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
