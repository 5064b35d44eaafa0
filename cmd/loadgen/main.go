// Command loadgen drives the lookup API with a Zipf-skewed mix of points so
// a few cells run hot, and writes per-request samples plus a summary.
package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mohammed-shakir/digipin-courier/internal/digipin"
)

type Config struct {
	BaseURL        string
	Concurrency    int
	Duration       time.Duration
	ZipfS          float64
	ZipfV          float64
	Points         int
	DecodeRatio    float64
	OutputPrefix   string
	RequestTimeout time.Duration
	Seed           int64
}

func loadConfig() Config {
	var cfg Config
	flag.StringVar(&cfg.BaseURL, "target", "http://localhost:8080", "Server base URL")
	flag.IntVar(&cfg.Concurrency, "concurrency", 32, "Concurrent workers")
	flag.DurationVar(&cfg.Duration, "duration", 60*time.Second, "Test duration")
	flag.Float64Var(&cfg.ZipfS, "zipf-s", 1.3, "Zipf parameter s (>1)")
	flag.Float64Var(&cfg.ZipfV, "zipf-v", 1.0, "Zipf parameter v (>=1)")
	flag.IntVar(&cfg.Points, "points", 256, "Distinct points in pool")
	flag.Float64Var(&cfg.DecodeRatio, "decode-ratio", 0.3, "Share of requests that decode instead of encode")
	flag.StringVar(&cfg.OutputPrefix, "out", "results/loadgen", "Output file prefix (JSON/CSV)")
	flag.DurationVar(&cfg.RequestTimeout, "timeout", 5*time.Second, "Per-request timeout")
	flag.Int64Var(&cfg.Seed, "seed", 0, "Random seed, 0 picks one from the clock")
	flag.Parse()
	return cfg
}

// hotspot centers; the first quarter of the pool clusters around them
var hotspots = []digipin.Coordinate{
	{Lat: 28.6139, Lon: 77.2090}, // Delhi
	{Lat: 19.0760, Lon: 72.8777}, // Mumbai
	{Lat: 12.9716, Lon: 77.5946}, // Bengaluru
	{Lat: 22.5726, Lon: 88.3639}, // Kolkata
	{Lat: 13.0827, Lon: 80.2707}, // Chennai
}

type target struct {
	Point digipin.Coordinate
	Pin   string
}

// makeTargets builds a pool of in-domain points with their pins. Index 0 is
// the most frequently requested under Zipf, so hot points come first.
func makeTargets(count int, r *rand.Rand) []target {
	dom := digipin.Domain()
	out := make([]target, 0, count)

	hot := max(len(hotspots), count/4)
	for i := 0; len(out) < count; i++ {
		var c digipin.Coordinate
		if i < hot {
			h := hotspots[i%len(hotspots)]
			c = digipin.Coordinate{Lat: h.Lat + (r.Float64()-0.5)*0.05, Lon: h.Lon + (r.Float64()-0.5)*0.05}
		} else {
			c = digipin.Coordinate{
				Lat: dom.MinLat + r.Float64()*dom.Height(),
				Lon: dom.MinLon + r.Float64()*dom.Width(),
			}
		}
		pin, err := digipin.Encode(c.Lat, c.Lon)
		if err != nil {
			continue
		}
		out = append(out, target{Point: c, Pin: pin})
	}
	return out
}

func requestURL(base string, t target, decode bool) string {
	base = strings.TrimRight(base, "/")
	q := url.Values{}
	if decode {
		q.Set("digipin", t.Pin)
		return base + "/api/location/coordinates?" + q.Encode()
	}
	q.Set("latitude", fmt.Sprintf("%.6f", t.Point.Lat))
	q.Set("longitude", fmt.Sprintf("%.6f", t.Point.Lon))
	return base + "/api/location/digipin?" + q.Encode()
}

type sample struct {
	Timestamp time.Time
	Latency   time.Duration
	Status    int
	ErrorMsg  string
	Op        string
	Pin       string
}

type summary struct {
	StartTime     time.Time `json:"start"`
	EndTime       time.Time `json:"end"`
	DurationSec   float64   `json:"duration_sec"`
	TotalRequests int64     `json:"total"`
	SuccessCount  int64     `json:"success"`
	ErrorCount    int64     `json:"errors"`
	ThroughputRPS float64   `json:"throughput_rps"`
	P50Ms         float64   `json:"p50_ms"`
	P95Ms         float64   `json:"p95_ms"`
	P99Ms         float64   `json:"p99_ms"`
	Concurrency   int       `json:"concurrency"`
	ZipfS         float64   `json:"zipf_s"`
	ZipfV         float64   `json:"zipf_v"`
	Points        int       `json:"points"`
	TargetURL     string    `json:"target"`
}

type aggregatedResult struct {
	total   int64
	success int64
	errors  int64
	latMs   []float64
}

func main() {
	cfg := loadConfig()
	if err := os.MkdirAll(filepath.Dir(cfg.OutputPrefix), 0o750); err != nil {
		log.Fatalf("mkdir results: %v", err)
	}
	prefix := fmt.Sprintf("%s_%s", cfg.OutputPrefix, time.Now().UTC().Format("20060102_150405Z"))

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	targets := makeTargets(cfg.Points, rand.New(rand.NewSource(seed)))
	if len(targets) == 0 {
		log.Fatalf("no targets generated")
	}
	imax := uint64(len(targets)) - 1

	httpClient := &http.Client{
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			DialContext:         (&net.Dialer{Timeout: 4 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
			MaxIdleConns:        1024,
			MaxIdleConnsPerHost: 256,
			IdleConnTimeout:     90 * time.Second,
		},
		Timeout: cfg.RequestTimeout,
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	csvPath := prefix + "_samples.csv"
	jsonPath := prefix + "_summary.json"
	csvFile, err := os.Create(filepath.Clean(csvPath))
	if err != nil {
		log.Fatalf("open csv: %v", err)
	}
	defer func() { _ = csvFile.Close() }()

	samplesChan := make(chan sample, 4096)
	resultsChan := make(chan aggregatedResult, 1)
	go collect(csv.NewWriter(csvFile), samplesChan, resultsChan)

	startTime := time.Now()
	log.Printf("loadgen start target=%s dur=%s conc=%d zipf(s=%.2f,v=%.2f) points=%d",
		cfg.BaseURL, cfg.Duration, cfg.Concurrency, cfg.ZipfS, cfg.ZipfV, len(targets))

	var wg sync.WaitGroup
	wg.Add(cfg.Concurrency)
	for workerID := range cfg.Concurrency {
		go func(id int) {
			defer wg.Done()
			rWorker := rand.New(rand.NewSource(seed + int64(id) + 1))
			zipfDist := rand.NewZipf(rWorker, cfg.ZipfS, cfg.ZipfV, imax)
			for {
				select {
				case <-ctx.Done():
					return
				default:
				}

				t := targets[zipfDist.Uint64()]
				decode := rWorker.Float64() < cfg.DecodeRatio
				op := "encode"
				if decode {
					op = "decode"
				}

				startReq := time.Now()
				req, _ := http.NewRequestWithContext(ctx, http.MethodGet, requestURL(cfg.BaseURL, t, decode), nil)
				resp, err := httpClient.Do(req)
				s := sample{Timestamp: startReq, Latency: time.Since(startReq), Op: op, Pin: t.Pin}
				if err != nil {
					s.ErrorMsg = err.Error()
				} else {
					s.Status = resp.StatusCode
					_, _ = io.Copy(io.Discard, resp.Body)
					_ = resp.Body.Close()
					if resp.StatusCode < 200 || resp.StatusCode >= 300 {
						s.ErrorMsg = fmt.Sprintf("status=%d", resp.StatusCode)
					}
				}

				select {
				case samplesChan <- s:
				case <-ctx.Done():
					return
				}
			}
		}(workerID)
	}

	go func() {
		<-ctx.Done()
		wg.Wait()
		close(samplesChan)
	}()

	agg := <-resultsChan
	endTime := time.Now()
	elapsed := endTime.Sub(startTime).Seconds()

	sort.Float64s(agg.latMs)
	runSummary := summary{
		StartTime:     startTime.UTC(),
		EndTime:       endTime.UTC(),
		DurationSec:   elapsed,
		TotalRequests: agg.total,
		SuccessCount:  agg.success,
		ErrorCount:    agg.errors,
		ThroughputRPS: float64(agg.total) / elapsed,
		P50Ms:         percentile(agg.latMs, 50),
		P95Ms:         percentile(agg.latMs, 95),
		P99Ms:         percentile(agg.latMs, 99),
		Concurrency:   cfg.Concurrency,
		ZipfS:         cfg.ZipfS,
		ZipfV:         cfg.ZipfV,
		Points:        len(targets),
		TargetURL:     cfg.BaseURL,
	}

	if jsonFile, err := os.Create(filepath.Clean(jsonPath)); err == nil {
		enc := json.NewEncoder(jsonFile)
		enc.SetIndent("", "  ")
		_ = enc.Encode(runSummary)
		_ = jsonFile.Close()
	}

	log.Printf("done: total=%d succ=%d err=%d thr=%.2f rps p50=%.1fms p95=%.1fms p99=%.1fms",
		agg.total, agg.success, agg.errors, runSummary.ThroughputRPS, runSummary.P50Ms, runSummary.P95Ms, runSummary.P99Ms)
	log.Printf("wrote %s and %s", jsonPath, csvPath)
}

func collect(w *csv.Writer, samples <-chan sample, out chan<- aggregatedResult) {
	_ = w.Write([]string{"timestamp", "latency_ms", "status", "error", "op", "digipin"})
	var res aggregatedResult
	res.latMs = make([]float64, 0, 1<<16)
	for s := range samples {
		res.total++
		ms := float64(s.Latency.Microseconds()) / 1000.0
		if s.ErrorMsg == "" {
			res.success++
			res.latMs = append(res.latMs, ms)
		} else {
			res.errors++
		}
		_ = w.Write([]string{
			s.Timestamp.UTC().Format(time.RFC3339Nano),
			fmt.Sprintf("%.3f", ms),
			fmt.Sprintf("%d", s.Status),
			s.ErrorMsg,
			s.Op,
			s.Pin,
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		log.Printf("csv flush error: %v", err)
	}
	out <- res
}

func percentile(sortedValues []float64, p float64) float64 {
	if len(sortedValues) == 0 {
		return math.NaN()
	}
	if p <= 0 {
		return sortedValues[0]
	}
	if p >= 100 {
		return sortedValues[len(sortedValues)-1]
	}
	k := (p / 100.0) * float64(len(sortedValues)-1)
	f := math.Floor(k)
	i := int(f)
	if i >= len(sortedValues)-1 {
		return sortedValues[len(sortedValues)-1]
	}
	d := k - f
	return sortedValues[i]*(1-d) + sortedValues[i+1]*d
}
