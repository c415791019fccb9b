package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type dispatchPayload struct {
	RecipientIDs []int64 `json:"recipient_ids"`
	TenantID     int64   `json:"tenant_id"`
	Type         string  `json:"type"`
	Title        string  `json:"title"`
	Message      string  `json:"message"`
	Priority     string  `json:"priority"`
}

type loadTestConfig struct {
	URL               string
	RequestsPerSecond int
	DurationSeconds   int
	ConcurrentWorkers int
	Tenants           int
	RecipientsPerCall int
	APIKey            string
}

type stats struct {
	successCount  atomic.Int64
	errorCount    atomic.Int64
	mu            sync.Mutex
	responseTimes []float64
}

func (s *stats) addResponseTime(duration float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responseTimes = append(s.responseTimes, duration)
}

func (s *stats) snapshotTimes() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	times := make([]float64, len(s.responseTimes))
	copy(times, s.responseTimes)
	return times
}

// buildPayloads pre-marshals one dispatch body per tenant so the hot loop
// only rotates through them, spreading load across tenant push configs.
func buildPayloads(cfg loadTestConfig) ([][]byte, error) {
	payloads := make([][]byte, 0, cfg.Tenants)
	for tenant := 1; tenant <= cfg.Tenants; tenant++ {
		recipients := make([]int64, cfg.RecipientsPerCall)
		for i := range recipients {
			recipients[i] = int64(tenant*1000 + i + 1)
		}
		body, err := json.Marshal(dispatchPayload{
			RecipientIDs: recipients,
			TenantID:     int64(tenant),
			Type:         "BROADCAST",
			Title:        "Load test broadcast",
			Message:      "Synthetic dispatch traffic",
			Priority:     "normal",
		})
		if err != nil {
			return nil, err
		}
		payloads = append(payloads, body)
	}
	return payloads, nil
}

func sendRequest(client *http.Client, cfg loadTestConfig, payload []byte, st *stats) {
	start := time.Now()

	req, err := http.NewRequest("POST", cfg.URL, bytes.NewBuffer(payload))
	if err != nil {
		st.errorCount.Add(1)
		return
	}

	req.Header.Set("Content-Type", "application/json")
	if cfg.APIKey != "" {
		req.Header.Set("X-API-Key", cfg.APIKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		st.errorCount.Add(1)
		st.addResponseTime(time.Since(start).Seconds())
		return
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	st.addResponseTime(time.Since(start).Seconds())

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		st.successCount.Add(1)
	} else {
		st.errorCount.Add(1)
	}
}

func worker(client *http.Client, cfg loadTestConfig, payloads [][]byte, st *stats, jobs <-chan int, wg *sync.WaitGroup) {
	defer wg.Done()
	for seq := range jobs {
		sendRequest(client, cfg, payloads[seq%len(payloads)], st)
	}
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	index := int(float64(len(sorted)) * p)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted[index]
}

func envOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func envIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func main() {
	cfg := loadTestConfig{
		URL:               envOrDefault("TARGET_URL", "http://localhost:8080/api/v1/dispatch"),
		RequestsPerSecond: envIntOrDefault("REQUESTS_PER_SECOND", 5000),
		DurationSeconds:   envIntOrDefault("DURATION_SECONDS", 30),
		ConcurrentWorkers: envIntOrDefault("CONCURRENT_WORKERS", 500),
		Tenants:           envIntOrDefault("TENANTS", 4),
		RecipientsPerCall: envIntOrDefault("RECIPIENTS_PER_CALL", 3),
		APIKey:            envOrDefault("API_KEY", ""),
	}

	payloads, err := buildPayloads(cfg)
	if err != nil {
		panic(err)
	}

	fmt.Println("Starting load test...")
	fmt.Printf("Target: %s\n", cfg.URL)
	fmt.Printf("Total requests: %d\n", cfg.RequestsPerSecond*cfg.DurationSeconds)
	fmt.Printf("Target RPS: %d\n", cfg.RequestsPerSecond)
	fmt.Printf("Concurrent workers: %d\n", cfg.ConcurrentWorkers)
	fmt.Printf("Tenants: %d, recipients per call: %d\n", cfg.Tenants, cfg.RecipientsPerCall)
	fmt.Printf("Duration: %d seconds\n", cfg.DurationSeconds)
	fmt.Println(strings.Repeat("-", 50))

	st := &stats{}

	client := &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        cfg.ConcurrentWorkers,
			MaxIdleConnsPerHost: cfg.ConcurrentWorkers,
			IdleConnTimeout:     90 * time.Second,
		},
		Timeout: 60 * time.Second,
	}

	jobs := make(chan int, cfg.RequestsPerSecond)

	var wg sync.WaitGroup
	for i := 0; i < cfg.ConcurrentWorkers; i++ {
		wg.Add(1)
		go worker(client, cfg, payloads, st, jobs, &wg)
	}

	startTime := time.Now()
	totalRequests := cfg.RequestsPerSecond * cfg.DurationSeconds
	requestsSent := 0

	for i := 0; i < cfg.DurationSeconds && requestsSent < totalRequests; i++ {
		batchStart := time.Now()

		for j := 0; j < cfg.RequestsPerSecond && requestsSent < totalRequests; j++ {
			jobs <- requestsSent
			requestsSent++
		}

		success := st.successCount.Load()
		errors := st.errorCount.Load()
		fmt.Printf("[%ds] Completed: %d | Success: %d | Errors: %d\n",
			i+1, success+errors, success, errors)

		if elapsed := time.Since(batchStart); elapsed < time.Second {
			time.Sleep(time.Second - elapsed)
		}
	}

	close(jobs)
	wg.Wait()

	duration := time.Since(startTime).Seconds()

	success := st.successCount.Load()
	errors := st.errorCount.Load()
	total := success + errors

	times := st.snapshotTimes()
	sort.Float64s(times)

	var avg, minTime, maxTime float64
	if len(times) > 0 {
		sum := 0.0
		for _, t := range times {
			sum += t
		}
		avg = sum / float64(len(times))
		minTime = times[0]
		maxTime = times[len(times)-1]
	}

	fmt.Println("\n" + strings.Repeat("=", 50))
	fmt.Println("LOAD TEST RESULTS")
	fmt.Println(strings.Repeat("=", 50))
	fmt.Printf("Duration: %.2f seconds\n", duration)
	fmt.Printf("Total requests: %d\n", total)
	fmt.Printf("Successful: %d\n", success)
	fmt.Printf("Failed: %d\n", errors)
	if total > 0 {
		fmt.Printf("Success rate: %.2f%%\n", float64(success)/float64(total)*100)
	}
	fmt.Printf("\nActual RPS: %.2f\n", float64(total)/duration)
	fmt.Printf("\nResponse times:\n")
	fmt.Printf("  Average: %.2f ms\n", avg*1000)
	fmt.Printf("  P50: %.2f ms\n", percentile(times, 0.50)*1000)
	fmt.Printf("  P95: %.2f ms\n", percentile(times, 0.95)*1000)
	fmt.Printf("  P99: %.2f ms\n", percentile(times, 0.99)*1000)
	fmt.Printf("  Min: %.2f ms\n", minTime*1000)
	fmt.Printf("  Max: %.2f ms\n", maxTime*1000)
}
