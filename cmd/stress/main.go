// FILE: cmd/stress/main.go
package main

import (
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gamato/skylog"
)

const (
	totalBursts    = 100
	logsPerBurst   = 500
	maxMessageSize = 4000
	numWorkers     = 100
)

var levels = []int64{
	skylog.LevelDebug,
	skylog.LevelInfo,
	skylog.LevelWarn,
	skylog.LevelError,
}

var logger *skylog.Dispatcher

func generateRandomMessage(size int) string {
	const chars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789 "
	var sb strings.Builder
	sb.Grow(size)
	for i := 0; i < size; i++ {
		sb.WriteByte(chars[rand.Intn(len(chars))])
	}
	return sb.String()
}

// logBurst simulates a burst of logging activity
func logBurst(burstID int) {
	for i := 0; i < logsPerBurst; i++ {
		level := levels[rand.Intn(len(levels))]
		msgSize := rand.Intn(maxMessageSize) + 10
		msg := generateRandomMessage(msgSize)
		args := []any{
			msg,
			"wkr", burstID % numWorkers,
			"bst", burstID,
			"seq", i,
			"rnd", rand.Int63(),
		}
		switch level {
		case skylog.LevelDebug:
			logger.Debug(args...)
		case skylog.LevelInfo:
			logger.Info(args...)
		case skylog.LevelWarn:
			logger.Warn(args...)
		case skylog.LevelError:
			logger.Error(args...)
		}
	}
}

// worker goroutine function
func worker(burstChan chan int, wg *sync.WaitGroup, completedBursts *atomic.Int64) {
	defer wg.Done()
	for burstID := range burstChan {
		logBurst(burstID)
		completed := completedBursts.Add(1)
		if completed%10 == 0 || completed == totalBursts {
			fmt.Printf("\rProgress: %d/%d bursts completed", completed, totalBursts)
		}
	}
}

func printStats(stats map[string]skylog.SinkStats) {
	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		s := stats[name]
		fmt.Printf("  %-10s delivered=%d dropped=%d failed=%d degraded=%t\n",
			name, s.Delivered, s.Dropped, s.Failed, s.Degraded)
	}
}

func main() {
	fmt.Println("--- Pipeline Stress Test ---")

	logsDir := "./stress_logs"
	_ = os.RemoveAll(logsDir) // Clean previous run's logs before starting

	// --- Build Pipeline ---
	var err error
	logger, err = skylog.NewBuilder("stress").
		Level("debug").
		StderrReports(true).
		HeartbeatIntervalS(5).
		Console("console", "critical", "short").
		RotatingFile("mainlog", "debug", "long", logsDir+"/{job}.log", "1*1024*1024", 5).
		UDP("netlog", "warning", "127.0.0.1", 9999).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build pipeline: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start pipeline: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Pipeline started. Logs will be written to: %s\n", logsDir)

	fmt.Printf("Starting stress test: %d workers, %d bursts, %d logs/burst.\n",
		numWorkers, totalBursts, logsPerBurst)
	fmt.Println("Watch the dropped counters for queue overflow under load.")
	fmt.Println("Press Ctrl+C to stop early.")

	// --- Setup Workers and Signal Handling ---
	burstChan := make(chan int, numWorkers)
	var wg sync.WaitGroup
	completedBursts := atomic.Int64{}
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	stopChan := make(chan struct{})

	go func() {
		<-sigChan
		fmt.Println("\n[Signal Received] Stopping burst generation...")
		close(stopChan)
	}()

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go worker(burstChan, &wg, &completedBursts)
	}

	// --- Run Test ---
	startTime := time.Now()
	for i := 1; i <= totalBursts; i++ {
		select {
		case burstChan <- i:
		case <-stopChan:
			fmt.Println("[Signal Received] Halting burst submission.")
			goto endLoop
		}
	}
endLoop:
	close(burstChan)

	fmt.Println("\nWaiting for workers to finish...")
	wg.Wait()
	duration := time.Since(startTime)
	finalCompleted := completedBursts.Load()

	fmt.Printf("\n--- Test Finished ---")
	fmt.Printf("\nCompleted %d/%d bursts in %v\n", finalCompleted, totalBursts, duration.Round(time.Millisecond))
	if finalCompleted > 0 && duration.Seconds() > 0 {
		logsPerSec := float64(finalCompleted*logsPerBurst) / duration.Seconds()
		fmt.Printf("Approximate Logs/sec: %.2f\n", logsPerSec)
	}

	fmt.Println("Per-sink counters before shutdown:")
	printStats(logger.Stats())

	// --- Shutdown ---
	fmt.Println("Shutting down pipeline (allowing up to 10s)...")
	shutdownTimeout := 10 * time.Second
	err = logger.Shutdown(shutdownTimeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Pipeline shutdown error: %v\n", err)
	} else {
		fmt.Println("Pipeline shutdown complete.")
	}

	fmt.Printf("Check log files in '%s'.\n", logsDir)
}
