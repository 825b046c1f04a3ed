// FILE: cmd/simple/main.go
package main

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gamato/skylog"
)

const configFile = "simple_config.toml"

// Example TOML content
var tomlContent = `
# Example simple_config.toml
[logger]
  level = "debug"
  job = "simple"
  handlers = ["console", "mainlog"]
  heartbeat_interval_s = 0
  internal_errors_to_stderr = true

[formatter.verbose]
  format = "{timestamp} {pid} {level} [{job}] {message}"

[handler.console]
  kind = "console"
  level = "warning"
  formatter = "short"

[handler.mainlog]
  kind = "rotating_file"
  level = "debug"
  formatter = "verbose"
  path = "./simple_logs/{job}.log"
  max_size = "1*1024*1024"
  max_generations = 3
`

func main() {
	fmt.Println("--- Simple Pipeline Example ---")

	// Create dummy config file
	err := os.WriteFile(configFile, []byte(tomlContent), 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write dummy config: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Created dummy config file: %s\n", configFile)
	// defer os.Remove(configFile) // Remove to keep the config file
	// defer os.RemoveAll("./simple_logs") // Remove to keep the log directory

	// --- Build Pipeline ---
	logger, err := skylog.NewFromConfigFile(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build pipeline: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start pipeline: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Pipeline started.")

	// --- Logging ---
	logger.Debug("This is a debug message.", "user_id", 123)
	logger.Info("Application starting...")
	logger.Warn("Potential issue detected.", "threshold", 0.95)
	logger.Error("An error occurred!", "code", 500)

	// Logging from goroutines
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			logger.Info("Goroutine started", "id", id)
			time.Sleep(time.Duration(50+id*50) * time.Millisecond)
			logger.Info("Goroutine finished", "id", id)
		}(i)
	}

	// Wait for goroutines to finish before shutting down
	wg.Wait()
	fmt.Println("Goroutines finished.")

	// --- Shutdown ---
	fmt.Println("Shutting down pipeline...")
	shutdownTimeout := 2 * time.Second
	err = logger.Shutdown(shutdownTimeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Pipeline shutdown error: %v\n", err)
	} else {
		fmt.Println("Pipeline shutdown complete.")
	}

	fmt.Println("--- Example Finished ---")
	fmt.Println("Check log files in './simple_logs'. Only WARNING and above went to the console.")
}
