// FILE: cmd/webdemo/main.go

// webdemo runs a fasthttp server whose internal logging and request log
// both flow through one pipeline: console for warnings, a rotating file
// for everything, and a best-effort sqlite archive.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/gamato/skylog"
	"github.com/gamato/skylog/compat"
)

var logger *skylog.Dispatcher

func main() {
	var err error
	logger, err = skylog.NewBuilder("webdemo").
		Level("debug").
		StderrReports(true).
		Console("console", "warning", "short").
		RotatingFile("access", "debug", "long", "./webdemo_logs/{job}.log", "10*1024*1024", 3).
		Database("archive", "info", "sqlite://./webdemo_logs/records.db").
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build pipeline: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start pipeline: %v\n", err)
		os.Exit(1)
	}
	defer logger.Shutdown(5 * time.Second)

	adapter := compat.NewFastHTTPAdapter(
		logger,
		compat.WithDefaultLevel(skylog.LevelInfo),
		compat.WithLevelDetector(serverLevelDetector),
	)

	server := &fasthttp.Server{
		Handler: requestHandler,
		Logger:  adapter,

		Name:         "webdemo",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	fmt.Println("Starting server on :8080")
	logger.Info("server starting", "addr", ":8080")
	if err := server.ListenAndServe(":8080"); err != nil {
		logger.Critical("server stopped", "error", err)
		_ = logger.Shutdown(5 * time.Second)
		os.Exit(1)
	}
}

func requestHandler(ctx *fasthttp.RequestCtx) {
	start := time.Now()
	ctx.SetContentType("text/plain")
	fmt.Fprintf(ctx, "Hello from webdemo! Path: %s\n", ctx.Path())

	logger.Info("request",
		"method", string(ctx.Method()),
		"path", string(ctx.Path()),
		"status", ctx.Response.StatusCode(),
		"elapsed", time.Since(start).String(),
	)
}

func serverLevelDetector(msg string) int64 {
	// fasthttp-specific message patterns worth elevating
	if strings.Contains(msg, "connection cannot be served") {
		return skylog.LevelWarn
	}
	if strings.Contains(msg, "error when serving connection") {
		return skylog.LevelError
	}
	return compat.DetectLogLevel(msg)
}
