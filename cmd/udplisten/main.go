// FILE: cmd/udplisten/main.go

// udplisten receives the datagrams a udp handler broadcasts and prints
// the decoded records, one line each. Point a pipeline's udp handler at
// this process to watch its traffic.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/panjf2000/gnet/v2"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/gamato/skylog"
	"github.com/gamato/skylog/compat"
)

// datagram mirrors the wire envelope of the udp handler: one msgpack map
// per record.
type datagram struct {
	Time      time.Time `msgpack:"time"`
	Level     string    `msgpack:"level"`
	Job       string    `msgpack:"job"`
	PID       int       `msgpack:"pid"`
	Message   string    `msgpack:"msg"`
	Truncated bool      `msgpack:"truncated"`
}

type listener struct {
	gnet.BuiltinEventEngine
}

func (l *listener) OnTraffic(c gnet.Conn) gnet.Action {
	buf, err := c.Next(-1)
	if err != nil {
		return gnet.None
	}

	var rec datagram
	if err := msgpack.Unmarshal(buf, &rec); err != nil {
		fmt.Fprintf(os.Stderr, "undecodable datagram (%d bytes): %v\n", len(buf), err)
		return gnet.None
	}

	marker := ""
	if rec.Truncated {
		marker = " [truncated]"
	}
	fmt.Printf("%s %s[%d] %-8s %s%s\n",
		rec.Time.Format(time.RFC3339), rec.Job, rec.PID, rec.Level, rec.Message, marker)
	return gnet.None
}

func main() {
	addr := "udp://127.0.0.1:9999"
	if len(os.Args) > 1 {
		addr = os.Args[1]
	}

	// The listener's own diagnostics go through a console pipeline.
	logger, err := skylog.NewBuilder("udplisten").
		Level("info").
		Console("console", "info", "short").
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build pipeline: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start pipeline: %v\n", err)
		os.Exit(1)
	}
	defer logger.Shutdown()

	fmt.Printf("Listening for log datagrams on %s\n", addr)
	err = gnet.Run(
		&listener{},
		addr,
		gnet.WithLogger(compat.NewGnetAdapter(logger)),
		gnet.WithReusePort(true),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Listener stopped: %v\n", err)
		os.Exit(1)
	}
}
