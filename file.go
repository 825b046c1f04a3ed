// FILE: file.go
package skylog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Rotating file sink states.
const (
	fileStateOpen = iota
	fileStateRotating
	fileStateClosed
)

// fileDest is the write half of the rotating file sink. It appends rendered
// lines to <base>.log and keeps up to maxGenerations numbered backups:
// <base>.log.1 is the most recent archive, <base>.log.<maxGenerations> the
// oldest still on disk.
//
// All state (file handle, size counter, retry window) is owned by the
// sink's worker goroutine; see queued.
type fileDest struct {
	*sinkStats
	name      string
	path      string
	maxSize   int64
	maxGen    int
	formatter *Formatter
	report    reportFunc

	f       *os.File
	size    int64
	state   int
	retryAt time.Time
}

// reopenRetryWindow bounds how often a degraded file sink attempts to
// reopen its file, so a persistent disk fault does not become a hot loop.
const reopenRetryWindow = 5 * time.Second

// newRotatingFileSink builds the sink. pathTemplate substitutes "{job}"
// with the per-run job name. The file is opened lazily on first write.
func newRotatingFileSink(name string, threshold int64, f *Formatter, pathTemplate, job string, maxSize int64, maxGen, queueSize int, policy OverflowPolicy, report reportFunc) (Sink, error) {
	path := strings.ReplaceAll(pathTemplate, "{job}", job)
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmtErrorf("failed to create log directory '%s': %w", dir, err)
		}
	}
	dest := &fileDest{
		sinkStats: &sinkStats{},
		name:      name,
		path:      path,
		maxSize:   maxSize,
		maxGen:    maxGen,
		formatter: f,
		report:    report,
	}
	return newQueued(name, threshold, dest, dest.sinkStats, queueSize, policy, report), nil
}

// emit renders the record and appends it, rotating first when the write
// would push the current generation past maxSize.
func (d *fileDest) emit(rec Record) error {
	if d.state == fileStateClosed {
		return ErrSinkExhausted
	}

	if d.f == nil {
		if err := d.open(); err != nil {
			return err
		}
	}

	data := d.formatter.renderOrDump(rec)
	line := make([]byte, 0, len(data)+1)
	line = append(line, data...)
	line = append(line, '\n')

	if d.maxSize > 0 && d.size+int64(len(line)) > d.maxSize {
		if err := d.rotate(); err != nil {
			d.degrade(err)
			return err
		}
	}

	n, err := d.f.Write(line)
	if err != nil {
		d.degrade(err)
		return &SinkIOError{Sink: d.name, Op: "write", Err: err}
	}
	d.size += int64(n)
	return nil
}

// open opens (or reopens) the current generation, honoring the retry
// window while degraded.
func (d *fileDest) open() error {
	if d.degraded.Load() && time.Now().Before(d.retryAt) {
		return ErrSinkExhausted
	}

	f, err := os.OpenFile(d.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		d.degrade(err)
		return &SinkIOError{Sink: d.name, Op: "open", Err: err}
	}
	d.f = f
	d.size = 0
	if fi, errStat := f.Stat(); errStat == nil {
		d.size = fi.Size()
	}
	d.state = fileStateOpen
	if d.degraded.Swap(false) {
		d.report("sink %s: file reopened after degradation\n", d.name)
	}
	return nil
}

// rotate closes the current file, shifts the numbered backups up by one
// index (the one past maxGen is discarded), and reopens a fresh file.
func (d *fileDest) rotate() error {
	d.state = fileStateRotating
	defer func() {
		if d.state == fileStateRotating {
			d.state = fileStateOpen
		}
	}()

	if err := d.f.Close(); err != nil {
		d.report("sink %s: failed to close log file before rotation: %v\n", d.name, err)
		// Continue with rotation anyway
	}
	d.f = nil

	oldest := d.generationPath(d.maxGen)
	if _, err := os.Stat(oldest); err == nil {
		if err := os.Remove(oldest); err != nil {
			return &SinkIOError{Sink: d.name, Op: "remove oldest backup", Err: err}
		}
	}
	for i := d.maxGen - 1; i >= 1; i-- {
		from := d.generationPath(i)
		if _, err := os.Stat(from); err != nil {
			continue
		}
		if err := os.Rename(from, d.generationPath(i+1)); err != nil {
			return &SinkIOError{Sink: d.name, Op: "shift backup", Err: err}
		}
	}
	if err := os.Rename(d.path, d.generationPath(1)); err != nil {
		return &SinkIOError{Sink: d.name, Op: "archive current file", Err: err}
	}

	return d.open()
}

// generationPath returns the on-disk name of backup index n (n >= 1).
func (d *fileDest) generationPath(n int) string {
	return fmt.Sprintf("%s.%d", d.path, n)
}

// degrade records a fault and schedules the next reopen attempt. Further
// writes inside the window are counted as failed, not retried per record.
func (d *fileDest) degrade(err error) {
	if d.f != nil {
		_ = d.f.Close()
		d.f = nil
	}
	if !d.degraded.Swap(true) {
		d.report("sink %s: degraded: %v\n", d.name, err)
	}
	d.retryAt = time.Now().Add(reopenRetryWindow)
}

func (d *fileDest) sync() error {
	if d.f == nil {
		return nil
	}
	if err := d.f.Sync(); err != nil {
		return &SinkIOError{Sink: d.name, Op: "sync", Err: err}
	}
	return nil
}

func (d *fileDest) release() error {
	d.state = fileStateClosed
	if d.f == nil {
		return nil
	}
	err := combineErrors(d.f.Sync(), d.f.Close())
	d.f = nil
	if err != nil {
		return fmtErrorf("failed to close log file '%s': %w", d.path, err)
	}
	return nil
}
