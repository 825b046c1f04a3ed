// FILE: database.go
package skylog

import (
	"context"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Reconnect backoff bounds for the database sink.
const (
	dbRetryStart  = 1 * time.Second
	dbRetryMax    = 30 * time.Second
	dbRetryFactor = 2
)

// defaultDBTimeout bounds a single insert so a stalled store never blocks
// the sink's worker indefinitely.
const defaultDBTimeout = 2 * time.Second

// LogRow is the persisted shape of a record. The message is stored raw,
// without formatter metadata; timestamp, level and job context are their
// own columns.
type LogRow struct {
	ID       uint      `gorm:"primaryKey"`
	LoggedAt time.Time `gorm:"index"`
	Level    string
	Job      string
	PID      int
	Message  string
}

// TableName fixes the table independent of gorm's pluralization settings.
func (LogRow) TableName() string { return "log_records" }

// dbDest is the write half of the database sink. It is best-effort by
// contract: under sustained outage it drops records rather than blocking
// the pipeline.
type dbDest struct {
	*sinkStats
	name    string
	dsn     string
	timeout time.Duration
	report  reportFunc

	db          *gorm.DB
	retryAt     time.Time
	retryPeriod time.Duration
}

// newDatabaseSink builds the sink. The connection is established lazily on
// first write so a dead store at startup degrades instead of failing boot;
// the DSN itself is still validated eagerly.
func newDatabaseSink(name string, threshold int64, dsn string, timeout time.Duration, queueSize int, policy OverflowPolicy, report reportFunc) (Sink, error) {
	if _, err := dialectorFor(dsn); err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = defaultDBTimeout
	}
	dest := &dbDest{
		sinkStats: &sinkStats{},
		name:      name,
		dsn:       dsn,
		timeout:   timeout,
		report:    report,
	}
	return newQueued(name, threshold, dest, dest.sinkStats, queueSize, policy, report), nil
}

// dialectorFor maps a connection string scheme to a gorm dialector.
func dialectorFor(dsn string) (gorm.Dialector, error) {
	switch {
	case strings.HasPrefix(dsn, "sqlite://"):
		return sqlite.Open(strings.TrimPrefix(dsn, "sqlite://")), nil
	case strings.HasPrefix(dsn, "mysql://"):
		return mysql.Open(strings.TrimPrefix(dsn, "mysql://")), nil
	default:
		return nil, &ConfigError{Section: "handler", Key: "dsn",
			Reason: "unknown scheme, expected sqlite:// or mysql://"}
	}
}

// emit inserts one row. On write failure it attempts reconnection once,
// gated by the backoff window; a record that still cannot be written is
// dropped and counted as lost.
func (d *dbDest) emit(rec Record) error {
	if d.db == nil {
		if err := d.connect(); err != nil {
			return err
		}
	}

	if err := d.insert(rec); err != nil {
		// Transient loss tolerated: one reconnect attempt per write.
		d.disconnect()
		if reconnErr := d.connect(); reconnErr != nil {
			return reconnErr
		}
		if err = d.insert(rec); err != nil {
			d.degrade(err)
			return &SinkIOError{Sink: d.name, Op: "insert", Err: err}
		}
	}
	if d.degraded.Swap(false) {
		d.retryPeriod = 0
		d.report("sink %s: database connection restored\n", d.name)
	}
	return nil
}

func (d *dbDest) insert(rec Record) error {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	row := LogRow{
		LoggedAt: rec.Time,
		Level:    LevelToString(rec.Level),
		Job:      rec.Job,
		PID:      rec.PID,
		Message:  rec.Message,
	}
	return d.db.WithContext(ctx).Create(&row).Error
}

// connect opens the store, bounded by the exponential backoff window.
func (d *dbDest) connect() error {
	if d.degraded.Load() && time.Now().Before(d.retryAt) {
		return ErrSinkExhausted
	}

	dialector, err := dialectorFor(d.dsn)
	if err != nil {
		return err
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Discard})
	if err != nil {
		d.degrade(err)
		return &SinkIOError{Sink: d.name, Op: "connect", Err: err}
	}
	if err := db.AutoMigrate(&LogRow{}); err != nil {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			_ = sqlDB.Close()
		}
		d.degrade(err)
		return &SinkIOError{Sink: d.name, Op: "migrate", Err: err}
	}
	d.db = db
	return nil
}

func (d *dbDest) disconnect() {
	if d.db == nil {
		return
	}
	if sqlDB, err := d.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	d.db = nil
}

// degrade grows the backoff window: 1s start, doubled per failure, 30s cap.
func (d *dbDest) degrade(err error) {
	if d.retryPeriod == 0 {
		d.retryPeriod = dbRetryStart
	} else {
		d.retryPeriod *= dbRetryFactor
		if d.retryPeriod > dbRetryMax {
			d.retryPeriod = dbRetryMax
		}
	}
	d.retryAt = time.Now().Add(d.retryPeriod)
	if !d.degraded.Swap(true) {
		d.report("sink %s: degraded: %v\n", d.name, err)
	}
}

func (d *dbDest) sync() error { return nil }

func (d *dbDest) release() error {
	d.disconnect()
	return nil
}
