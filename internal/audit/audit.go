// Package audit records transitions and completed runs in ClickHouse.
package audit

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/RayRama/laundry-monitor-sub001/internal/logic"
)

const writeTimeout = 5 * time.Second

// execer is the subset of driver.Conn the sink writes through.
type execer interface {
	Exec(ctx context.Context, query string, args ...any) error
}

// Config holds ClickHouse connection settings.
type Config struct {
	Addr     string
	Database string
	Username string
	Password string
}

// ClickHouseSink writes transition events to ClickHouse.
type ClickHouseSink struct {
	conn driver.Conn
	db   execer
}

// NewClickHouseSink connects, pings and creates the audit tables.
func NewClickHouseSink(cfg Config) (*ClickHouseSink, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout: 5 * time.Second,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("open clickhouse: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}
	log.Printf("audit: connected to clickhouse at %s", cfg.Addr)

	s := &ClickHouseSink{conn: conn, db: conn}
	if err := s.initSchema(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

func (s *ClickHouseSink) initSchema(ctx context.Context) error {
	for _, ddl := range allTables() {
		if err := s.db.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	return nil
}

// Publish records one transition, plus a run row if it completes a run.
func (s *ClickHouseSink) Publish(ev logic.TransitionEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := s.db.Exec(ctx, insertTransition, transitionRow(ev)...); err != nil {
		return fmt.Errorf("insert transition %s: %w", ev.ID, err)
	}

	row, ok := runRow(ev)
	if !ok {
		return nil
	}
	if err := s.db.Exec(ctx, insertRun, row...); err != nil {
		return fmt.Errorf("insert run %s: %w", ev.ID, err)
	}
	log.Printf("audit: run recorded for %s (%s), %v", ev.Label, ev.DeviceID, time.Duration(ev.Previous.RunMs)*time.Millisecond)
	return nil
}

// Close closes the connection.
func (s *ClickHouseSink) Close() error {
	if s.conn == nil {
		return nil
	}
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("close clickhouse: %w", err)
	}
	return nil
}

func transitionRow(ev logic.TransitionEvent) []any {
	var online uint8
	if ev.Diagnostic.Online {
		online = 1
	}
	return []any{
		ev.ID,
		ev.At.UTC(),
		ev.DeviceID,
		ev.Label,
		string(ev.Type),
		string(ev.From),
		string(ev.To),
		ev.Reason,
		online,
		ev.Diagnostic.TimeLeftMs,
		ev.Diagnostic.TotalDurationMs,
		int32(ev.Diagnostic.StateCode),
		ev.Diagnostic.ActivationTag,
		ev.Previous.Since.UTC(),
	}
}

// runRow builds the completed-run row. Duration is wall-clock time from the
// run start to the transition.
func runRow(ev logic.TransitionEvent) ([]any, bool) {
	if !ev.CompletedRun() {
		return nil, false
	}
	start := ev.Previous.StartTime.UTC()
	duration := ev.At.Sub(start).Milliseconds()
	if duration < 0 {
		duration = 0
	}
	return []any{
		ev.ID,
		ev.DeviceID,
		ev.Label,
		string(ev.Type),
		start,
		ev.At.UTC(),
		duration,
		string(ev.To),
		ev.Previous.ActivationTag,
	}, true
}
