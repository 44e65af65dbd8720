package export

import (
	"context"
	"fmt"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"

	"perfkit/internal/appd"
	"perfkit/internal/config"
)

// GreptimeWriter is the subset of the ingester client the sink needs.
type GreptimeWriter interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

// GreptimeSink pushes samples into a GreptimeDB table, one row per sample.
type GreptimeSink struct {
	writer GreptimeWriter
	table  string
}

// NewGreptimeSink connects to the database described by cfg.
func NewGreptimeSink(cfg config.GreptimeConfig) (*GreptimeSink, error) {
	gcfg := greptime.NewConfig(cfg.Host).
		WithPort(cfg.Port).
		WithDatabase(cfg.Database)
	if cfg.Username != "" {
		gcfg = gcfg.WithAuth(cfg.Username, cfg.Password)
	}
	client, err := greptime.NewClient(gcfg)
	if err != nil {
		return nil, fmt.Errorf("greptime client: %w", err)
	}
	return NewGreptimeSinkWithWriter(client, cfg.Table), nil
}

// NewGreptimeSinkWithWriter wraps an existing writer.
func NewGreptimeSinkWithWriter(w GreptimeWriter, tableName string) *GreptimeSink {
	if tableName == "" {
		tableName = "appd_metrics"
	}
	return &GreptimeSink{writer: w, table: tableName}
}

// Write inserts samples and returns the affected row count.
func (s *GreptimeSink) Write(ctx context.Context, samples []appd.MetricSample) (uint32, error) {
	if len(samples) == 0 {
		return 0, nil
	}
	tbl, err := s.buildTable(samples)
	if err != nil {
		return 0, err
	}
	resp, err := s.writer.Write(ctx, tbl)
	if err != nil {
		return 0, fmt.Errorf("greptime write %s: %w", s.table, err)
	}
	return resp.GetAffectedRows().GetValue(), nil
}

func (s *GreptimeSink) buildTable(samples []appd.MetricSample) (*table.Table, error) {
	tbl, err := table.New(s.table)
	if err != nil {
		return nil, err
	}
	for _, col := range []string{"application_name", "health_status"} {
		if err := tbl.AddTagColumn(col, types.STRING); err != nil {
			return nil, err
		}
	}
	if err := tbl.AddTagColumn("application_id", types.INT64); err != nil {
		return nil, err
	}
	for _, col := range []string{"calls_per_minute", "average_response_time", "errors_per_minute", "error_percentage"} {
		if err := tbl.AddFieldColumn(col, types.FLOAT64); err != nil {
			return nil, err
		}
	}
	if err := tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND); err != nil {
		return nil, err
	}

	for _, m := range samples {
		err := tbl.AddRow(
			m.ApplicationName,
			string(m.HealthStatus),
			m.ApplicationID,
			m.CallsPerMinute,
			m.AverageResponseTime,
			m.ErrorsPerMinute,
			m.ErrorPercentage,
			m.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("row %s: %w", m.ApplicationName, err)
		}
	}
	return tbl, nil
}
