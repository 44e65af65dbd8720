// Package export writes metric samples to CSV, Excel and GreptimeDB.
package export

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"perfkit/internal/appd"
)

// TimestampLayout is the layout of the Timestamp column.
const TimestampLayout = "2006-01-02 15:04:05"

// Header is the fixed column contract shared by every tabular format.
var Header = []string{
	"Application Name",
	"Calls/Min",
	"Avg Response Time (ms)",
	"Errors/Min",
	"Error Rate (%)",
	"Health Status",
	"Timestamp",
}

// Format selects an export destination.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatExcel    Format = "excel"
	FormatGreptime Format = "greptime"
)

// ParseFormat accepts csv, excel (or xlsx) and greptime.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "excel", "xlsx":
		return FormatExcel, nil
	case "greptime":
		return FormatGreptime, nil
	}
	return "", fmt.Errorf("unknown export format %q (want csv, excel or greptime)", s)
}

// Ext returns the file extension for file-based formats.
func (f Format) Ext() string {
	switch f {
	case FormatExcel:
		return "xlsx"
	case FormatCSV:
		return "csv"
	}
	return ""
}

// DefaultFilename returns prefix_YYYYmmdd_HHMMSS.ext.
func DefaultFilename(prefix, ext string, t time.Time) string {
	return fmt.Sprintf("%s_%s.%s", prefix, t.Format("20060102_150405"), strings.TrimPrefix(ext, "."))
}

// row renders one sample in column order.
func row(s appd.MetricSample) []string {
	return []string{
		s.ApplicationName,
		formatValue(s.CallsPerMinute),
		formatValue(s.AverageResponseTime),
		formatValue(s.ErrorsPerMinute),
		formatValue(s.ErrorPercentage),
		string(s.HealthStatus),
		s.Timestamp.Format(TimestampLayout),
	}
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
