package export

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"perfkit/internal/appd"
)

// SheetName is the worksheet written by WriteExcel.
const SheetName = "AppDynamics Metrics"

const maxColumnWidth = 50

var healthFills = map[appd.HealthStatus]string{
	appd.Healthy:  "C6EFCE",
	appd.Warning:  "FFEB9C",
	appd.Critical: "FFC7CE",
}

// WriteExcel writes a formatted workbook to path. now stamps the footer.
func WriteExcel(path string, samples []appd.MetricSample, now time.Time) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"366092"}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	healthStyles := make(map[appd.HealthStatus]int, len(healthFills))
	for status, color := range healthFills {
		id, err := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}},
		})
		if err != nil {
			return fmt.Errorf("health style: %w", err)
		}
		healthStyles[status] = id
	}

	widths := make([]int, len(Header))
	for col, h := range Header {
		if err := setCell(f, col+1, 1, h, headerStyle); err != nil {
			return err
		}
		widths[col] = len(h)
	}

	for i, s := range samples {
		r := i + 2
		values := []any{
			s.ApplicationName,
			s.CallsPerMinute,
			s.AverageResponseTime,
			s.ErrorsPerMinute,
			s.ErrorPercentage,
			string(s.HealthStatus),
			s.Timestamp.Format(TimestampLayout),
		}
		for col, v := range values {
			style := 0
			if col == 5 {
				style = healthStyles[s.HealthStatus]
			}
			if err := setCell(f, col+1, r, v, style); err != nil {
				return err
			}
		}
		for col, text := range row(s) {
			widths[col] = max(widths[col], len(text))
		}
	}

	for col, w := range widths {
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(SheetName, name, name, float64(min(w+2, maxColumnWidth))); err != nil {
			return fmt.Errorf("column width: %w", err)
		}
	}

	footer, err := excelize.CoordinatesToCellName(1, len(samples)+3)
	if err != nil {
		return err
	}
	if err := f.SetCellValue(SheetName, footer, "Generated: "+now.Format(TimestampLayout)); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func setCell(f *excelize.File, col, row int, v any, style int) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	if err := f.SetCellValue(SheetName, cell, v); err != nil {
		return fmt.Errorf("set %s: %w", cell, err)
	}
	if style != 0 {
		if err := f.SetCellStyle(SheetName, cell, cell, style); err != nil {
			return fmt.Errorf("style %s: %w", cell, err)
		}
	}
	return nil
}
