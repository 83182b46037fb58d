// Package output serializes extraction records into the delivery
// workbook: one row per report year, columns in catalog order, with a
// technical header row and a human sub-header row. Each run writes a
// timestamped folder plus a refreshed latest/ copy.
package output

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"ap2_extraction/pkg/core/reconcile"
	"ap2_extraction/pkg/core/schema"
)

const sheetName = "AP2 Data"

// Result lists the files one run produced.
type Result struct {
	RunDir    string
	XLSXPath  string
	CSVPath   string
	LatestDir string
	FillRate  float64
}

// Writer renders records to disk.
type Writer struct {
	log *zap.Logger
}

// NewWriter creates a writer.
func NewWriter(log *zap.Logger) *Writer {
	return &Writer{log: log}
}

// WriteAll renders every record into one workbook and CSV under
// baseDir/run_<timestamp>/, then mirrors both into baseDir/latest/.
// Records are ordered by year; unresolved fields stay blank.
func (w *Writer) WriteAll(baseDir string, catalog *schema.Catalog, records []*reconcile.Record) (*Result, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("output: nothing to write")
	}

	sorted := make([]*reconcile.Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Year < sorted[j].Year })

	stamp := time.Now().Format("20060102_150405")
	runDir := filepath.Join(baseDir, "run_"+stamp)
	latestDir := filepath.Join(baseDir, "latest")
	for _, dir := range []string{runDir, latestDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("output: create %s: %w", dir, err)
		}
	}

	res := &Result{
		RunDir:    runDir,
		LatestDir: latestDir,
		XLSXPath:  filepath.Join(runDir, "ap2_extraction.xlsx"),
		CSVPath:   filepath.Join(runDir, "ap2_extraction.csv"),
	}

	if err := w.writeXLSX(res.XLSXPath, catalog, sorted); err != nil {
		return nil, err
	}
	if err := w.writeCSV(res.CSVPath, catalog, sorted); err != nil {
		return nil, err
	}
	for _, name := range []string{"ap2_extraction.xlsx", "ap2_extraction.csv"} {
		if err := copyFile(filepath.Join(runDir, name), filepath.Join(latestDir, name)); err != nil {
			return nil, err
		}
	}

	res.FillRate = fillRate(catalog, sorted)
	w.log.Info("output written",
		zap.String("dir", runDir),
		zap.Int("years", len(sorted)),
		zap.Float64("fill_rate", res.FillRate))
	return res, nil
}

func (w *Writer) writeXLSX(path string, catalog *schema.Catalog, records []*reconcile.Record) error {
	f := excelize.NewFile()
	defer f.Close()

	if _, err := f.NewSheet(sheetName); err != nil {
		return fmt.Errorf("output: create sheet: %w", err)
	}
	if idx, err := f.GetSheetIndex(sheetName); err == nil {
		f.SetActiveSheet(idx)
	}
	_ = f.DeleteSheet("Sheet1")

	// Row 1: technical headers, leading cell blank.
	// Row 2: human sub-headers.
	for col, field := range catalog.Fields() {
		cell1, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("output: header cell: %w", err)
		}
		cell2, _ := excelize.CoordinatesToCellName(col+1, 2)
		if !field.FromMetadata {
			if err := f.SetCellValue(sheetName, cell1, field.Header); err != nil {
				return fmt.Errorf("output: set header: %w", err)
			}
			_ = f.SetCellValue(sheetName, cell2, field.Description)
		}
	}

	for ri, rec := range records {
		for col, field := range catalog.Fields() {
			cell, err := excelize.CoordinatesToCellName(col+1, ri+3)
			if err != nil {
				return fmt.Errorf("output: data cell: %w", err)
			}
			if field.FromMetadata {
				_ = f.SetCellValue(sheetName, cell, rec.Year)
				continue
			}
			if v, ok := rec.Value(field.ID); ok {
				if field.Decimal {
					_ = f.SetCellValue(sheetName, cell, v)
				} else {
					_ = f.SetCellValue(sheetName, cell, int64(v))
				}
			}
		}
	}

	_ = f.SetColWidth(sheetName, "A", "A", 10)
	_ = f.SetColWidth(sheetName, "B", "U", 24)

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("output: save workbook: %w", err)
	}
	return nil
}

func (w *Writer) writeCSV(path string, catalog *schema.Catalog, records []*reconcile.Record) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("output: create csv: %w", err)
	}
	defer file.Close()

	cw := csv.NewWriter(file)
	fields := catalog.Fields()

	header := make([]string, len(fields))
	sub := make([]string, len(fields))
	for i, f := range fields {
		if !f.FromMetadata {
			header[i] = f.Header
			sub[i] = f.Description
		}
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("output: write csv header: %w", err)
	}
	if err := cw.Write(sub); err != nil {
		return fmt.Errorf("output: write csv sub-header: %w", err)
	}

	for _, rec := range records {
		row := make([]string, len(fields))
		for i, f := range fields {
			if f.FromMetadata {
				row[i] = strconv.Itoa(rec.Year)
				continue
			}
			if v, ok := rec.Value(f.ID); ok {
				if f.Decimal {
					row[i] = strconv.FormatFloat(v, 'f', 1, 64)
				} else {
					row[i] = strconv.FormatInt(int64(v), 10)
				}
			}
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("output: write csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func fillRate(catalog *schema.Catalog, records []*reconcile.Record) float64 {
	total := 0
	filled := 0
	for _, rec := range records {
		for _, f := range catalog.ValueFields() {
			total++
			if _, ok := rec.Value(f.ID); ok {
				filled++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(filled) / float64(total)
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("output: read %s: %w", src, err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return fmt.Errorf("output: write %s: %w", dst, err)
	}
	return nil
}
