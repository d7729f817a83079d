package export

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/kingrea/field-audit/internal/audit"
)

// Format is an export file type.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatDOCX Format = "docx"
)

// ParseFormat accepts "xlsx"/"excel" and "docx"/"word".
func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "xlsx", "excel":
		return FormatXLSX, nil
	case "docx", "word":
		return FormatDOCX, nil
	}
	return "", fmt.Errorf("export: unknown format %q", value)
}

// FileName returns the export file name for a report.
func FileName(report audit.SavedReport, format Format) string {
	if format == FormatDOCX {
		return "Report_" + report.ID + ".docx"
	}
	return "Audit_" + report.ID + ".xlsx"
}

// Exporter writes report files into a directory.
type Exporter struct {
	dir          string
	organization string
	log          logrus.FieldLogger
}

// NewExporter returns an exporter writing into dir. organization heads
// every memo.
func NewExporter(dir, organization string, log logrus.FieldLogger) *Exporter {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Exporter{dir: dir, organization: organization, log: log.WithField("component", "export")}
}

// Export renders report in format and returns the written path. The file is
// only created once rendering succeeded.
func (e *Exporter) Export(report audit.SavedReport, format Format) (string, error) {
	var buf bytes.Buffer
	var err error
	switch format {
	case FormatXLSX:
		err = WriteXLSX(&buf, report)
	case FormatDOCX:
		err = WriteDOCX(&buf, report, e.organization)
	default:
		return "", fmt.Errorf("export: unknown format %q", format)
	}
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("export: ensure dir: %w", err)
	}
	path := filepath.Join(e.dir, FileName(report, format))
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("export: write %s: %w", path, err)
	}
	e.log.WithFields(logrus.Fields{"report": report.ID, "format": string(format), "path": path}).Info("report exported")
	return path, nil
}
