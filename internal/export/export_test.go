package export

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/kingrea/field-audit/internal/audit"
)

func sampleReport() audit.SavedReport {
	return audit.SavedReport{
		ID: "r-42",
		ReportHeader: audit.ReportHeader{
			DocCode:      "IA-2025-014",
			To:           "Gerencia de Planta",
			At:           "Jefatura HSE",
			From:         "Auditoría Interna",
			Subject:      "Inspección de seguridad & orden",
			GlobalRating: "Requiere mejoras",
		},
		Title:     "Inspección de seguridad & orden",
		Timestamp: time.Date(2025, 6, 9, 12, 0, 0, 0, time.UTC),
		Observations: []audit.Observation{
			{ID: "o1", Description: "extintor"},
			{ID: "o2", Description: "tablero"},
		},
		Findings: []audit.AuditFinding{
			{Condition: "Extintor obstruido", Title: "Obstruido (Ver Anexo 1.1)", Effect: "Incendio / demora", Rating: audit.RatingCritical,
				Recommendations: "a) Despejar\n\nb) Señalizar", Responsible: "a) Planta\n\nb) HSE", ImplementationDate: "a) 30/06\n\nb) 15/07"},
			{Condition: "Tablero abierto", Title: "Sin tapa <riesgo>", Effect: "Electrocución", Rating: audit.RatingMedium,
				Recommendations: "a) Cerrar", Responsible: "a) Mantenimiento", ImplementationDate: "a) 20/06"},
		},
	}
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, sampleReport()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())
	got, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, Columns, got[0])
	assert.Equal(t, "1", got[1][0])
	assert.Equal(t, "Extintor obstruido", got[1][1])
	assert.Equal(t, "Crítica", got[1][4])
	assert.Equal(t, "a) Despejar\n\nb) Señalizar", got[1][5])
	assert.Equal(t, "2", got[2][0])
	assert.Equal(t, "Media", got[2][4])

	for i, want := range ColumnWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		width, err := f.GetColWidth(SheetName, col)
		require.NoError(t, err)
		assert.InDelta(t, want, width, 0.01, "column %s", col)
	}

	styleID, err := f.GetCellStyle(SheetName, "E2")
	require.NoError(t, err)
	style, err := f.GetStyle(styleID)
	require.NoError(t, err)
	require.NotEmpty(t, style.Fill.Color)
	assert.True(t, strings.HasSuffix(strings.ToUpper(style.Fill.Color[0]), "FF0000"), "rating fill %v", style.Fill.Color)
}

func readDocument(t *testing.T, data []byte) string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	names := map[string]*zip.File{}
	for _, f := range zr.File {
		names[f.Name] = f
	}
	for _, required := range []string{"[Content_Types].xml", "_rels/.rels", "word/document.xml"} {
		require.Contains(t, names, required)
	}
	rc, err := names["word/document.xml"].Open()
	require.NoError(t, err)
	defer rc.Close()
	doc, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(doc)
}

func TestWriteDOCX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteDOCX(&buf, sampleReport(), "PESQUERA EXALMAR S.A.A."))
	doc := readDocument(t, buf.Bytes())

	dec := xml.NewDecoder(strings.NewReader(doc))
	for {
		_, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err, "document.xml must be well formed")
	}

	assert.Contains(t, doc, "PESQUERA EXALMAR S.A.A.")
	assert.Contains(t, doc, "IA-2025-014 INFORME")
	assert.Contains(t, doc, "Inspección de seguridad &amp; orden")
	assert.Contains(t, doc, "Sin tapa &lt;riesgo&gt;")
	assert.Contains(t, doc, "5. Resultados de la Evaluación")
	assert.Contains(t, doc, `w:orient="landscape"`)
	assert.Contains(t, doc, `w:fill="0070C0"`)
	assert.Contains(t, doc, `w:fill="FF0000"`)
	assert.Contains(t, doc, `w:fill="FFFF00"`)
	assert.Contains(t, doc, "09/06/2025")
	for _, heading := range Columns {
		assert.Contains(t, doc, heading)
	}
	assert.Contains(t, doc, "a) Despejar</w:t><w:br", "list items keep their line breaks")
}

func TestRatingColor(t *testing.T) {
	assert.Equal(t, "FF0000", RatingColor(audit.RatingCritical))
	assert.Equal(t, "FFC000", RatingColor(audit.RatingHigh))
	assert.Equal(t, "FFFF00", RatingColor(audit.RatingMedium))
	assert.Equal(t, "00B0F0", RatingColor(audit.RatingLow))
	assert.Equal(t, "D9D9D9", RatingColor(""))
}

func TestExporterWritesNamedFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	logger, hook := test.NewNullLogger()
	e := NewExporter(dir, "ACME", logger)
	report := sampleReport()

	xlsxPath, err := e.Export(report, FormatXLSX)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Audit_r-42.xlsx"), xlsxPath)

	docxPath, err := e.Export(report, FormatDOCX)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Report_r-42.docx"), docxPath)

	for _, p := range []string{xlsxPath, docxPath} {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}
	assert.Len(t, hook.AllEntries(), 2)

	_, err = e.Export(report, Format("pdf"))
	assert.Error(t, err)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("Excel")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)
	f, err = ParseFormat("word")
	require.NoError(t, err)
	assert.Equal(t, FormatDOCX, f)
	_, err = ParseFormat("pdf")
	assert.Error(t, err)
}
