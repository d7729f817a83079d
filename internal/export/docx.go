package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/gomutex/godocx"
	"github.com/gomutex/godocx/docx"
	"github.com/gomutex/godocx/wml/ctypes"
	"github.com/gomutex/godocx/wml/stypes"

	"github.com/kingrea/field-audit/internal/audit"
)

const memoDateLayout = "02/01/2006"

// A4 landscape in twips, 1.27cm margins.
const (
	pageWidth  uint64 = 16838
	pageHeight uint64 = 11906
	pageMargin        = 720
)

// span is a run of text with uniform formatting. Size is in points.
type span struct {
	text  string
	bold  bool
	size  uint64
	color string
}

// WriteDOCX writes the report as a landscape memo: organisation banner,
// routing block and the findings table.
func WriteDOCX(w io.Writer, report audit.SavedReport, organization string) error {
	doc, err := godocx.NewDocument()
	if err != nil {
		return fmt.Errorf("export: docx template: %w", err)
	}

	addParagraph(doc, 400, span{text: organization, bold: true, size: 12, color: "0070C0"})
	addParagraph(doc, 300, span{text: strings.TrimSpace(report.DocCode + " INFORME"), bold: true, size: 10})
	addMemoLine(doc, "A", report.To, false)
	addMemoLine(doc, "At.", report.At, false)
	addMemoLine(doc, "Cc.", report.Cc, false)
	addParagraph(doc, 200)
	addMemoLine(doc, "De", report.From, false)
	addMemoLine(doc, "Fecha", report.Timestamp.Local().Format(memoDateLayout), false)
	addParagraph(doc, 200)
	addMemoLine(doc, "Asunto", report.Subject, true)
	addMemoLine(doc, "Calificación", report.GlobalRating, true)
	addParagraph(doc, 400, span{text: strings.Repeat("-", 128), size: 8})
	addParagraph(doc, 300, span{text: "5. Resultados de la Evaluación", bold: true, size: 12})
	addParagraph(doc, 400, span{text: "Tras evaluar los riesgos y ejecutar los procedimientos de auditoría, se concluye lo siguiente:", size: 9})
	addFindingsTable(doc, report)
	setLandscape(doc)

	if err := doc.Write(w); err != nil {
		return fmt.Errorf("export: docx write: %w", err)
	}
	return nil
}

func setLandscape(doc *docx.RootDoc) {
	width, height := pageWidth, pageHeight
	margin, header := pageMargin, 708
	gutter := 0
	doc.Document.Body.SectPr = &ctypes.SectionProp{
		PageSize: &ctypes.PageSize{Width: &width, Height: &height, Orient: stypes.PageOrientLandscape},
		PageMargin: &ctypes.PageMargin{
			Top: &margin, Right: &margin, Bottom: &margin, Left: &margin,
			Header: &header, Footer: &header, Gutter: &gutter,
		},
	}
}

func addMemoLine(doc *docx.RootDoc, label, value string, bold bool) {
	addParagraph(doc, 100,
		span{text: fmt.Sprintf("%-10s: ", label), bold: true, size: 10},
		span{text: value, bold: bold, size: 10},
	)
}

func addParagraph(doc *docx.RootDoc, after uint64, spans ...span) {
	p := doc.AddEmptyParagraph()
	p.Spacing(0, after)
	p.Justification(stypes.JustificationLeft)
	addSpans(p, spans...)
}

// addSpans appends the spans to p, turning embedded newlines into line
// breaks.
func addSpans(p *docx.Paragraph, spans ...span) {
	for _, s := range spans {
		var r *docx.Run
		for i, line := range strings.Split(s.text, "\n") {
			if i > 0 {
				r.AddBreak(nil)
			}
			r = p.AddText(line)
			if s.bold {
				r.Bold(true)
			}
			if s.color != "" {
				r.Color(s.color)
			}
			if s.size > 0 {
				r.Size(s.size)
			}
		}
	}
}

func addFindingsTable(doc *docx.RootDoc, report audit.SavedReport) {
	tbl := doc.AddTable()
	tbl.Width(5000, stypes.TableWidthPct)
	line := func() *ctypes.Border { return ctypes.NewCellBorder(stypes.BorderStyleSingle, "000000", "0", 4) }
	tbl.GetCT().TableProp.Borders = &ctypes.TableBorders{
		Top: line(), Left: line(), Bottom: line(), Right: line(),
		InsideH: line(), InsideV: line(),
	}

	header := tbl.AddRow()
	for _, heading := range Columns {
		addCell(header, "0070C0", stypes.JustificationCenter, span{text: heading, bold: true, size: 8, color: "FFFFFF"})
	}

	for i, row := range rows(report) {
		rating := report.Findings[i].Rating
		tr := tbl.AddRow()
		for col, text := range row {
			s := span{text: text, size: 7, color: "000000"}
			fill, align := "", stypes.JustificationLeft
			switch {
			case col == ratingColumn:
				s.bold = true
				s.color = ratingTextColor(rating)
				fill, align = RatingColor(rating), stypes.JustificationCenter
			case col == 0 || col >= 7:
				align = stypes.JustificationCenter
			}
			addCell(tr, fill, align, s)
		}
	}
}

func addCell(row *docx.Row, fill string, align stypes.Justification, s span) {
	cell := row.AddCell().VerticalAlign("center")
	if fill != "" {
		cell.BackgroundColor(fill)
	}
	p := cell.AddEmptyPara()
	p.Spacing(0, 0)
	p.Justification(align)
	addSpans(p, s)
}
