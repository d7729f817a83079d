// Package export renders a saved report as a spreadsheet or a Word memo.
// Both formats share the same nine-column findings table.
package export

import (
	"strconv"

	"github.com/kingrea/field-audit/internal/audit"
)

// Columns are the findings table headings, in output order.
var Columns = []string{
	"N°",
	"Observación",
	"Descripción del hallazgo",
	"Riesgos evaluados",
	"Calificación",
	"Recomendaciones de auditoría interna",
	"Planes de acción",
	"Responsables",
	"Fecha de implementación",
}

// ColumnWidths are the spreadsheet widths of Columns, in characters.
var ColumnWidths = []float64{4, 40, 30, 30, 15, 40, 30, 20, 15}

const ratingColumn = 4

const defaultRatingColor = "D9D9D9"

// RatingColor returns the fill used for a rating cell.
func RatingColor(r audit.Rating) string {
	switch r {
	case audit.RatingCritical:
		return "FF0000"
	case audit.RatingHigh:
		return "FFC000"
	case audit.RatingMedium:
		return "FFFF00"
	case audit.RatingLow:
		return "00B0F0"
	default:
		return defaultRatingColor
	}
}

// ratingTextColor keeps rating labels readable on their fill.
func ratingTextColor(r audit.Rating) string {
	switch r {
	case audit.RatingCritical, audit.RatingHigh, audit.RatingLow:
		return "FFFFFF"
	default:
		return "000000"
	}
}

// rows flattens the findings into table rows numbered from 1.
func rows(report audit.SavedReport) [][]string {
	out := make([][]string, len(report.Findings))
	for i, f := range report.Findings {
		out[i] = []string{
			strconv.Itoa(i + 1),
			f.Condition,
			f.Title,
			f.Effect,
			string(f.Rating),
			f.Recommendations,
			f.ActionPlans,
			f.Responsible,
			f.ImplementationDate,
		}
	}
	return out
}
