package generator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/genai"

	"github.com/kingrea/field-audit/internal/audit"
)

// contentModel is the slice of the genai client the generators use.
type contentModel interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiConfig selects models and image handling for Gemini.
type GeminiConfig struct {
	APIKey       string
	ReportModel  string
	PlanModel    string
	MaxImagePx   int
	Organization string
}

// Gemini implements ReportGenerator and PlanGenerator on the Gemini API.
type Gemini struct {
	cfg    GeminiConfig
	models contentModel
	log    logrus.FieldLogger
	now    func() time.Time
}

// GeminiOption customizes a Gemini generator.
type GeminiOption func(*Gemini)

// WithLogger routes generator diagnostics to log.
func WithLogger(log logrus.FieldLogger) GeminiOption {
	return func(g *Gemini) {
		if log != nil {
			g.log = log
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) GeminiOption {
	return func(g *Gemini) {
		if now != nil {
			g.now = now
		}
	}
}

func withModel(m contentModel) GeminiOption {
	return func(g *Gemini) { g.models = m }
}

// NewGemini builds a generator. Without an API key the generator is still
// returned; every call then fails with ErrMissingCredential.
func NewGemini(ctx context.Context, cfg GeminiConfig, opts ...GeminiOption) (*Gemini, error) {
	g := &Gemini{
		cfg: cfg,
		log: logrus.StandardLogger(),
		now: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(g)
	}
	g.log = g.log.WithField("component", "generator")
	if g.models == nil && strings.TrimSpace(cfg.APIKey) != "" {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  cfg.APIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("generator: gemini client: %w", err)
		}
		g.models = client.Models
	}
	return g, nil
}

// GenerateReport sends the observation batch, text first and then every photo
// in order, and decodes the structured reply.
func (g *Gemini) GenerateReport(ctx context.Context, req ReportRequest) (audit.SavedReport, error) {
	if g.models == nil {
		return audit.SavedReport{}, ErrMissingCredential
	}
	if len(req.Observations) == 0 {
		return audit.SavedReport{}, ErrNoObservations
	}
	images, err := prepareImages(ctx, req.Observations, g.cfg.MaxImagePx)
	if err != nil {
		return audit.SavedReport{}, err
	}
	parts := []*genai.Part{genai.NewPartFromText(reportPrompt(req.Observations))}
	for _, img := range images {
		parts = append(parts, genai.NewPartFromBytes(img.Data, img.MIMEType))
	}

	log := g.log.WithFields(logrus.Fields{
		"model":        g.cfg.ReportModel,
		"observations": len(req.Observations),
		"images":       len(images),
	})
	log.Info("requesting report")
	started := g.now()
	resp, err := g.models.GenerateContent(ctx, g.cfg.ReportModel,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)},
		&genai.GenerateContentConfig{
			SystemInstruction: systemContent(reportSystemPrompt(g.cfg.Organization)),
			ResponseMIMEType:  "application/json",
			ResponseSchema:    reportSchema(),
		})
	if err != nil {
		log.WithError(err).Error("report request failed")
		return audit.SavedReport{}, fmt.Errorf("generator: report request: %w", err)
	}
	report, err := decodeReport(resp.Text(), req.Observations, g.now())
	if err != nil {
		log.WithError(err).Warn("report response rejected")
		return audit.SavedReport{}, err
	}
	checkReportContract(log, report)
	log.WithFields(logrus.Fields{"report": report.ID, "elapsed": g.now().Sub(started).String()}).Info("report drafted")
	return report, nil
}

// GeneratePlan asks for a COSO-based plan for the named process.
func (g *Gemini) GeneratePlan(ctx context.Context, req PlanRequest) (PlanDraft, error) {
	if strings.TrimSpace(req.Process) == "" {
		return PlanDraft{}, ErrProcessRequired
	}
	if g.models == nil {
		return PlanDraft{}, ErrMissingCredential
	}
	log := g.log.WithFields(logrus.Fields{"model": g.cfg.PlanModel, "process": req.Process})
	log.Info("requesting plan")
	resp, err := g.models.GenerateContent(ctx, g.cfg.PlanModel,
		genai.Text(planPrompt(req)),
		&genai.GenerateContentConfig{
			SystemInstruction: systemContent(planSystemPrompt()),
			ResponseMIMEType:  "application/json",
			ResponseSchema:    planSchema(),
		})
	if err != nil {
		log.WithError(err).Error("plan request failed")
		return PlanDraft{}, fmt.Errorf("generator: plan request: %w", err)
	}
	draft, err := decodePlan(resp.Text())
	if err != nil {
		log.WithError(err).Warn("plan response rejected")
		return PlanDraft{}, err
	}
	log.WithField("items", len(draft.Items)).Info("plan drafted")
	return draft, nil
}

// checkReportContract logs citation and list-shape problems. The report is
// still returned; the auditor reviews it before export.
func checkReportContract(log logrus.FieldLogger, report audit.SavedReport) int {
	problems := 0
	if err := audit.CheckAnnexScope(report); err != nil {
		log.WithError(err).Warn("report cites annexes outside their finding")
		problems++
	}
	for i, f := range report.Findings {
		if err := audit.CheckItemization(f); err != nil {
			log.WithError(err).WithField("finding", i+1).Warn("finding lists are uneven")
			problems++
		}
	}
	return problems
}

func systemContent(text string) *genai.Content {
	return &genai.Content{Parts: []*genai.Part{genai.NewPartFromText(text)}}
}

func ratingLabels() []string {
	labels := make([]string, len(audit.Ratings))
	for i, r := range audit.Ratings {
		labels[i] = string(r)
	}
	return labels
}

func reportSchema() *genai.Schema {
	str := func() *genai.Schema { return &genai.Schema{Type: genai.TypeString} }
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"docCode":      str(),
			"to":           str(),
			"at":           str(),
			"cc":           str(),
			"from":         str(),
			"subject":      str(),
			"globalRating": str(),
			"findings": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"condition":          str(),
						"title":              str(),
						"effect":             str(),
						"rating":             {Type: genai.TypeString, Enum: ratingLabels()},
						"recommendations":    str(),
						"actionPlans":        str(),
						"responsible":        str(),
						"implementationDate": str(),
					},
					Required: []string{"condition", "title", "effect", "rating", "recommendations", "actionPlans", "responsible", "implementationDate"},
				},
			},
		},
		Required: []string{"docCode", "to", "subject", "globalRating", "findings"},
	}
}

func planSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"overallObjective": {Type: genai.TypeString},
			"items": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"id":          {Type: genai.TypeString},
						"title":       {Type: genai.TypeString},
						"description": {Type: genai.TypeString},
						"category": {
							Type: genai.TypeString,
							Enum: []string{string(audit.CategoryRisk), string(audit.CategoryFraud), string(audit.CategorySampling)},
						},
						"probability": {Type: genai.TypeInteger, Description: "Probabilidad del 1 al 5"},
						"impact":      {Type: genai.TypeInteger, Description: "Impacto del 1 al 5"},
						"logic":       {Type: genai.TypeString, Description: "Justificación técnica del muestreo o de la lógica de riesgo (95% de confianza)"},
					},
					Required: []string{"id", "title", "description", "category"},
				},
			},
		},
		Required: []string{"overallObjective", "items"},
	}
}
