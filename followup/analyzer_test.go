package followup

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arludent/assistant/pkg/ai/llm"
	"github.com/arludent/assistant/pkg/errx"
)

// jsonProvider answers every completion with a fixed body, recording the
// applied options.
type jsonProvider struct {
	content string
	err     error
	opts    llm.Options
	prompt  string
}

func (p *jsonProvider) Chat(ctx context.Context, messages []llm.Message, opts ...llm.Option) (*llm.Response, error) {
	p.opts = llm.ApplyOptions(opts...)
	if len(messages) > 0 {
		p.prompt = messages[len(messages)-1].Content
	}
	if p.err != nil {
		return nil, p.err
	}
	return &llm.Response{Message: llm.NewAssistantMessage(p.content)}, nil
}

func (p *jsonProvider) ChatStream(ctx context.Context, messages []llm.Message, opts ...llm.Option) (llm.Stream, error) {
	panic("not used")
}

func baseRequest() AnalyzeRequest {
	return AnalyzeRequest{
		FollowUpID:         15,
		PatientName:        "Maria Quispe",
		TreatmentType:      "Extraccion",
		DaysSinceTreatment: 2,
		Reply: PatientReply{
			State: "bien",
		},
	}
}

const okVerdict = `{
	"nivel_urgencia": "bajo",
	"requiere_atencion": false,
	"sentimiento_general": "positivo",
	"sintomas_detectados": [],
	"recomendacion": "Recuperacion normal, sin accion necesaria.",
	"resumen": "El paciente evoluciona bien.",
	"probabilidad_complicacion": 0.1,
	"necesita_cita_urgente": false
}`

func TestAnalyze_ParsesModelVerdict(t *testing.T) {
	provider := &jsonProvider{content: okVerdict}
	analyzer := NewAnalyzer(llm.NewClient(provider), nil, "gpt-4o-mini")

	verdict, err := analyzer.Analyze(context.Background(), baseRequest())
	require.NoError(t, err)

	assert.Equal(t, UrgencyLow, verdict.Urgency)
	assert.False(t, verdict.RequiresAttention)
	assert.Equal(t, SentimentPositive, verdict.Sentiment)
	assert.InDelta(t, 0.1, verdict.ComplicationOdds, 0.001)
}

func TestAnalyze_RequestsJSONModeWithLowTemperature(t *testing.T) {
	provider := &jsonProvider{content: okVerdict}
	analyzer := NewAnalyzer(llm.NewClient(provider), nil, "gpt-4o-mini")

	_, err := analyzer.Analyze(context.Background(), baseRequest())
	require.NoError(t, err)

	assert.True(t, provider.opts.JSONResponse)
	assert.Equal(t, "gpt-4o-mini", provider.opts.Model)
	require.NotNil(t, provider.opts.Temperature)
	assert.InDelta(t, 0.2, *provider.opts.Temperature, 0.001)
}

func TestAnalyze_PromptCarriesPatientReply(t *testing.T) {
	provider := &jsonProvider{content: okVerdict}
	analyzer := NewAnalyzer(llm.NewClient(provider), nil, "gpt-4o-mini")

	req := baseRequest()
	req.Reply.Symptoms = "dolor leve en la zona"
	req.Reply.WantsReview = true

	_, err := analyzer.Analyze(context.Background(), req)
	require.NoError(t, err)

	assert.Contains(t, provider.prompt, "Maria Quispe")
	assert.Contains(t, provider.prompt, "Extraccion")
	assert.Contains(t, provider.prompt, "dolor leve en la zona")
	assert.Contains(t, provider.prompt, "Solicita cita de revision: Si")
	assert.Contains(t, provider.prompt, "nivel_urgencia")
}

func TestAnalyze_EscalatesBadStateFromLow(t *testing.T) {
	provider := &jsonProvider{content: okVerdict}
	analyzer := NewAnalyzer(llm.NewClient(provider), nil, "gpt-4o-mini")

	req := baseRequest()
	req.Reply.State = "mal"

	verdict, err := analyzer.Analyze(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, UrgencyMedium, verdict.Urgency)
	assert.True(t, verdict.RequiresAttention)
}

func TestAnalyze_LongSymptomsForceAttention(t *testing.T) {
	provider := &jsonProvider{content: okVerdict}
	analyzer := NewAnalyzer(llm.NewClient(provider), nil, "gpt-4o-mini")

	req := baseRequest()
	req.Reply.Symptoms = strings.Repeat("dolor punzante intermitente ", 3)

	verdict, err := analyzer.Analyze(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, UrgencyLow, verdict.Urgency)
	assert.True(t, verdict.RequiresAttention)
}

func TestAnalyze_HighUrgencyNotDowngraded(t *testing.T) {
	high := strings.Replace(okVerdict, `"bajo"`, `"alto"`, 1)
	provider := &jsonProvider{content: high}
	analyzer := NewAnalyzer(llm.NewClient(provider), nil, "gpt-4o-mini")

	req := baseRequest()
	req.Reply.State = "mal"

	verdict, err := analyzer.Analyze(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, UrgencyHigh, verdict.Urgency)
}

func TestAnalyze_InvalidJSONFallsBackConservative(t *testing.T) {
	provider := &jsonProvider{content: "no soy json"}
	analyzer := NewAnalyzer(llm.NewClient(provider), nil, "gpt-4o-mini")

	req := baseRequest()
	req.Reply.WantsReview = true

	verdict, err := analyzer.Analyze(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, UrgencyMedium, verdict.Urgency)
	assert.True(t, verdict.RequiresAttention)
	assert.Equal(t, SentimentNeutral, verdict.Sentiment)
	assert.InDelta(t, 0.5, verdict.ComplicationOdds, 0.001)
	assert.True(t, verdict.NeedsUrgentVisit)
	assert.Contains(t, verdict.Summary, "Maria Quispe")
}

func TestAnalyze_MissingUrgencyTreatedAsInvalid(t *testing.T) {
	provider := &jsonProvider{content: `{"resumen": "sin nivel"}`}
	analyzer := NewAnalyzer(llm.NewClient(provider), nil, "gpt-4o-mini")

	verdict, err := analyzer.Analyze(context.Background(), baseRequest())
	require.NoError(t, err)

	assert.Equal(t, UrgencyMedium, verdict.Urgency)
	assert.True(t, verdict.RequiresAttention)
}

func TestAnalyze_ProviderErrorSurfaces(t *testing.T) {
	provider := &jsonProvider{err: errors.New("boom")}
	analyzer := NewAnalyzer(llm.NewClient(provider), nil, "gpt-4o-mini")

	_, err := analyzer.Analyze(context.Background(), baseRequest())
	require.Error(t, err)

	var e *errx.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, 500, e.HTTPStatus)
}

func TestAnalyze_Validation(t *testing.T) {
	analyzer := NewAnalyzer(llm.NewClient(&jsonProvider{content: okVerdict}), nil, "gpt-4o-mini")
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*AnalyzeRequest)
	}{
		{"missing followup id", func(r *AnalyzeRequest) { r.FollowUpID = 0 }},
		{"missing patient name", func(r *AnalyzeRequest) { r.PatientName = "  " }},
		{"missing patient state", func(r *AnalyzeRequest) { r.Reply.State = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := baseRequest()
			tc.mutate(&req)

			_, err := analyzer.Analyze(ctx, req)
			require.Error(t, err)

			var e *errx.Error
			require.True(t, errors.As(err, &e))
			assert.Equal(t, 400, e.HTTPStatus)
		})
	}
}
