package followup

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/arludent/assistant/pkg/ai/llm"
	"github.com/arludent/assistant/pkg/logx"
)

// Analyzer grades patient follow-up replies with a JSON-mode completion.
type Analyzer struct {
	llmClient llm.Client
	notifier  *Notifier
	model     string
}

// NewAnalyzer creates an analyzer. notifier may be nil to disable the
// webhook callback.
func NewAnalyzer(client llm.Client, notifier *Notifier, model string) *Analyzer {
	return &Analyzer{
		llmClient: client,
		notifier:  notifier,
		model:     model,
	}
}

// Analyze runs the analysis and dispatches the webhook in the background.
// The webhook never affects the returned verdict.
func (a *Analyzer) Analyze(ctx context.Context, req AnalyzeRequest) (*Verdict, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	logx.WithFields(logx.Fields{
		"followup_id": req.FollowUpID,
		"patient":     req.PatientName,
		"treatment":   req.TreatmentType,
	}).Info("Analyzing follow-up reply")

	messages := []llm.Message{
		llm.NewSystemMessage("Eres un asistente medico especializado en odontologia. Respondes unicamente con JSON valido."),
		llm.NewUserMessage(buildAnalysisPrompt(req)),
	}

	verdict := a.fallbackVerdict(req)

	response, err := a.llmClient.Chat(ctx, messages,
		llm.WithModel(a.model),
		llm.WithTemperature(0.2),
		llm.WithJSONResponse(),
	)
	if err != nil {
		return nil, NewAnalysisFailedError(err)
	}

	if parsed, parseErr := parseVerdict(response.Message.Content); parseErr == nil {
		verdict = parsed
	} else {
		logx.WithFields(logx.Fields{
			"followup_id": req.FollowUpID,
		}).WithError(parseErr).Warn("Model returned invalid JSON, using conservative fallback")
	}

	applyEscalationGuards(verdict, req)

	logx.WithFields(logx.Fields{
		"followup_id":        req.FollowUpID,
		"urgency":            verdict.Urgency,
		"requires_attention": verdict.RequiresAttention,
		"sentiment":          verdict.Sentiment,
	}).Info("Follow-up analysis completed")

	if a.notifier != nil {
		payload := WebhookPayload{
			FollowUpID: req.FollowUpID,
			Verdict:    *verdict,
			Timestamp:  time.Now().UTC(),
		}
		go a.notifier.Notify(payload)
	}

	return verdict, nil
}

func validateRequest(req AnalyzeRequest) error {
	if req.FollowUpID <= 0 {
		return NewInvalidRequestError("seguimiento_id is required")
	}
	if strings.TrimSpace(req.PatientName) == "" {
		return NewInvalidRequestError("paciente_nombre is required")
	}
	if strings.TrimSpace(req.Reply.State) == "" {
		return NewInvalidRequestError("respuesta.estado_paciente is required")
	}
	return nil
}

// parseVerdict decodes the model's JSON answer.
func parseVerdict(content string) (*Verdict, error) {
	var verdict Verdict
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &verdict); err != nil {
		return nil, err
	}
	if verdict.Urgency == "" {
		return nil, fmt.Errorf("verdict missing nivel_urgencia")
	}
	return &verdict, nil
}

// applyEscalationGuards enforces floor rules over the model's verdict:
// a patient reporting "mal" is never left at low urgency, and a long
// symptom description always flags attention.
func applyEscalationGuards(verdict *Verdict, req AnalyzeRequest) {
	state := strings.ToLower(strings.TrimSpace(req.Reply.State))
	if (state == "mal" || state == "bad") && verdict.Urgency == UrgencyLow {
		verdict.Urgency = UrgencyMedium
		verdict.RequiresAttention = true
	}

	if len(req.Reply.Symptoms) > 50 && verdict.Urgency == UrgencyLow {
		verdict.RequiresAttention = true
	}
}

// fallbackVerdict is the conservative result used when the model's
// answer cannot be parsed.
func (a *Analyzer) fallbackVerdict(req AnalyzeRequest) *Verdict {
	return &Verdict{
		Urgency:           UrgencyMedium,
		RequiresAttention: true,
		Sentiment:         SentimentNeutral,
		DetectedSymptoms:  []string{"Requiere revision manual"},
		Recommendation:    "Por favor, revisa manualmente esta respuesta. El analisis automatico no pudo completarse.",
		Summary:           fmt.Sprintf("Paciente %s reporto estado: %s", req.PatientName, req.Reply.State),
		ComplicationOdds:  0.5,
		NeedsUrgentVisit:  req.Reply.WantsReview,
	}
}

func buildAnalysisPrompt(req AnalyzeRequest) string {
	symptoms := req.Reply.Symptoms
	if symptoms == "" {
		symptoms = "Ninguno reportado"
	}
	notes := req.Reply.Notes
	if notes == "" {
		notes = "Ninguna"
	}
	wantsReview := "No"
	if req.Reply.WantsReview {
		wantsReview = "Si"
	}

	var sb strings.Builder

	sb.WriteString("Analiza la siguiente respuesta de seguimiento post-tratamiento dental.\n\n")

	sb.WriteString("INFORMACION DEL PACIENTE\n")
	fmt.Fprintf(&sb, "- Nombre: %s\n", req.PatientName)
	fmt.Fprintf(&sb, "- Tratamiento: %s\n", req.TreatmentType)
	fmt.Fprintf(&sb, "- Dias desde tratamiento: %d\n\n", req.DaysSinceTreatment)

	sb.WriteString("RESPUESTA DEL PACIENTE\n")
	fmt.Fprintf(&sb, "- Estado general reportado: %s\n", req.Reply.State)
	fmt.Fprintf(&sb, "- Sintomas o molestias: %s\n", symptoms)
	fmt.Fprintf(&sb, "- Observaciones adicionales: %s\n", notes)
	fmt.Fprintf(&sb, "- Solicita cita de revision: %s\n\n", wantsReview)

	sb.WriteString("INSTRUCCIONES DE ANALISIS\n")
	sb.WriteString("1. Evalua si hay signos de alarma: infeccion, sangrado excesivo, dolor severo, inflamacion anormal.\n")
	sb.WriteString("2. Clasifica el sentimiento general como positivo, neutral o negativo.\n")
	sb.WriteString("3. Identifica sintomas de riesgo: dolor intenso o que empeora, inflamacion progresiva, " +
		"sangrado persistente, fiebre o malestar general, sensibilidad extrema, problemas de cicatrizacion.\n")
	sb.WriteString("4. Clasifica el nivel de urgencia: alto cuando hay signos de complicacion grave que " +
		"requieren atencion inmediata, medio cuando hay molestias moderadas que requieren seguimiento en " +
		"24-48 horas, bajo cuando la recuperacion es normal.\n")
	sb.WriteString("5. Da una recomendacion clara para la secretaria sobre que accion tomar.\n\n")

	sb.WriteString("Considera que algunas molestias leves son normales en los primeros dias. " +
		"Prioriza la seguridad del paciente: ante la duda, recomienda contacto o revision.\n\n")

	sb.WriteString("Responde en formato JSON con esta estructura exacta:\n")
	sb.WriteString(`{
  "nivel_urgencia": "bajo|medio|alto",
  "requiere_atencion": true,
  "sentimiento_general": "positivo|neutral|negativo",
  "sintomas_detectados": ["lista", "de", "sintomas"],
  "recomendacion": "texto con recomendacion clara",
  "resumen": "resumen ejecutivo en 1-2 lineas",
  "probabilidad_complicacion": 0.5,
  "necesita_cita_urgente": false
}`)

	return sb.String()
}
