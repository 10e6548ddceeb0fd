// Package followup analyzes patients' post-treatment follow-up replies
// and notifies the clinic backend with the verdict.
package followup

import "time"

// Urgency levels for a follow-up verdict.
const (
	UrgencyLow    = "bajo"
	UrgencyMedium = "medio"
	UrgencyHigh   = "alto"
)

// Sentiment labels for a follow-up verdict.
const (
	SentimentPositive = "positivo"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negativo"
)

// PatientReply is what the patient answered to the follow-up message.
type PatientReply struct {
	State       string `json:"estado_paciente"`
	Symptoms    string `json:"sintomas_reportados,omitempty"`
	Notes       string `json:"observaciones_paciente,omitempty"`
	WantsReview bool   `json:"necesita_revision"`
}

// AnalyzeRequest carries one follow-up to analyze.
type AnalyzeRequest struct {
	FollowUpID         int          `json:"seguimiento_id"`
	PatientName        string       `json:"paciente_nombre"`
	TreatmentType      string       `json:"tipo_tratamiento"`
	DaysSinceTreatment int          `json:"dias_desde_tratamiento"`
	Reply              PatientReply `json:"respuesta"`
}

// Verdict is the structured analysis of a patient reply.
type Verdict struct {
	Urgency           string   `json:"nivel_urgencia"`
	RequiresAttention bool     `json:"requiere_atencion"`
	Sentiment         string   `json:"sentimiento_general"`
	DetectedSymptoms  []string `json:"sintomas_detectados"`
	Recommendation    string   `json:"recomendacion"`
	Summary           string   `json:"resumen"`
	ComplicationOdds  float64  `json:"probabilidad_complicacion"`
	NeedsUrgentVisit  bool     `json:"necesita_cita_urgente"`
}

// WebhookPayload is what gets posted to the clinic backend after an
// analysis completes.
type WebhookPayload struct {
	FollowUpID int       `json:"seguimiento_id"`
	Verdict    Verdict   `json:"analisis"`
	Timestamp  time.Time `json:"timestamp"`
}
