package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/arludent/assistant/backend"
	"github.com/arludent/assistant/pkg/ai/llm"
	"github.com/arludent/assistant/pkg/logx"
)

// ValidateDoctorTool verifies a doctor ID before using it for booking.
type ValidateDoctorTool struct {
	client *backend.Client
}

func NewValidateDoctorTool(client *backend.Client) *ValidateDoctorTool {
	return &ValidateDoctorTool{client: client}
}

func (t *ValidateDoctorTool) Name() string { return "validate_doctor" }

func (t *ValidateDoctorTool) GetTool() llm.Tool {
	return llm.Tool{
		Type: "function",
		Function: llm.ToolFunction{
			Name: t.Name(),
			Description: "Valida que un medico existe y esta disponible. Usar antes de registrar " +
				"una cita para confirmar que el ID del medico es valido.",
			Parameters: objectSchema(map[string]any{
				"doctor_id": map[string]any{"type": "integer", "description": "ID del medico a validar"},
			}, "doctor_id"),
		},
	}
}

func (t *ValidateDoctorTool) Call(ctx context.Context, inputs string) (any, error) {
	var args struct {
		DoctorID int `json:"doctor_id"`
	}
	if err := decodeArgs(inputs, &args); err != nil {
		return nil, err
	}
	if args.DoctorID <= 0 {
		return "Debes proporcionar el ID del medico.", nil
	}

	logx.WithField("doctor_id", args.DoctorID).Info("Validating doctor")

	doctor, err := t.client.GetDoctor(ctx, args.DoctorID)
	if err != nil {
		return fmt.Sprintf("El medico con ID %d no existe o no esta disponible. Usa list_doctors para ver medicos validos.", args.DoctorID), nil
	}

	var sb strings.Builder
	sb.WriteString("Medico valido:\n")
	fmt.Fprintf(&sb, "- ID: %d\n", doctor.ID)
	fmt.Fprintf(&sb, "- Nombre: Dr(a). %s %s\n", doctor.FirstName, doctor.LastName)
	fmt.Fprintf(&sb, "- Especialidad: %s\n", orDefault(doctor.Specialty, "General"))
	fmt.Fprintf(&sb, "- Colegiatura: %s\n", orDefault(doctor.License, "No disponible"))
	sb.WriteString("Este medico puede ser usado para agendar citas.")

	return sb.String(), nil
}

// IdentifyUserTool tells whether a user is an active patient or first-time
// visitor, and who treated them last.
type IdentifyUserTool struct {
	client *backend.Client
}

func NewIdentifyUserTool(client *backend.Client) *IdentifyUserTool {
	return &IdentifyUserTool{client: client}
}

func (t *IdentifyUserTool) Name() string { return "identify_user" }

func (t *IdentifyUserTool) GetTool() llm.Tool {
	return llm.Tool{
		Type: "function",
		Function: llm.ToolFunction{
			Name: t.Name(),
			Description: "Determina si el usuario es paciente activo con historial o usuario externo " +
				"(primera vez). Usar al inicio del flujo de agendamiento: al paciente activo se le " +
				"asigna su ultimo medico, al usuario externo el medico de cabecera.",
			Parameters: objectSchema(map[string]any{
				"user_id": map[string]any{"type": "integer", "description": "ID del usuario a verificar"},
			}, "user_id"),
		},
	}
}

func (t *IdentifyUserTool) Call(ctx context.Context, inputs string) (any, error) {
	var args struct {
		UserID int `json:"user_id"`
	}
	if err := decodeArgs(inputs, &args); err != nil {
		return nil, err
	}
	if args.UserID <= 0 {
		return "Debes proporcionar el ID del usuario.", nil
	}

	logx.WithField("user_id", args.UserID).Info("Identifying user type")

	userType, err := t.client.GetUserType(ctx, args.UserID)
	if err != nil {
		return fmt.Sprintf("No se pudo determinar el tipo de usuario: %v", err), nil
	}

	if !userType.IsActivePatient {
		return fmt.Sprintf("Usuario es EXTERNO (primera vez): %s. Debe asignarse medico de cabecera.", userType.FullName), nil
	}

	msg := fmt.Sprintf("Usuario es PACIENTE ACTIVO: %s", userType.FullName)
	if userType.LastDoctor != nil {
		msg += fmt.Sprintf("\nUltimo medico: Dr(a). %s %s (%s)",
			userType.LastDoctor.FirstName, userType.LastDoctor.LastName, userType.LastDoctor.Specialty)
	}
	return msg, nil
}

// SuggestTimeSlotsTool finds alternative slots when the requested time is
// taken.
type SuggestTimeSlotsTool struct {
	client *backend.Client
}

func NewSuggestTimeSlotsTool(client *backend.Client) *SuggestTimeSlotsTool {
	return &SuggestTimeSlotsTool{client: client}
}

func (t *SuggestTimeSlotsTool) Name() string { return "suggest_time_slots" }

func (t *SuggestTimeSlotsTool) GetTool() llm.Tool {
	return llm.Tool{
		Type: "function",
		Function: llm.ToolFunction{
			Name: t.Name(),
			Description: "Sugiere horarios alternativos disponibles de un medico en un rango de " +
				"fechas. Usar cuando el horario solicitado esta ocupado o el usuario pregunta que " +
				"horarios hay disponibles.",
			Parameters: objectSchema(map[string]any{
				"doctor_id":        map[string]any{"type": "integer", "description": "ID del medico"},
				"start_date":       map[string]any{"type": "string", "description": "Fecha de inicio YYYY-MM-DD"},
				"end_date":         map[string]any{"type": "string", "description": "Fecha fin opcional, por defecto +7 dias"},
				"duration_minutes": map[string]any{"type": "integer", "description": "Duracion de la cita en minutos"},
				"limit":            map[string]any{"type": "integer", "description": "Cantidad de horarios a sugerir"},
			}, "doctor_id", "start_date"),
		},
	}
}

func (t *SuggestTimeSlotsTool) Call(ctx context.Context, inputs string) (any, error) {
	var args struct {
		DoctorID        int    `json:"doctor_id"`
		StartDate       string `json:"start_date"`
		EndDate         string `json:"end_date"`
		DurationMinutes int    `json:"duration_minutes"`
		Limit           int    `json:"limit"`
	}
	if err := decodeArgs(inputs, &args); err != nil {
		return nil, err
	}
	if args.DoctorID <= 0 || args.StartDate == "" {
		return "Debes proporcionar el ID del medico y la fecha de inicio.", nil
	}
	if args.DurationMinutes <= 0 {
		args.DurationMinutes = 60
	}
	if args.Limit <= 0 {
		args.Limit = 3
	}

	logx.WithFields(logx.Fields{
		"doctor_id":  args.DoctorID,
		"start_date": args.StartDate,
	}).Info("Suggesting time slots")

	slots, err := t.client.SuggestTimeSlots(ctx, backend.SuggestSlotsRequest{
		DoctorID:        args.DoctorID,
		StartDate:       args.StartDate,
		EndDate:         args.EndDate,
		DurationMinutes: args.DurationMinutes,
		Limit:           args.Limit,
	})
	if err != nil {
		return fmt.Sprintf("No se pudieron sugerir horarios: %v", err), nil
	}
	if len(slots) == 0 {
		return "No hay horarios disponibles en el rango de fechas especificado.", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Horarios disponibles encontrados (%d):\n", len(slots))
	for i, s := range slots {
		fmt.Fprintf(&sb, "%d. %s %s a las %s\n", i+1, s.Weekday, s.Date, s.Time)
	}
	sb.WriteString("El usuario puede elegir uno de estos horarios.")

	return sb.String(), nil
}

// BookAppointmentTool registers a new appointment in pending state.
type BookAppointmentTool struct {
	client *backend.Client
}

func NewBookAppointmentTool(client *backend.Client) *BookAppointmentTool {
	return &BookAppointmentTool{client: client}
}

func (t *BookAppointmentTool) Name() string { return "book_appointment" }

func (t *BookAppointmentTool) GetTool() llm.Tool {
	return llm.Tool{
		Type: "function",
		Function: llm.ToolFunction{
			Name: t.Name(),
			Description: "Registra una NUEVA cita medica con estado 'pendiente'. Usar solo despues " +
				"de verificar la disponibilidad del medico. La cita queda pendiente de confirmacion.",
			Parameters: objectSchema(map[string]any{
				"user_id":          map[string]any{"type": "integer", "description": "ID del usuario que agenda"},
				"doctor_id":        map[string]any{"type": "integer", "description": "ID del medico asignado"},
				"starts_at":        map[string]any{"type": "string", "description": "Inicio en formato YYYY-MM-DD HH:MM:SS"},
				"ends_at":          map[string]any{"type": "string", "description": "Fin en formato YYYY-MM-DD HH:MM:SS"},
				"reason":           map[string]any{"type": "string", "description": "Motivo de la consulta"},
				"appointment_type": map[string]any{"type": "string", "description": "Tipo: primera_vez, seguimiento, especialidad"},
				"notes":            map[string]any{"type": "string", "description": "Notas adicionales"},
			}, "user_id", "doctor_id", "starts_at", "ends_at"),
		},
	}
}

func (t *BookAppointmentTool) Call(ctx context.Context, inputs string) (any, error) {
	var args struct {
		UserID          int    `json:"user_id"`
		DoctorID        int    `json:"doctor_id"`
		StartsAt        string `json:"starts_at"`
		EndsAt          string `json:"ends_at"`
		Reason          string `json:"reason"`
		AppointmentType string `json:"appointment_type"`
		Notes           string `json:"notes"`
	}
	if err := decodeArgs(inputs, &args); err != nil {
		return nil, err
	}
	if args.UserID <= 0 || args.DoctorID <= 0 || args.StartsAt == "" || args.EndsAt == "" {
		return "Faltan datos obligatorios: usuario, medico, fecha de inicio y fecha de fin.", nil
	}

	logx.WithFields(logx.Fields{
		"user_id":   args.UserID,
		"doctor_id": args.DoctorID,
		"starts_at": args.StartsAt,
	}).Info("Booking appointment")

	cita, err := t.client.RegisterAppointment(ctx, backend.RegisterAppointmentRequest{
		UserID:          args.UserID,
		DoctorID:        args.DoctorID,
		StartsAt:        args.StartsAt,
		EndsAt:          args.EndsAt,
		Reason:          args.Reason,
		AppointmentType: args.AppointmentType,
		Notes:           args.Notes,
	})
	if err != nil {
		return fmt.Sprintf("No se pudo registrar la cita: %v", err), nil
	}

	var sb strings.Builder
	sb.WriteString("Cita registrada exitosamente:\n")
	fmt.Fprintf(&sb, "- ID Cita: %d\n", cita.ID)
	fmt.Fprintf(&sb, "- Fecha/Hora: %s\n", cita.StartsAt)
	fmt.Fprintf(&sb, "- Estado: %s\n", strings.ToUpper(cita.Status))
	fmt.Fprintf(&sb, "- Motivo: %s\n", orDefault(cita.Reason, "No especificado"))
	sb.WriteString("La cita esta en estado PENDIENTE. El usuario debe confirmarla mas adelante.")

	return sb.String(), nil
}

// ConfirmAppointmentTool flips a pending appointment to confirmed.
type ConfirmAppointmentTool struct {
	client *backend.Client
}

func NewConfirmAppointmentTool(client *backend.Client) *ConfirmAppointmentTool {
	return &ConfirmAppointmentTool{client: client}
}

func (t *ConfirmAppointmentTool) Name() string { return "confirm_appointment" }

func (t *ConfirmAppointmentTool) GetTool() llm.Tool {
	return llm.Tool{
		Type: "function",
		Function: llm.ToolFunction{
			Name: t.Name(),
			Description: "Confirma una cita en estado 'pendiente', cambiandola a 'confirmada'. " +
				"Usar cuando el usuario dice explicitamente que confirma su cita.",
			Parameters: objectSchema(map[string]any{
				"appointment_id": map[string]any{"type": "integer", "description": "ID de la cita a confirmar"},
			}, "appointment_id"),
		},
	}
}

func (t *ConfirmAppointmentTool) Call(ctx context.Context, inputs string) (any, error) {
	var args struct {
		AppointmentID int `json:"appointment_id"`
	}
	if err := decodeArgs(inputs, &args); err != nil {
		return nil, err
	}
	if args.AppointmentID <= 0 {
		return "Debes proporcionar el ID de la cita.", nil
	}

	logx.WithField("appointment_id", args.AppointmentID).Info("Confirming appointment")

	cita, err := t.client.ConfirmAppointment(ctx, args.AppointmentID)
	if err != nil {
		return fmt.Sprintf("No se pudo confirmar la cita: %v", err), nil
	}

	var sb strings.Builder
	sb.WriteString("Cita confirmada exitosamente:\n")
	fmt.Fprintf(&sb, "- ID Cita: %d\n", cita.ID)
	fmt.Fprintf(&sb, "- Estado: %s\n", strings.ToUpper(cita.Status))
	fmt.Fprintf(&sb, "- Fecha/Hora: %s\n", cita.StartsAt)
	sb.WriteString("El paciente recibira un recordatorio antes de su cita.")

	return sb.String(), nil
}

// LogInteractionTool records notable agent interactions for audit.
type LogInteractionTool struct {
	client *backend.Client
}

func NewLogInteractionTool(client *backend.Client) *LogInteractionTool {
	return &LogInteractionTool{client: client}
}

func (t *LogInteractionTool) Name() string { return "log_interaction" }

func (t *LogInteractionTool) GetTool() llm.Tool {
	return llm.Tool{
		Type: "function",
		Function: llm.ToolFunction{
			Name: t.Name(),
			Description: "Registra la interaccion del usuario con el asistente para trazabilidad y " +
				"auditoria. Usar solo en interacciones clave como agendar o cancelar citas.",
			Parameters: objectSchema(map[string]any{
				"user_id":      map[string]any{"type": "integer", "description": "ID del usuario"},
				"intent":       map[string]any{"type": "string", "description": "Tipo de intencion detectada"},
				"user_input":   map[string]any{"type": "string", "description": "Mensaje del usuario"},
				"ai_response":  map[string]any{"type": "string", "description": "Respuesta del asistente"},
				"result_state": map[string]any{"type": "string", "description": "exitosa, fallida o requiere_revision"},
			}, "user_id"),
		},
	}
}

func (t *LogInteractionTool) Call(ctx context.Context, inputs string) (any, error) {
	var args struct {
		UserID      int    `json:"user_id"`
		Intent      string `json:"intent"`
		UserInput   string `json:"user_input"`
		AIResponse  string `json:"ai_response"`
		ResultState string `json:"result_state"`
	}
	if err := decodeArgs(inputs, &args); err != nil {
		return nil, err
	}
	if args.UserID <= 0 {
		return "Debes proporcionar el ID del usuario.", nil
	}

	logx.WithFields(logx.Fields{
		"user_id": args.UserID,
		"intent":  args.Intent,
	}).Info("Logging interaction")

	result, err := t.client.LogInteraction(ctx, backend.InteractionRecord{
		UserID:      args.UserID,
		Intent:      args.Intent,
		UserInput:   args.UserInput,
		AIResponse:  args.AIResponse,
		ResultState: args.ResultState,
	})
	if err != nil {
		return fmt.Sprintf("No se pudo registrar la interaccion: %v", err), nil
	}

	return fmt.Sprintf("Interaccion registrada (ID: %d).", result.ID), nil
}
