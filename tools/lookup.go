// Package tools exposes the clinic backend to the agent as typed,
// model-callable tools. Every tool returns plain text the model can read
// back to the user; backend errors come back as readable tool output so
// the model can recover instead of aborting the turn.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/arludent/assistant/backend"
	"github.com/arludent/assistant/pkg/ai/llm"
	"github.com/arludent/assistant/pkg/logx"
)

func objectSchema(properties map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func decodeArgs(inputs string, target any) error {
	if strings.TrimSpace(inputs) == "" {
		inputs = "{}"
	}
	if err := json.Unmarshal([]byte(inputs), target); err != nil {
		return ErrInvalidArguments(err)
	}
	return nil
}

// SearchPatientTool finds a patient by ID, DNI or name.
type SearchPatientTool struct {
	client *backend.Client
}

func NewSearchPatientTool(client *backend.Client) *SearchPatientTool {
	return &SearchPatientTool{client: client}
}

func (t *SearchPatientTool) Name() string { return "search_patient" }

func (t *SearchPatientTool) GetTool() llm.Tool {
	return llm.Tool{
		Type: "function",
		Function: llm.ToolFunction{
			Name: t.Name(),
			Description: "Busca informacion de un paciente en el sistema por DNI, ID o nombre. " +
				"Retorna datos basicos como nombre, edad, alergias y grupo sanguineo.",
			Parameters: objectSchema(map[string]any{
				"patient_id": map[string]any{"type": "integer", "description": "ID del paciente"},
				"dni":        map[string]any{"type": "string", "description": "DNI del paciente"},
				"name":       map[string]any{"type": "string", "description": "Nombre del paciente"},
			}),
		},
	}
}

func (t *SearchPatientTool) Call(ctx context.Context, inputs string) (any, error) {
	var args struct {
		PatientID int    `json:"patient_id"`
		DNI       string `json:"dni"`
		Name      string `json:"name"`
	}
	if err := decodeArgs(inputs, &args); err != nil {
		return nil, err
	}

	logx.WithFields(logx.Fields{
		"patient_id": args.PatientID,
		"dni":        args.DNI,
		"name":       args.Name,
	}).Info("Searching patient")

	var patient *backend.Patient
	var err error

	switch {
	case args.PatientID > 0:
		patient, err = t.client.GetPatient(ctx, args.PatientID)
	case args.DNI != "":
		patient, err = t.client.GetPatientByDNI(ctx, args.DNI)
	case args.Name != "":
		var patients []backend.Patient
		patients, err = t.client.SearchPatients(ctx, args.Name, 5)
		if err == nil {
			if len(patients) == 0 {
				return "No se encontro ningun paciente con ese criterio.", nil
			}
			patient = &patients[0]
		}
	default:
		return "Debes proporcionar al menos un criterio de busqueda (DNI, ID o nombre).", nil
	}

	if err != nil {
		return fmt.Sprintf("No se pudo buscar el paciente: %v", err), nil
	}

	return formatPatient(patient), nil
}

func formatPatient(p *backend.Patient) string {
	var sb strings.Builder
	sb.WriteString("Paciente encontrado:\n")
	fmt.Fprintf(&sb, "- Nombre: %s %s\n", p.FirstName, p.LastName)
	fmt.Fprintf(&sb, "- DNI: %s\n", orDefault(p.DNI, "No registrado"))
	fmt.Fprintf(&sb, "- Edad: %d anios\n", p.Age)
	fmt.Fprintf(&sb, "- Telefono: %s\n", orDefault(p.Phone, "No registrado"))
	fmt.Fprintf(&sb, "- Alergias: %s\n", orDefault(p.Allergies, "Ninguna registrada"))
	fmt.Fprintf(&sb, "- Grupo sanguineo: %s", orDefault(p.BloodGroup, "No registrado"))
	return sb.String()
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

// ListAppointmentsTool lists appointments for a patient or a doctor.
type ListAppointmentsTool struct {
	client *backend.Client
}

func NewListAppointmentsTool(client *backend.Client) *ListAppointmentsTool {
	return &ListAppointmentsTool{client: client}
}

func (t *ListAppointmentsTool) Name() string { return "list_appointments" }

func (t *ListAppointmentsTool) GetTool() llm.Tool {
	return llm.Tool{
		Type: "function",
		Function: llm.ToolFunction{
			Name: t.Name(),
			Description: "Consulta las citas medicas programadas de un paciente o de un medico. " +
				"Para pacientes se puede filtrar por estado (pendiente, confirmada, etc.).",
			Parameters: objectSchema(map[string]any{
				"patient_id": map[string]any{"type": "integer", "description": "ID del paciente"},
				"doctor_id":  map[string]any{"type": "integer", "description": "ID del medico"},
				"status":     map[string]any{"type": "string", "description": "Estado de la cita"},
			}),
		},
	}
}

func (t *ListAppointmentsTool) Call(ctx context.Context, inputs string) (any, error) {
	var args struct {
		PatientID int    `json:"patient_id"`
		DoctorID  int    `json:"doctor_id"`
		Status    string `json:"status"`
	}
	if err := decodeArgs(inputs, &args); err != nil {
		return nil, err
	}

	logx.WithFields(logx.Fields{
		"patient_id": args.PatientID,
		"doctor_id":  args.DoctorID,
		"status":     args.Status,
	}).Info("Listing appointments")

	var appointments []backend.Appointment
	var err error

	switch {
	case args.PatientID > 0:
		appointments, err = t.client.GetPatientAppointments(ctx, args.PatientID, args.Status)
	case args.DoctorID > 0:
		appointments, err = t.client.GetDoctorAppointments(ctx, args.DoctorID, "")
	default:
		return "Debes proporcionar el ID de un paciente o de un medico.", nil
	}

	if err != nil {
		return fmt.Sprintf("No se pudieron consultar las citas: %v", err), nil
	}
	if len(appointments) == 0 {
		return "No hay citas registradas con esos criterios.", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Se encontraron %d citas:\n", len(appointments))
	for i, cita := range appointments {
		if i >= 5 {
			fmt.Fprintf(&sb, "... y %d citas mas\n", len(appointments)-5)
			break
		}
		fmt.Fprintf(&sb, "%d. Cita #%d\n", i+1, cita.ID)
		fmt.Fprintf(&sb, "   - Fecha: %s\n", orDefault(cita.StartsAt, "No disponible"))
		if cita.Doctor != nil {
			fmt.Fprintf(&sb, "   - Medico: Dr(a). %s %s\n", cita.Doctor.FirstName, cita.Doctor.LastName)
		}
		fmt.Fprintf(&sb, "   - Motivo: %s\n", orDefault(cita.Reason, "No especificado"))
		fmt.Fprintf(&sb, "   - Estado: %s\n", strings.ToUpper(orDefault(cita.Status, "pendiente")))
	}

	return strings.TrimRight(sb.String(), "\n"), nil
}

// MedicalHistoryTool returns the clinical history summary of a patient.
type MedicalHistoryTool struct {
	client *backend.Client
}

func NewMedicalHistoryTool(client *backend.Client) *MedicalHistoryTool {
	return &MedicalHistoryTool{client: client}
}

func (t *MedicalHistoryTool) Name() string { return "get_medical_history" }

func (t *MedicalHistoryTool) GetTool() llm.Tool {
	return llm.Tool{
		Type: "function",
		Function: llm.ToolFunction{
			Name: t.Name(),
			Description: "Consulta el resumen del historial clinico de un paciente: diagnosticos, " +
				"tratamientos activos, alergias y notas medicas.",
			Parameters: objectSchema(map[string]any{
				"patient_id": map[string]any{"type": "integer", "description": "ID del paciente"},
			}, "patient_id"),
		},
	}
}

func (t *MedicalHistoryTool) Call(ctx context.Context, inputs string) (any, error) {
	var args struct {
		PatientID int `json:"patient_id"`
	}
	if err := decodeArgs(inputs, &args); err != nil {
		return nil, err
	}
	if args.PatientID <= 0 {
		return "Debes proporcionar el ID del paciente.", nil
	}

	logx.WithField("patient_id", args.PatientID).Info("Fetching medical history summary")

	summary, err := t.client.GetHistorySummary(ctx, args.PatientID)
	if err != nil {
		return fmt.Sprintf("No se pudo consultar el historial: %v", err), nil
	}

	var sb strings.Builder
	sb.WriteString("Resumen del historial clinico:\n")
	fmt.Fprintf(&sb, "- Total de consultas: %d\n", summary.TotalVisits)
	fmt.Fprintf(&sb, "- Ultima consulta: %s\n", orDefault(summary.LastVisit, "No disponible"))
	fmt.Fprintf(&sb, "- Tratamientos activos: %d\n", summary.ActiveTreatments)
	fmt.Fprintf(&sb, "- Alergias conocidas: %s\n", orDefault(summary.Allergies, "Ninguna"))
	fmt.Fprintf(&sb, "Diagnosticos recientes: %s\n", orDefault(summary.RecentDiagnoses, "No hay diagnosticos recientes"))
	fmt.Fprintf(&sb, "Notas importantes: %s", orDefault(summary.ImportantNotes, "Sin notas especiales"))

	return sb.String(), nil
}

// DoctorAvailabilityTool lists a doctor's free slots on a date.
type DoctorAvailabilityTool struct {
	client *backend.Client
}

func NewDoctorAvailabilityTool(client *backend.Client) *DoctorAvailabilityTool {
	return &DoctorAvailabilityTool{client: client}
}

func (t *DoctorAvailabilityTool) Name() string { return "check_doctor_availability" }

func (t *DoctorAvailabilityTool) GetTool() llm.Tool {
	return llm.Tool{
		Type: "function",
		Function: llm.ToolFunction{
			Name: t.Name(),
			Description: "Consulta la disponibilidad de un medico en una fecha especifica y muestra " +
				"los horarios libres para agendar citas.",
			Parameters: objectSchema(map[string]any{
				"doctor_id": map[string]any{"type": "integer", "description": "ID del medico"},
				"date":      map[string]any{"type": "string", "description": "Fecha en formato YYYY-MM-DD"},
			}, "doctor_id", "date"),
		},
	}
}

func (t *DoctorAvailabilityTool) Call(ctx context.Context, inputs string) (any, error) {
	var args struct {
		DoctorID int    `json:"doctor_id"`
		Date     string `json:"date"`
	}
	if err := decodeArgs(inputs, &args); err != nil {
		return nil, err
	}
	if args.DoctorID <= 0 || args.Date == "" {
		return "Debes proporcionar el ID del medico y la fecha (YYYY-MM-DD).", nil
	}

	logx.WithFields(logx.Fields{
		"doctor_id": args.DoctorID,
		"date":      args.Date,
	}).Info("Checking doctor availability")

	availability, err := t.client.GetDoctorAvailability(ctx, args.DoctorID, args.Date)
	if err != nil {
		return fmt.Sprintf("No se pudo consultar la disponibilidad: %v", err), nil
	}
	if len(availability.FreeSlots) == 0 {
		return fmt.Sprintf("No hay horarios disponibles para el %s.", args.Date), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Horarios disponibles para el %s:\n", args.Date)
	for _, slot := range availability.FreeSlots {
		fmt.Fprintf(&sb, "- %s\n", slot)
	}

	return strings.TrimRight(sb.String(), "\n"), nil
}

// ListDoctorsTool lists the clinic's doctors.
type ListDoctorsTool struct {
	client *backend.Client
}

func NewListDoctorsTool(client *backend.Client) *ListDoctorsTool {
	return &ListDoctorsTool{client: client}
}

func (t *ListDoctorsTool) Name() string { return "list_doctors" }

func (t *ListDoctorsTool) GetTool() llm.Tool {
	return llm.Tool{
		Type: "function",
		Function: llm.ToolFunction{
			Name: t.Name(),
			Description: "Lista los medicos disponibles en el consultorio, con filtro opcional " +
				"por especialidad.",
			Parameters: objectSchema(map[string]any{
				"specialty": map[string]any{"type": "string", "description": "Especialidad a filtrar"},
			}),
		},
	}
}

func (t *ListDoctorsTool) Call(ctx context.Context, inputs string) (any, error) {
	var args struct {
		Specialty string `json:"specialty"`
	}
	if err := decodeArgs(inputs, &args); err != nil {
		return nil, err
	}

	logx.WithField("specialty", args.Specialty).Info("Listing doctors")

	doctors, err := t.client.ListDoctors(ctx, args.Specialty)
	if err != nil {
		return fmt.Sprintf("No se pudieron listar los medicos: %v", err), nil
	}
	if len(doctors) == 0 {
		return "No hay medicos registrados.", nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Medicos disponibles (%d):\n", len(doctors))
	for i, m := range doctors {
		fmt.Fprintf(&sb, "%d. Dr(a). %s %s\n", i+1, m.FirstName, m.LastName)
		fmt.Fprintf(&sb, "   - Especialidad: %s\n", orDefault(m.Specialty, "General"))
		fmt.Fprintf(&sb, "   - Colegiatura: %s\n", orDefault(m.License, "No disponible"))
	}

	return strings.TrimRight(sb.String(), "\n"), nil
}
