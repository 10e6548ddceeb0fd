package backend

import "encoding/json"

// envelope is the backend's response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// Patient is a clinic patient record. JSON keys follow the backend's
// schema.
type Patient struct {
	ID         int    `json:"id_paciente"`
	FirstName  string `json:"nombres"`
	LastName   string `json:"apellidos"`
	DNI        string `json:"dni"`
	Age        int    `json:"edad"`
	Phone      string `json:"telefono"`
	Allergies  string `json:"alergias"`
	BloodGroup string `json:"grupo_sanguineo"`
}

// Doctor is a clinic doctor record.
type Doctor struct {
	ID        int    `json:"id_medico"`
	FirstName string `json:"nombres"`
	LastName  string `json:"apellidos"`
	Specialty string `json:"especialidad"`
	License   string `json:"colegiatura"`
}

// Appointment is a scheduled appointment.
type Appointment struct {
	ID       int     `json:"id_cita"`
	StartsAt string  `json:"fecha_hora_inicio"`
	EndsAt   string  `json:"fecha_hora_fin"`
	Status   string  `json:"estado"`
	Reason   string  `json:"motivo"`
	Doctor   *Doctor `json:"medico,omitempty"`
}

// Availability lists a doctor's free slots on one date.
type Availability struct {
	FreeSlots []string `json:"horarios_disponibles"`
}

// HistorySummary condenses a patient's clinical history.
type HistorySummary struct {
	TotalVisits      int    `json:"total_consultas"`
	LastVisit        string `json:"ultima_consulta"`
	ActiveTreatments int    `json:"tratamientos_activos"`
	Allergies        string `json:"alergias"`
	RecentDiagnoses  string `json:"diagnosticos_recientes"`
	ImportantNotes   string `json:"notas_importantes"`
}

// UserType tells whether a user is an active patient and, if so, who
// treated them last.
type UserType struct {
	IsActivePatient bool    `json:"es_paciente_activo"`
	FullName        string  `json:"nombre_completo"`
	LastDoctor      *Doctor `json:"ultimo_medico,omitempty"`
}

// TimeSlot is one suggested appointment slot.
type TimeSlot struct {
	Weekday string `json:"dia_semana"`
	Date    string `json:"fecha"`
	Time    string `json:"hora"`
}

// SuggestSlotsRequest asks for alternative slots over a date range.
type SuggestSlotsRequest struct {
	DoctorID        int    `json:"id_medico"`
	StartDate       string `json:"fecha_inicio"`
	EndDate         string `json:"fecha_fin,omitempty"`
	DurationMinutes int    `json:"duracion_minutos,omitempty"`
	Limit           int    `json:"limite,omitempty"`
}

// RegisterAppointmentRequest creates a new appointment in pending state.
type RegisterAppointmentRequest struct {
	UserID          int    `json:"id_usuario"`
	DoctorID        int    `json:"id_medico"`
	StartsAt        string `json:"fecha_hora_inicio"`
	EndsAt          string `json:"fecha_hora_fin"`
	Reason          string `json:"motivo,omitempty"`
	AppointmentType string `json:"tipo_cita,omitempty"`
	Notes           string `json:"notas,omitempty"`
}

// InteractionRecord audits a notable agent interaction.
type InteractionRecord struct {
	UserID      int            `json:"id_usuario"`
	Intent      string         `json:"tipo_intencion,omitempty"`
	UserInput   string         `json:"entrada_usuario,omitempty"`
	AIResponse  string         `json:"respuesta_ia,omitempty"`
	ResultState string         `json:"estado_resultado,omitempty"`
	Context     map[string]any `json:"contexto,omitempty"`
}

// InteractionResult is the stored interaction's identity.
type InteractionResult struct {
	ID int `json:"id_interaccion"`
}
