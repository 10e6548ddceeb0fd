package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arludent/assistant/backend"
)

// fakeBackend serves the internal API envelope format with canned
// handlers per path.
func fakeBackend(t *testing.T, handlers map[string]http.HandlerFunc) *backend.Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if handler, ok := handlers[r.URL.Path]; ok {
			handler(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(server.Close)
	return backend.NewClient(server.URL, "test-key")
}

func envelopeOK(w http.ResponseWriter, data any) {
	raw, _ := json.Marshal(data)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"data":    json.RawMessage(raw),
	})
}

func callString(t *testing.T, tool interface {
	Call(ctx context.Context, inputs string) (any, error)
}, inputs string) string {
	t.Helper()
	result, err := tool.Call(context.Background(), inputs)
	require.NoError(t, err)
	s, ok := result.(string)
	require.True(t, ok, "tool result should be a string")
	return s
}

func TestSearchPatientTool_ByDNI(t *testing.T) {
	client := fakeBackend(t, map[string]http.HandlerFunc{
		"/api/internal/pacientes/dni/44556677": func(w http.ResponseWriter, r *http.Request) {
			envelopeOK(w, map[string]any{
				"id_paciente": 5,
				"nombres":     "Maria",
				"apellidos":   "Quispe",
				"dni":         "44556677",
				"edad":        31,
				"alergias":    "Penicilina",
			})
		},
	})
	tool := NewSearchPatientTool(client)

	out := callString(t, tool, `{"dni":"44556677"}`)
	assert.Contains(t, out, "Maria Quispe")
	assert.Contains(t, out, "44556677")
	assert.Contains(t, out, "Penicilina")
}

func TestSearchPatientTool_ByNameNoResults(t *testing.T) {
	client := fakeBackend(t, map[string]http.HandlerFunc{
		"/api/internal/pacientes": func(w http.ResponseWriter, r *http.Request) {
			envelopeOK(w, []map[string]any{})
		},
	})
	tool := NewSearchPatientTool(client)

	out := callString(t, tool, `{"name":"Nadie"}`)
	assert.Contains(t, out, "No se encontro ningun paciente")
}

func TestSearchPatientTool_MissingCriteria(t *testing.T) {
	tool := NewSearchPatientTool(fakeBackend(t, nil))

	out := callString(t, tool, `{}`)
	assert.Contains(t, out, "al menos un criterio")
}

func TestSearchPatientTool_BackendErrorAsOutput(t *testing.T) {
	// Nothing registered: every request 404s. The tool must still
	// answer with text, never a hard error.
	tool := NewSearchPatientTool(fakeBackend(t, nil))

	out := callString(t, tool, `{"patient_id":99}`)
	assert.Contains(t, out, "No se pudo buscar el paciente")
}

func TestSearchPatientTool_InvalidArguments(t *testing.T) {
	tool := NewSearchPatientTool(fakeBackend(t, nil))

	_, err := tool.Call(context.Background(), `{not json`)
	require.Error(t, err)
}

func TestListAppointmentsTool_FormatsAppointments(t *testing.T) {
	client := fakeBackend(t, map[string]http.HandlerFunc{
		"/api/internal/pacientes/5/citas": func(w http.ResponseWriter, r *http.Request) {
			envelopeOK(w, []map[string]any{
				{
					"id_cita":           12,
					"fecha_hora_inicio": "2026-09-01 10:00:00",
					"estado":            "pendiente",
					"motivo":            "limpieza",
					"medico": map[string]any{
						"id_medico": 3,
						"nombres":   "Jorge",
						"apellidos": "Luna",
					},
				},
			})
		},
	})
	tool := NewListAppointmentsTool(client)

	out := callString(t, tool, `{"patient_id":5}`)
	assert.Contains(t, out, "Se encontraron 1 citas")
	assert.Contains(t, out, "Cita #12")
	assert.Contains(t, out, "Dr(a). Jorge Luna")
	assert.Contains(t, out, "PENDIENTE")
}

func TestListAppointmentsTool_StatusFilterForwarded(t *testing.T) {
	var gotStatus string
	client := fakeBackend(t, map[string]http.HandlerFunc{
		"/api/internal/pacientes/5/citas": func(w http.ResponseWriter, r *http.Request) {
			gotStatus = r.URL.Query().Get("estado")
			envelopeOK(w, []map[string]any{})
		},
	})
	tool := NewListAppointmentsTool(client)

	out := callString(t, tool, `{"patient_id":5,"status":"confirmada"}`)
	assert.Equal(t, "confirmada", gotStatus)
	assert.Contains(t, out, "No hay citas")
}

func TestMedicalHistoryTool_Summary(t *testing.T) {
	client := fakeBackend(t, map[string]http.HandlerFunc{
		"/api/internal/pacientes/5/historial-resumen": func(w http.ResponseWriter, r *http.Request) {
			envelopeOK(w, map[string]any{
				"total_consultas":       8,
				"ultima_consulta":       "2026-07-15",
				"tratamientos_activos":  1,
				"alergias":              "Ninguna",
				"diagnosticos_recientes": "Caries en pieza 26",
			})
		},
	})
	tool := NewMedicalHistoryTool(client)

	out := callString(t, tool, `{"patient_id":5}`)
	assert.Contains(t, out, "Total de consultas: 8")
	assert.Contains(t, out, "Caries en pieza 26")
}

func TestMedicalHistoryTool_RequiresPatientID(t *testing.T) {
	tool := NewMedicalHistoryTool(fakeBackend(t, nil))

	out := callString(t, tool, `{}`)
	assert.Contains(t, out, "ID del paciente")
}

func TestDoctorAvailabilityTool_ListsSlots(t *testing.T) {
	client := fakeBackend(t, map[string]http.HandlerFunc{
		"/api/internal/medicos/3/disponibilidad": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "2026-09-01", r.URL.Query().Get("fecha"))
			envelopeOK(w, map[string]any{
				"horarios_disponibles": []string{"10:00", "11:00", "16:00"},
			})
		},
	})
	tool := NewDoctorAvailabilityTool(client)

	out := callString(t, tool, `{"doctor_id":3,"date":"2026-09-01"}`)
	assert.Contains(t, out, "Horarios disponibles para el 2026-09-01")
	assert.Contains(t, out, "10:00")
	assert.Contains(t, out, "16:00")
}

func TestDoctorAvailabilityTool_NoSlots(t *testing.T) {
	client := fakeBackend(t, map[string]http.HandlerFunc{
		"/api/internal/medicos/3/disponibilidad": func(w http.ResponseWriter, r *http.Request) {
			envelopeOK(w, map[string]any{"horarios_disponibles": []string{}})
		},
	})
	tool := NewDoctorAvailabilityTool(client)

	out := callString(t, tool, `{"doctor_id":3,"date":"2026-09-01"}`)
	assert.Contains(t, out, "No hay horarios disponibles")
}

func TestListDoctorsTool_FiltersBySpecialty(t *testing.T) {
	var gotSpecialty string
	client := fakeBackend(t, map[string]http.HandlerFunc{
		"/api/internal/medicos": func(w http.ResponseWriter, r *http.Request) {
			gotSpecialty = r.URL.Query().Get("especialidad")
			envelopeOK(w, []map[string]any{
				{"id_medico": 3, "nombres": "Jorge", "apellidos": "Luna", "especialidad": "Ortodoncia"},
			})
		},
	})
	tool := NewListDoctorsTool(client)

	out := callString(t, tool, `{"specialty":"Ortodoncia"}`)
	assert.Equal(t, "Ortodoncia", gotSpecialty)
	assert.Contains(t, out, "Dr(a). Jorge Luna")
	assert.Contains(t, out, "Ortodoncia")
}

func TestRegistry_AllToolsWired(t *testing.T) {
	registry := NewRegistry(fakeBackend(t, nil))

	assert.ElementsMatch(t, []string{
		"search_patient",
		"list_appointments",
		"get_medical_history",
		"check_doctor_availability",
		"list_doctors",
		"validate_doctor",
		"identify_user",
		"suggest_time_slots",
		"book_appointment",
		"confirm_appointment",
		"log_interaction",
	}, registry.Names())
}
