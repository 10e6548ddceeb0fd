package tools

import (
	"github.com/arludent/assistant/backend"
	"github.com/arludent/assistant/pkg/ai/llm/toolx"
)

// NewRegistry wires every clinic tool against the backend client.
func NewRegistry(client *backend.Client) *toolx.ToolxClient {
	return toolx.FromToolx(
		NewSearchPatientTool(client),
		NewListAppointmentsTool(client),
		NewMedicalHistoryTool(client),
		NewDoctorAvailabilityTool(client),
		NewListDoctorsTool(client),
		NewValidateDoctorTool(client),
		NewIdentifyUserTool(client),
		NewSuggestTimeSlotsTool(client),
		NewBookAppointmentTool(client),
		NewConfirmAppointmentTool(client),
		NewLogInteractionTool(client),
	)
}
