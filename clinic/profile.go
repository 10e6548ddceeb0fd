// Package clinic holds the clinic profile that drives the assistant's
// system prompt and the public service info, with a YAML/JSON loader and
// a compiled-in default.
package clinic

// Profile describes the clinic the assistant speaks for.
type Profile struct {
	Name     string `yaml:"name" json:"name"`
	City     string `yaml:"city" json:"city"`
	Address  string `yaml:"address" json:"address"`
	Phone    string `yaml:"phone" json:"phone"`
	WhatsApp string `yaml:"whatsapp" json:"whatsapp"`
	Email    string `yaml:"email" json:"email"`
	Website  string `yaml:"website" json:"website"`

	Hours          []ScheduleEntry `yaml:"hours" json:"hours"`
	Services       []Service       `yaml:"services" json:"services"`
	PaymentMethods []string        `yaml:"payment_methods" json:"payment_methods"`
	Facilities     []string        `yaml:"facilities" json:"facilities"`
	FAQ            []FAQEntry      `yaml:"faq" json:"faq"`
}

// ScheduleEntry is one line of the opening hours.
type ScheduleEntry struct {
	Days  string `yaml:"days" json:"days"`
	Hours string `yaml:"hours" json:"hours"`
}

// Service is one treatment the clinic offers.
type Service struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
}

// FAQEntry is a canned answer for a frequent question.
type FAQEntry struct {
	Question string `yaml:"question" json:"question"`
	Answer   string `yaml:"answer" json:"answer"`
}

// DefaultProfile returns the compiled-in Arludent profile, used when no
// profile file is configured.
func DefaultProfile() *Profile {
	return &Profile{
		Name:     "Clinica Dental Arludent",
		City:     "Tacna, Peru",
		Address:  "Sinchi Roca #306, Tacna, Peru",
		Phone:    "+51 949 805 092",
		WhatsApp: "+51 949 805 092",
		Email:    "arludenttacna@gmail.com",
		Website:  "arludent.page",
		Hours: []ScheduleEntry{
			{Days: "Lunes a Viernes", Hours: "8:00 AM - 8:00 PM"},
			{Days: "Sabados", Hours: "9:00 AM - 2:00 PM"},
			{Days: "Domingos", Hours: "Cerrado"},
		},
		Services: []Service{
			{Name: "Odontologia General", Description: "Consultas, evaluaciones y tratamientos basicos"},
			{Name: "Ortodoncia", Description: "Brackets metalicos, esteticos y alineadores invisibles"},
			{Name: "Implantes Dentales", Description: "Reemplazo de piezas dentales perdidas"},
			{Name: "Endodoncia", Description: "Tratamiento de conductos"},
			{Name: "Periodoncia", Description: "Tratamiento de encias y tejidos de soporte"},
			{Name: "Odontopediatria", Description: "Atencion especializada para ninos"},
			{Name: "Estetica Dental", Description: "Blanqueamiento, carillas, disenio de sonrisa"},
			{Name: "Cirugia Oral", Description: "Extracciones, cirugia de cordales"},
			{Name: "Protesis Dentales", Description: "Fijas y removibles"},
			{Name: "Limpieza Dental", Description: "Profilaxis y tartrectomia"},
		},
		PaymentMethods: []string{
			"Efectivo",
			"Tarjetas de credito y debito (Visa, Mastercard, American Express)",
			"Transferencias bancarias",
			"Yape y Plin",
			"Planes de financiamiento (consultar en recepcion)",
		},
		Facilities: []string{
			"Acceso para personas con discapacidad",
			"Estacionamiento disponible",
			"Instalaciones modernas y equipadas",
			"Protocolos de bioseguridad estrictos",
		},
		FAQ: []FAQEntry{
			{
				Question: "Cuanto cuesta un tratamiento?",
				Answer:   "Los precios varian segun cada caso. Ofrecer una evaluacion gratuita donde el doctor evalua el caso y da un presupuesto exacto.",
			},
		},
	}
}

// ValidateProfile checks the fields the prompt builder depends on.
func ValidateProfile(profile *Profile) error {
	if profile.Name == "" {
		return ErrMissingField("name")
	}
	if profile.Address == "" {
		return ErrMissingField("address")
	}
	if len(profile.Hours) == 0 {
		return ErrMissingField("hours")
	}
	if len(profile.Services) == 0 {
		return ErrMissingField("services")
	}
	return nil
}
