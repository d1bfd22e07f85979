package responder

import (
	"strings"
)

// Canned replies per intent category. {tokens} are filled in by Personalizer
// before sending.
var defaultResponses = map[string]string{
	"appointment": "Thank you for your interest in scheduling an appointment! Please call us at {phone} during business hours and our team will be happy to assist you.",
	"emergency":   "For dental emergencies, please call our emergency line at {emergency_phone}. If this is a life-threatening emergency, please call 911 immediately.",
	"hours":       "Our office hours are:\n{business_hours}\n\nFor appointments, please call {phone}.",
	"location":    "We are located at:\n{address}\n\nCall {phone} if you need help with directions or parking.",
	"insurance":   "We accept most major dental insurance plans including:\n{insurance_list}\n\nPlease call {phone} to verify your specific coverage.",
	"services":    "We offer comprehensive dental services including:\n{services_list}\n\nCall {phone} to learn more.",
	"pricing":     "We offer competitive pricing and flexible payment options. For specific pricing information, please call {phone}. We also offer financing through CareCredit.",
}

// genericResponse covers categories with no canned reply configured.
const genericResponse = "Thank you for your message, {patient_name}. We will respond during business hours."

// holdingResponse acknowledges a message handed to the human queue.
const holdingResponse = "Your message has been received. A team member will respond shortly."

// Profile holds the practice details substituted into responses.
type Profile struct {
	DisplayNumber  string
	EmergencyPhone string
	Address        string
	BusinessHours  string // pre-formatted weekly schedule
	Insurances     []string
	Services       []string
}

// Personalizer substitutes the closed set of recognized {tokens} into a
// response in a single pass, so replacement output is never re-scanned.
type Personalizer struct {
	profile Profile
}

// NewPersonalizer creates a Personalizer for the given practice profile.
func NewPersonalizer(profile Profile) *Personalizer {
	return &Personalizer{profile: profile}
}

// Apply fills every recognized token in template. Unrecognized {tokens} are
// left untouched rather than dropped, so template typos stay visible.
func (p *Personalizer) Apply(template, patientName string) string {
	if patientName == "" {
		patientName = "Valued Patient"
	}

	values := map[string]string{
		"phone":           p.profile.DisplayNumber,
		"emergency_phone": p.profile.EmergencyPhone,
		"address":         p.profile.Address,
		"business_hours":  p.profile.BusinessHours,
		"insurance_list":  bulleted(p.profile.Insurances),
		"services_list":   bulleted(p.profile.Services),
		"patient_name":    patientName,
	}
	if values["emergency_phone"] == "" {
		values["emergency_phone"] = p.profile.DisplayNumber
	}

	var b strings.Builder
	b.Grow(len(template))
	for i := 0; i < len(template); {
		open := strings.IndexByte(template[i:], '{')
		if open < 0 {
			b.WriteString(template[i:])
			break
		}
		open += i
		b.WriteString(template[i:open])

		end := strings.IndexByte(template[open:], '}')
		if end < 0 {
			b.WriteString(template[open:])
			break
		}
		end += open

		token := template[open+1 : end]
		if value, ok := values[token]; ok {
			b.WriteString(value)
		} else {
			b.WriteString(template[open : end+1])
		}
		i = end + 1
	}
	return b.String()
}

// ResponseFor returns the canned reply for category, falling back to the
// generic after-hours message.
func ResponseFor(category string) string {
	if resp, ok := defaultResponses[category]; ok {
		return resp
	}
	return genericResponse
}

func bulleted(items []string) string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, "- "+item)
	}
	return strings.Join(lines, "\n")
}
