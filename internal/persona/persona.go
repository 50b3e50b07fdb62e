// Package persona classifies a customer profile into a behavioral persona
// that selects reply tone and content for the whole session.
package persona

import "fmt"

type Persona string

const (
	Cooperative Persona = "cooperative"
	Evasive     Persona = "evasive"
	Aggressive  Persona = "aggressive"
	Confused    Persona = "confused"
)

// All lists every persona in a stable order.
func All() []Persona {
	return []Persona{Cooperative, Evasive, Aggressive, Confused}
}

// Parse validates a persona name.
func Parse(s string) (Persona, error) {
	for _, p := range All() {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown persona %q", s)
}

// Traits are display attributes for operators; they do not drive any rule.
type Traits struct {
	Tone  string `json:"tone"`
	Style string `json:"style"`
}

var catalog = map[Persona]Traits{
	Cooperative: {
		Tone:  "empathetic",
		Style: "Use warm, polite language and acknowledge customer efforts.",
	},
	Evasive: {
		Tone:  "assertive",
		Style: "Be concise, firm, and focus on accountability and specific timelines.",
	},
	Aggressive: {
		Tone:  "empathetic",
		Style: "Stay calm and professional, acknowledge frustration, de-escalate the situation.",
	},
	Confused: {
		Tone:  "informative",
		Style: "Be patient, explain things step-by-step, simplify terms.",
	},
}

func (p Persona) Traits() Traits {
	return catalog[p]
}

func (p Persona) String() string { return string(p) }
