// Package strategy recommends the next operator action for a collection turn.
package strategy

import (
	"github.com/Vovarama1992/collection-bot/internal/intent"
	"github.com/Vovarama1992/collection-bot/internal/persona"
	"github.com/Vovarama1992/collection-bot/internal/profile"
)

type Action string

const (
	Restructure     Action = "restructure"
	DisputeTicket   Action = "dispute_ticket"
	FirmReminder    Action = "firm_reminder"
	Escalate        Action = "escalate"
	SimplifiedGuide Action = "simplified_guide"
	PaymentLink     Action = "payment_link"
)

var advice = map[Action]string{
	Restructure:     "Offer short-term extension or restructuring evaluation.",
	DisputeTicket:   "Create dispute ticket and share reference number.",
	FirmReminder:    "Send firm reminder and schedule confirmation call.",
	Escalate:        "Escalate to senior agent with de-escalation training.",
	SimplifiedGuide: "Send simplified explainer with step-by-step payment guide.",
	PaymentLink:     "Share payment link and set follow-up reminder.",
}

// String returns the advisory text shown to operators.
func (a Action) String() string {
	if s, ok := advice[a]; ok {
		return s
	}
	return string(a)
}

// Recommend picks an action; intent rules take precedence over persona rules.
func Recommend(p persona.Persona, prof profile.Profile, in intent.Intent) Action {
	missed := prof.MissedPayments.Int(0)
	complaints := prof.Complaints.Int(0)

	switch {
	case in == intent.NeedExtension || in == intent.Hardship:
		return Restructure
	case in == intent.Dispute:
		return DisputeTicket
	case p == persona.Evasive && missed >= 2:
		return FirmReminder
	case p == persona.Aggressive && complaints >= 1:
		return Escalate
	case p == persona.Confused:
		return SimplifiedGuide
	default:
		return PaymentLink
	}
}

// NeedsOperator reports whether a human should be pulled into the conversation.
func NeedsOperator(a Action, in intent.Intent) bool {
	return a == DisputeTicket || a == Escalate || in == intent.ConnectAgent
}
