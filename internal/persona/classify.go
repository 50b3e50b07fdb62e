package persona

import "github.com/Vovarama1992/collection-bot/internal/profile"

// signals are the profile inputs the rules look at, already coerced.
type signals struct {
	sentiment    float64
	complaints   int
	responseTime float64
	attempts     int
	missed       int
}

func readSignals(p profile.Profile) signals {
	return signals{
		sentiment:    p.SentimentScore.Float(0),
		complaints:   p.Complaints.Int(0),
		responseTime: p.ResponseTimeHours.Float(24),
		attempts:     p.InteractionAttempts.Int(0),
		missed:       p.MissedPayments.Int(0),
	}
}

type rule struct {
	match   func(s signals) bool
	persona Persona
}

// rules are evaluated top to bottom and overlap on purpose; the first match wins.
var rules = []rule{
	{func(s signals) bool { return s.complaints >= 2 && s.sentiment <= -0.2 }, Aggressive},
	{func(s signals) bool { return s.responseTime >= 48 && s.attempts >= 3 }, Evasive},
	{func(s signals) bool { return s.sentiment >= -0.2 && s.sentiment <= 0.1 && s.missed >= 1 }, Confused},
	{func(s signals) bool { return s.sentiment >= 0.2 && s.responseTime <= 24 }, Cooperative},
	{func(s signals) bool { return s.missed >= 2 }, Evasive},
}

// Classify maps a profile to a persona. Missing or malformed inputs fall
// back to per-field defaults, so any profile classifies.
func Classify(p profile.Profile) Persona {
	s := readSignals(p)
	for _, r := range rules {
		if r.match(s) {
			return r.persona
		}
	}
	return Cooperative
}
