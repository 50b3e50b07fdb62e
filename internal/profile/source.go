package profile

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
)

var ErrNotFound = errors.New("profile: customer not found")

// Source looks a customer up in some backing store.
type Source interface {
	Lookup(ctx context.Context, customerID string) (Profile, error)
}

// Loader always produces a usable profile: misses and source failures fall
// back to the demo profile.
type Loader struct {
	src Source
	log *zap.Logger
}

func NewLoader(src Source, log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{src: src, log: log.Named("profile")}
}

func (l *Loader) Load(ctx context.Context, customerID string) Profile {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" || l.src == nil {
		return Demo(customerID)
	}

	p, err := l.src.Lookup(ctx, customerID)
	switch {
	case err == nil:
		return p.Clone()
	case errors.Is(err, ErrNotFound):
		l.log.Info("customer not found, using demo profile", zap.String("customer_id", customerID))
	default:
		l.log.Warn("profile lookup failed, using demo profile",
			zap.String("customer_id", customerID),
			zap.Error(err),
		)
	}
	return Demo(customerID)
}

// Demo returns the built-in demo profile for customerID ("9999" when empty).
func Demo(customerID string) Profile {
	if customerID == "" {
		customerID = "9999"
	}
	return Profile{
		CustomerID:          customerID,
		Name:                "Customer",
		NameFallback:        "Customer",
		Location:            "Urban",
		EmploymentStatus:    "Salaried",
		LoanType:            "Personal",
		Age:                 Num(32),
		Income:              Num(650000),
		LoanAmount:          Num(250000),
		TenureMonths:        Num(18),
		InterestRate:        Num(13.5),
		MissedPayments:      Num(1),
		DelaysDays:          Num(12),
		PartialPayments:     Num(0),
		InteractionAttempts: Num(2),
		SentimentScore:      Num(-0.1),
		ResponseTimeHours:   Num(30),
		AppUsageFrequency:   Num(6),
		WebsiteVisits:       Num(3),
		Complaints:          Num(0),
		Target:              Num(1),
		Outstanding:         Num(18500),
	}
}
