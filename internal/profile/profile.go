package profile

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Profile is one customer's snapshot, created at session start and never
// mutated afterwards.
type Profile struct {
	CustomerID       string
	Name             string
	NameFallback     string
	Location         string
	EmploymentStatus string
	LoanType         string

	Age                 Field
	Income              Field
	LoanAmount          Field
	TenureMonths        Field
	InterestRate        Field
	MissedPayments      Field
	DelaysDays          Field
	PartialPayments     Field
	InteractionAttempts Field
	SentimentScore      Field
	ResponseTimeHours   Field
	AppUsageFrequency   Field
	WebsiteVisits       Field
	Complaints          Field
	Target              Field
	Outstanding         Field

	// Extra holds attributes a source supplied that have no dedicated field.
	Extra map[string]string
}

type column struct {
	name string
	sql  string
	text func(p *Profile) *string
	num  func(p *Profile) *Field
}

var columns = []column{
	{name: "CustomerID", sql: "customer_id", text: func(p *Profile) *string { return &p.CustomerID }},
	{name: "Name", sql: "name", text: func(p *Profile) *string { return &p.Name }},
	{name: "NameFallback", sql: "name_fallback", text: func(p *Profile) *string { return &p.NameFallback }},
	{name: "Age", sql: "age", num: func(p *Profile) *Field { return &p.Age }},
	{name: "Income", sql: "income", num: func(p *Profile) *Field { return &p.Income }},
	{name: "Location", sql: "location", text: func(p *Profile) *string { return &p.Location }},
	{name: "EmploymentStatus", sql: "employment_status", text: func(p *Profile) *string { return &p.EmploymentStatus }},
	{name: "LoanAmount", sql: "loan_amount", num: func(p *Profile) *Field { return &p.LoanAmount }},
	{name: "TenureMonths", sql: "tenure_months", num: func(p *Profile) *Field { return &p.TenureMonths }},
	{name: "InterestRate", sql: "interest_rate", num: func(p *Profile) *Field { return &p.InterestRate }},
	{name: "LoanType", sql: "loan_type", text: func(p *Profile) *string { return &p.LoanType }},
	{name: "MissedPayments", sql: "missed_payments", num: func(p *Profile) *Field { return &p.MissedPayments }},
	{name: "DelaysDays", sql: "delays_days", num: func(p *Profile) *Field { return &p.DelaysDays }},
	{name: "PartialPayments", sql: "partial_payments", num: func(p *Profile) *Field { return &p.PartialPayments }},
	{name: "InteractionAttempts", sql: "interaction_attempts", num: func(p *Profile) *Field { return &p.InteractionAttempts }},
	{name: "SentimentScore", sql: "sentiment_score", num: func(p *Profile) *Field { return &p.SentimentScore }},
	{name: "ResponseTimeHours", sql: "response_time_hours", num: func(p *Profile) *Field { return &p.ResponseTimeHours }},
	{name: "AppUsageFrequency", sql: "app_usage_frequency", num: func(p *Profile) *Field { return &p.AppUsageFrequency }},
	{name: "WebsiteVisits", sql: "website_visits", num: func(p *Profile) *Field { return &p.WebsiteVisits }},
	{name: "Complaints", sql: "complaints", num: func(p *Profile) *Field { return &p.Complaints }},
	{name: "Target", sql: "target", num: func(p *Profile) *Field { return &p.Target }},
	{name: "Outstanding", sql: "outstanding", num: func(p *Profile) *Field { return &p.Outstanding }},
}

var columnIndex = func() map[string]column {
	m := make(map[string]column, len(columns))
	for _, c := range columns {
		m[c.name] = c
	}
	return m
}()

// Set assigns an attribute by its source column name. Unknown names land in Extra.
func (p *Profile) Set(name, value string) {
	c, ok := columnIndex[name]
	switch {
	case !ok:
		if p.Extra == nil {
			p.Extra = make(map[string]string)
		}
		p.Extra[name] = value
	case c.text != nil:
		*c.text(p) = strings.TrimSpace(value)
	default:
		*c.num(p) = Raw(value)
	}
}

// DisplayName resolves Name, then NameFallback, then "Customer".
func (p Profile) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	if p.NameFallback != "" {
		return p.NameFallback
	}
	return "Customer"
}

// OutstandingAmount resolves Outstanding, then LoanAmount, then 0.
// A field counts only when it holds a number.
func (p Profile) OutstandingAmount() float64 {
	if v, ok := p.Outstanding.number(); ok {
		return v
	}
	if v, ok := p.LoanAmount.number(); ok {
		return v
	}
	return 0
}

// Vars returns every populated attribute keyed by column name. Numeric
// values are float64; anything else is a string. The map is a fresh copy.
func (p Profile) Vars() map[string]any {
	out := make(map[string]any, len(columns)+len(p.Extra))
	for _, c := range columns {
		if c.text != nil {
			if s := *c.text(&p); s != "" {
				out[c.name] = s
			}
			continue
		}
		if f := *c.num(&p); f.Present() {
			out[c.name] = f.value()
		}
	}
	for k, v := range p.Extra {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			out[k] = f
			continue
		}
		out[k] = v
	}
	return out
}

// Clone returns a copy that shares no mutable state with p.
func (p Profile) Clone() Profile {
	if p.Extra != nil {
		extra := make(map[string]string, len(p.Extra))
		for k, v := range p.Extra {
			extra[k] = v
		}
		p.Extra = extra
	}
	return p
}

func (p Profile) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Vars())
}

func (p *Profile) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*p = Profile{}
	for k, v := range raw {
		var f Field
		if err := f.UnmarshalJSON(v); err != nil || !f.Present() {
			continue
		}
		p.Set(k, f.String())
	}
	return nil
}
