package intent

import (
	"regexp"
	"strings"
)

// Intent is the communicative purpose of a single customer message.
type Intent string

const (
	Greeting      Intent = "greeting"
	AskDue        Intent = "ask_due"
	AskAmount     Intent = "ask_amount"
	PromisePay    Intent = "promise_pay"
	NeedExtension Intent = "need_extension"
	Hardship      Intent = "hardship"
	Dispute       Intent = "dispute"
	ConnectAgent  Intent = "connect_agent"
	Goodbye       Intent = "goodbye"
	Unknown       Intent = "unknown"
)

// All lists every intent in rule order, Unknown last.
func All() []Intent {
	return []Intent{
		Greeting, AskDue, AskAmount, PromisePay, NeedExtension,
		Hardship, Dispute, ConnectAgent, Goodbye, Unknown,
	}
}

func (i Intent) String() string { return string(i) }

type rule struct {
	intent   Intent
	patterns []*regexp.Regexp
}

// Declaration order decides ties: "hi, when is it due" is a greeting.
var defaultRules = []rule{
	{Greeting, compile(`(hi|hello|hey|good (morning|evening|afternoon))`)},
	{AskDue, compile(`(due|deadline|date|when|pending)`)},
	{AskAmount, compile(`(amount|balance|how much|outstanding|due amount)`)},
	{PromisePay, compile(`(promise|will pay|pay (by|on)|settle on)`)},
	{NeedExtension, compile(`(extension|extra time|grace|postpone|defer|push)`)},
	{Hardship, compile(`(hardship|lost job|medical|emergency|cannot pay|financial issue)`)},
	{Dispute, compile(`(dispute|wrong|incorrect|not mine|error|chargeback)`)},
	{ConnectAgent, compile(`(agent|human|representative|call me|talk to someone)`)},
	{Goodbye, compile(`(bye|goodbye|thanks|thank you|see you)`)},
}

// RE2's \b only knows ASCII word characters, so keywords are delimited by
// explicit boundaries where any Unicode letter, digit or underscore counts
// as part of a word.
const (
	wordStart = `(?:^|[^\p{L}\p{N}_])`
	wordEnd   = `(?:$|[^\p{L}\p{N}_])`
)

func compile(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(`(?i)` + wordStart + `(?:` + p + `)` + wordEnd)
	}
	return out
}

// Detector maps free text to an intent with a fixed, ordered keyword rule list.
type Detector struct {
	rules []rule
}

func NewDetector() *Detector {
	return &Detector{rules: defaultRules}
}

// Detect returns the intent of the first rule with a matching pattern, or Unknown.
func (d *Detector) Detect(text string) Intent {
	t := strings.TrimSpace(strings.ToLower(text))
	if t == "" {
		return Unknown
	}
	for _, r := range d.rules {
		for _, p := range r.patterns {
			if p.MatchString(t) {
				return r.intent
			}
		}
	}
	return Unknown
}
