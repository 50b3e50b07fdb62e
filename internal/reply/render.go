package reply

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/Vovarama1992/collection-bot/internal/persona"
	"github.com/Vovarama1992/collection-bot/internal/profile"
)

var ErrRender = errors.New("reply: render failed")

// Vars are the values placeholders resolve against.
type Vars map[string]any

// Variables builds the substitution set for a profile. Profile attributes
// come first; name, outstanding and date are only filled in when the
// profile does not already carry an attribute with that key.
func Variables(p profile.Profile, now time.Time) Vars {
	v := Vars(p.Vars())
	v.setDefault("name", p.DisplayName())
	v.setDefault("outstanding", p.OutstandingAmount())
	v.setDefault("date", now.AddDate(0, 0, 3).Format("2006-01-02"))
	return v
}

func (v Vars) setDefault(key string, val any) {
	if _, ok := v[key]; !ok {
		v[key] = val
	}
}

// Result is the outcome of rendering one template.
type Result struct {
	Text     string
	Template string
	Err      error
}

func (r Result) OK() bool { return r.Err == nil }

// FailOpen returns the rendered text, or the raw template if rendering failed.
func (r Result) FailOpen() string {
	if r.Err != nil {
		return r.Template
	}
	return r.Text
}

// Execute substitutes {key} and {key:spec} placeholders. {{ and }} are
// literal braces.
func Execute(tmpl string, vars Vars) Result {
	fail := func(format string, args ...any) Result {
		return Result{Template: tmpl, Err: fmt.Errorf("%w: "+format, append([]any{ErrRender}, args...)...)}
	}

	var b strings.Builder
	b.Grow(len(tmpl))
	for i := 0; i < len(tmpl); i++ {
		switch c := tmpl[i]; c {
		case '{':
			if i+1 < len(tmpl) && tmpl[i+1] == '{' {
				b.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(tmpl[i+1:], '}')
			if end < 0 {
				return fail("unclosed placeholder at offset %d", i)
			}
			s, err := formatField(tmpl[i+1:i+1+end], vars)
			if err != nil {
				return Result{Template: tmpl, Err: err}
			}
			b.WriteString(s)
			i += end + 1
		case '}':
			if i+1 < len(tmpl) && tmpl[i+1] == '}' {
				b.WriteByte('}')
				i++
				continue
			}
			return fail("single '}' at offset %d", i)
		default:
			b.WriteByte(c)
		}
	}
	return Result{Text: b.String(), Template: tmpl}
}

func formatField(field string, vars Vars) (string, error) {
	name, spec, _ := strings.Cut(field, ":")
	if name == "" || strings.ContainsAny(name, "{ ") {
		return "", fmt.Errorf("%w: bad placeholder %q", ErrRender, field)
	}
	v, ok := vars[name]
	if !ok {
		return "", fmt.Errorf("%w: missing variable %q", ErrRender, name)
	}
	s, err := formatValue(v, spec)
	if err != nil {
		return "", fmt.Errorf("%w: {%s}: %v", ErrRender, field, err)
	}
	return s, nil
}

// specPattern covers the subset of format specs templates use:
// optional thousands grouping, optional precision, f or d.
var specPattern = regexp.MustCompile(`^(,)?(?:\.(\d))?([fd])?$`)

func formatValue(v any, spec string) (string, error) {
	if spec == "" {
		switch x := v.(type) {
		case string:
			return x, nil
		case float64:
			return strconv.FormatFloat(x, 'f', -1, 64), nil
		default:
			return fmt.Sprint(x), nil
		}
	}

	m := specPattern.FindStringSubmatch(spec)
	if m == nil {
		return "", fmt.Errorf("unsupported format spec %q", spec)
	}
	grouped, precText, verb := m[1] == ",", m[2], m[3]

	n, ok := toFloat(v)
	if !ok {
		return "", fmt.Errorf("format spec %q needs a number, got %T", spec, v)
	}

	switch verb {
	case "d":
		if precText != "" {
			return "", fmt.Errorf("precision not allowed with d")
		}
		if n != math.Trunc(n) {
			return "", fmt.Errorf("d needs an integer, got %v", n)
		}
		if n < math.MinInt64 || n >= math.MaxInt64 {
			return "", fmt.Errorf("%v is out of range for d", n)
		}
		if grouped {
			return humanize.Comma(int64(n)), nil
		}
		return strconv.FormatInt(int64(n), 10), nil
	case "f":
		prec := 6
		if precText != "" {
			prec, _ = strconv.Atoi(precText)
		}
		s := strconv.FormatFloat(n, 'f', prec, 64)
		if grouped {
			return groupThousands(s), nil
		}
		return s, nil
	default:
		if precText != "" {
			return "", fmt.Errorf("precision needs f")
		}
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return strconv.FormatFloat(n, 'f', -1, 64), nil
		}
		return humanize.Commaf(n), nil
	}
}

// groupThousands inserts commas into the integer part of a decimal string
// produced by strconv.FormatFloat.
func groupThousands(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	whole, frac, hasFrac := strings.Cut(s, ".")
	if len(whole) <= 3 || strings.ContainsAny(whole, "NaIf") {
		return sign + s
	}

	var b strings.Builder
	b.Grow(len(s) + len(whole)/3 + 1)
	b.WriteString(sign)
	head := len(whole) % 3
	if head == 0 {
		head = 3
	}
	b.WriteString(whole[:head])
	for i := head; i < len(whole); i += 3 {
		b.WriteByte(',')
		b.WriteString(whole[i : i+3])
	}
	if hasFrac {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return b.String()
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	default:
		return 0, false
	}
}

// Renderer resolves a template from the store and renders it for a profile.
type Renderer struct {
	store *Store
	now   func() time.Time
}

func NewRenderer(store *Store, now func() time.Time) *Renderer {
	if store == nil {
		store = Default()
	}
	if now == nil {
		now = time.Now
	}
	return &Renderer{store: store, now: now}
}

func (r *Renderer) Render(category string, p persona.Persona, prof profile.Profile) Result {
	return Execute(r.store.Lookup(category, p), Variables(prof, r.now()))
}
