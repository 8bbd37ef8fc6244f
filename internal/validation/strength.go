package validation

import "unicode/utf8"

// Level is the coarse password strength bucket shown next to the meter.
type Level uint8

const (
	// Weak is reported only for an empty password.  The scoring table can
	// never produce it.
	Weak Level = iota
	CanBeStronger
	Good
	Excellent
)

func (l Level) String() string {
	switch l {
	case Weak:
		return "Weak"
	case CanBeStronger:
		return "Can be stronger"
	case Good:
		return "Good"
	case Excellent:
		return "Excellent"
	default:
		return "unknown"
	}
}

// Score is the derived strength of one password value.
type Score struct {
	Level      Level  `json:"-"`
	Label      string `json:"level"`
	Percentage int    `json:"percentage"`
}

// specialChars is the punctuation set that counts as a special character.
const specialChars = `!@#$%^&*(),.?":{}|<>`

// checks holds the independent predicates shared by the meter and the
// requirements checklist.
type checks struct {
	runes   int
	upper   bool
	lower   bool
	digit   bool
	special bool
}

func inspect(value string) checks {
	c := checks{runes: utf8.RuneCountInString(value)}
	for _, r := range value {
		switch {
		case r >= 'A' && r <= 'Z':
			c.upper = true
		case r >= 'a' && r <= 'z':
			c.lower = true
		case r >= '0' && r <= '9':
			c.digit = true
		case r < utf8.RuneSelf && isSpecial(byte(r)):
			c.special = true
		}
	}
	return c
}

func isSpecial(b byte) bool {
	for i := 0; i < len(specialChars); i++ {
		if specialChars[i] == b {
			return true
		}
	}
	return false
}

// Strength scores value additively and caps the result at 100.
//
//	length ≥ 5, ≥ 8, ≥ 12     20 points each
//	upper, lower, digit, special  10 points each
//
// 70 and above is Excellent, 40 and above is Good, anything else is
// CanBeStronger.  An empty value yields Weak at 0.
func Strength(value string) Score {
	if value == "" {
		return newScore(Weak, 0)
	}

	c := inspect(value)
	pts := 0
	for _, ok := range []bool{c.runes >= 5, c.runes >= 8, c.runes >= 12} {
		if ok {
			pts += 20
		}
	}
	for _, ok := range []bool{c.upper, c.lower, c.digit, c.special} {
		if ok {
			pts += 10
		}
	}
	if pts > 100 {
		pts = 100
	}

	switch {
	case pts >= 70:
		return newScore(Excellent, pts)
	case pts >= 40:
		return newScore(Good, pts)
	default:
		return newScore(CanBeStronger, pts)
	}
}

func newScore(l Level, pct int) Score {
	return Score{Level: l, Label: l.String(), Percentage: pct}
}

// Requirement is one line of the password checklist.
type Requirement struct {
	Key  string `json:"key"`
	Text string `json:"text"`
	Met  bool   `json:"met"`
}

// Requirements evaluates the fixed checklist shown under the password field.
// The length line always uses five characters, independent of the minimum
// enforced by Password.  Nil is returned for an empty value since the
// checklist is hidden until the user types.
func Requirements(value string) []Requirement {
	if value == "" {
		return nil
	}
	c := inspect(value)
	return []Requirement{
		{Key: "min_length", Text: "Minimum 5 characters", Met: c.runes >= 5},
		{Key: "uppercase", Text: "Add a capital letter", Met: c.upper},
		{Key: "lowercase", Text: "One lowercase letter", Met: c.lower},
		{Key: "digit", Text: "Add a number", Met: c.digit},
		{Key: "special", Text: "Try a special character", Met: c.special},
	}
}
