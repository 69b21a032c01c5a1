package name

import (
	"fmt"
	"slices"
)

// Title is the coarse category a salutation belongs to.
type Title int

// Known titles. TitleUnknown is never returned alongside a nil error.
const (
	TitleUnknown Title = iota
	TitleMiss
	TitleMrs
	TitleMr
	TitleAffluent
)

var titleNames = [...]string{
	TitleUnknown:  "Unknown",
	TitleMiss:     "Miss",
	TitleMrs:      "Mrs",
	TitleMr:       "Mr",
	TitleAffluent: "Affluent",
}

func (t Title) String() string {
	if t < 0 || int(t) >= len(titleNames) {
		return fmt.Sprintf("Title(%d)", int(t))
	}
	return titleNames[t]
}

// MarshalText encodes the title by name.
func (t Title) MarshalText() ([]byte, error) {
	if t <= TitleUnknown || int(t) >= len(titleNames) {
		return nil, fmt.Errorf("cannot marshal %s", t)
	}
	return []byte(t.String()), nil
}

// UnmarshalText decodes a title by name.
func (t *Title) UnmarshalText(text []byte) error {
	for i := TitleMiss; int(i) < len(titleNames); i++ {
		if titleNames[i] == string(text) {
			*t = i
			return nil
		}
	}
	return fmt.Errorf("unknown title %q", string(text))
}

// salutationTitles is read-only after package initialization.
var salutationTitles = map[string]Title{
	"Miss": TitleMiss,
	"Mlle": TitleMiss,
	"Ms":   TitleMiss,
	"Lady": TitleMiss,
	"Dona": TitleMiss,

	"the Countess": TitleAffluent,
	"Capt":         TitleAffluent,
	"Col":          TitleAffluent,
	"Don":          TitleAffluent,
	"Jonkheer":     TitleAffluent,
	"Major":        TitleAffluent,

	"Mr":     TitleMr,
	"Dr":     TitleMr,
	"Master": TitleMr,
	"Rev":    TitleMr,
	"Sir":    TitleMr,

	"Mrs": TitleMrs,
	"Mme": TitleMrs,
}

// TitleFor resolves the title for a salutation token.
func TitleFor(salutation string) (Title, error) {
	title, ok := salutationTitles[salutation]
	if !ok {
		return TitleUnknown, &SalutationError{Token: salutation}
	}
	return title, nil
}

// Salutations returns the known salutation tokens in sorted order.
func Salutations() []string {
	out := make([]string, 0, len(salutationTitles))
	for s := range salutationTitles {
		out = append(out, s)
	}
	slices.Sort(out)
	return out
}
