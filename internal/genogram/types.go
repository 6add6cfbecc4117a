// Package genogram defines the typed family-graph model produced by a
// successful extraction: people (including gestational-loss events) as nodes
// and family/affective links as edges.
package genogram

import (
	"bytes"
	"encoding/json"
)

// Gender values. A nil gender means unknown (e.g. an early pregnancy loss).
const (
	GenderMale   = "M"
	GenderFemale = "F"
)

// Relationship types. These are the only values the model is allowed to emit.
const (
	RelParentChild = "parentChild"
	RelConyugal    = "conyugal"
	RelHermanos    = "hermanos"
	RelMellizos    = "mellizos"
)

// Legal statuses for conyugal relationships.
const (
	LegalMatrimonio   = "matrimonio"
	LegalDivorcio     = "divorcio"
	LegalSeparacion   = "separacion"
	LegalCohabitacion = "cohabitacion"
	LegalCompromiso   = "compromiso"
)

// Emotional bond qualities, inferred from interview phrasing. When several
// cues match, severity wins: violencia > conflicto > distante.
const (
	BondConflicto = "conflicto"
	BondCercana   = "cercana"
	BondDistante  = "distante"
	BondViolencia = "violencia"
	BondRota      = "rota"
)

// Gestational-loss classification.
const (
	AbortionSpontaneous = "spontaneous"
	AbortionInduced     = "induced"
	AbortionStillbirth  = "stillbirth"
	AbortionUnknown     = "unknown"
)

// Graph is the atomic output of one successful extraction. It is handed to
// callers whole; there is no partial or best-effort variant.
type Graph struct {
	People        []Person       `json:"people"`
	Relationships []Relationship `json:"relationships"`
}

// Person is a graph node: an individual or a gestational-loss event.
type Person struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Gender       *string    `json:"gender"`
	Generation   int        `json:"generation"`
	BirthDate    *string    `json:"birthDate"`
	Age          FlexInt    `json:"age"`
	DeathDate    *string    `json:"deathDate"`
	Role         string     `json:"role"`
	Notes        string     `json:"notes"`
	DisplayGroup *string    `json:"displayGroup"`
	Attributes   Attributes `json:"attributes"`
}

// Attributes is the fixed flag record every person carries.
type Attributes struct {
	IsPatient      bool    `json:"isPatient"`
	IsDeceased     bool    `json:"isDeceased"`
	IsPregnancy    bool    `json:"isPregnancy"`
	IsAbortion     bool    `json:"isAbortion"`
	IsAdopted      bool    `json:"isAdopted"`
	AbortionType   *string `json:"abortionType"`
	GestationalAge *int    `json:"gestationalAge"`
}

// Relationship is a graph edge. For parentChild the source MUST be the child
// and the target the parent; this direction is load-bearing for layout.
type Relationship struct {
	ID            string  `json:"id"`
	Source        string  `json:"source"`
	Target        string  `json:"target"`
	Type          string  `json:"type"`
	LegalStatus   *string `json:"legalStatus"`
	EmotionalBond *string `json:"emotionalBond"`
	StartDate     *string `json:"startDate"`
	EndDate       *string `json:"endDate"`
	Notes         string  `json:"notes"`
}

// FlexInt is an optional integer field that models sometimes fill with the
// wrong type ("53 años", 53.0, …). Decoding never fails: the raw JSON is kept
// as-is so the document round-trips unchanged, and Value reports whether a
// usable integer was present. The validator warns on non-integer values.
type FlexInt struct {
	raw json.RawMessage
	val *int
}

// Int returns a FlexInt holding n.
func Int(n int) FlexInt {
	raw, _ := json.Marshal(n)
	return FlexInt{raw: raw, val: &n}
}

// Value returns the integer and whether one was present and well-typed.
func (f FlexInt) Value() (int, bool) {
	if f.val == nil {
		return 0, false
	}
	return *f.val, true
}

// IsNull reports whether the field was absent or JSON null.
func (f FlexInt) IsNull() bool {
	return len(f.raw) == 0 || bytes.Equal(f.raw, []byte("null"))
}

// Raw returns the original JSON fragment, or "null" when absent.
func (f FlexInt) Raw() string {
	if len(f.raw) == 0 {
		return "null"
	}
	return string(f.raw)
}

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	f.raw = append(f.raw[:0], data...)
	f.val = nil

	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		f.val = &n
	}
	return nil
}

func (f FlexInt) MarshalJSON() ([]byte, error) {
	if len(f.raw) == 0 {
		return []byte("null"), nil
	}
	return f.raw, nil
}

// PatientCount returns how many people carry the isPatient flag. Exactly one
// is expected per graph; the validator warns otherwise.
func (g *Graph) PatientCount() int {
	count := 0
	for _, p := range g.People {
		if p.Attributes.IsPatient {
			count++
		}
	}
	return count
}
