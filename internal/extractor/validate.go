package extractor

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/vitalia-health/mendel/internal/genogram"
)

// Validate is the correctness gate: it parses a sanitized candidate payload
// into a typed graph, enforcing structure and referential integrity.
//
// Checks run in order and fail fast, each with a distinct message. The same
// text is read by a developer in the logs and forwarded verbatim into the
// correction prompt, so every message names the exact offending key or id.
//
// Structural and referential defects are fatal; cosmetic field-type drift
// the consuming UI can tolerate (a missing person id, a non-integer age, an
// off-count isPatient flag) is returned as warnings instead, so a renderable
// graph is never rejected over it.
func Validate(payload string) (*genogram.Graph, []string, error) {
	if strings.TrimSpace(payload) == "" {
		return nil, nil, fmt.Errorf("the response is empty after sanitization")
	}

	// 1. Syntactic parse.
	var top any
	if err := json.Unmarshal([]byte(payload), &top); err != nil {
		var syn *json.SyntaxError
		if errors.As(err, &syn) {
			return nil, nil, fmt.Errorf("invalid JSON at offset %d: %v; near: %q", syn.Offset, err, excerpt(payload, int(syn.Offset)))
		}
		return nil, nil, fmt.Errorf("invalid JSON: %v", err)
	}

	// 2. Top-level shape.
	obj, ok := top.(map[string]any)
	if !ok {
		return nil, nil, fmt.Errorf("the top-level JSON value is not an object")
	}

	// 3. Required keys.
	var missing []string
	for _, key := range []string{"people", "relationships"} {
		if _, present := obj[key]; !present {
			missing = append(missing, fmt.Sprintf("%q", key))
		}
	}
	if len(missing) > 0 {
		return nil, nil, fmt.Errorf("the JSON is missing the required top-level key(s) %s", strings.Join(missing, ", "))
	}

	// 4. Both keys must be lists.
	for _, key := range []string{"people", "relationships"} {
		if _, isList := obj[key].([]any); !isList {
			return nil, nil, fmt.Errorf("the %q key must be a list", key)
		}
	}

	// 5. Typed decode. FlexInt absorbs age-type drift, so a failure here is
	// a genuine field-type violation worth reporting precisely.
	var graph genogram.Graph
	if err := json.Unmarshal([]byte(payload), &graph); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, nil, fmt.Errorf("field %q must be of type %s, got %s", typeErr.Field, typeErr.Type, typeErr.Value)
		}
		return nil, nil, fmt.Errorf("the JSON does not match the genogram schema: %v", err)
	}

	var warnings []string

	// 6. Per-person checks.
	personIDs := make(map[string]bool, len(graph.People))
	for i, person := range graph.People {
		if person.ID == "" {
			// Permissive on purpose: an id-less person cannot be referenced
			// by any relationship, so the graph stays traversable.
			warnings = append(warnings, fmt.Sprintf("person at index %d has no id", i))
		} else {
			if personIDs[person.ID] {
				return nil, nil, fmt.Errorf("the person id %q is duplicated", person.ID)
			}
			personIDs[person.ID] = true
		}

		if _, ok := person.Age.Value(); !ok && !person.Age.IsNull() {
			warnings = append(warnings, fmt.Sprintf("person %s has a non-integer age %s", personLabel(person.ID, i), person.Age.Raw()))
		}
	}

	if n := graph.PatientCount(); n != 1 {
		warnings = append(warnings, fmt.Sprintf("expected exactly one person with isPatient=true, found %d", n))
	}

	// 7. Per-relationship checks, all fatal.
	relIDs := make(map[string]bool, len(graph.Relationships))
	for i, rel := range graph.Relationships {
		relID := rel.ID
		if relID == "" {
			relID = fmt.Sprintf("rel_%d", i)
		} else {
			if relIDs[relID] {
				return nil, nil, fmt.Errorf("the relationship id %q is duplicated", relID)
			}
			relIDs[relID] = true
		}

		if rel.Source == "" || rel.Target == "" {
			return nil, nil, fmt.Errorf("the relationship %q is missing its source or target", relID)
		}
		if !personIDs[rel.Source] {
			return nil, nil, fmt.Errorf("dangling reference: the source id %q in relationship %q does not exist in the people list", rel.Source, relID)
		}
		if !personIDs[rel.Target] {
			return nil, nil, fmt.Errorf("dangling reference: the target id %q in relationship %q does not exist in the people list", rel.Target, relID)
		}
	}

	return &graph, warnings, nil
}

func personLabel(id string, idx int) string {
	if id != "" {
		return fmt.Sprintf("%q", id)
	}
	return fmt.Sprintf("at index %d", idx)
}

// excerpt returns up to 30 characters of context on each side of pos.
func excerpt(s string, pos int) string {
	start := pos - 30
	if start < 0 {
		start = 0
	}
	end := pos + 30
	if end > len(s) {
		end = len(s)
	}
	if start > len(s) {
		start = len(s)
	}
	return s[start:end]
}
