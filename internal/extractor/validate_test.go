package extractor

import (
	"encoding/json"
	"strings"
	"testing"
)

const validGraphJSON = `{
  "people": [
    {
      "id": "p3_ana", "name": "Ana Pérez (Paciente)", "gender": "F", "generation": 3,
      "birthDate": "1994-01-01", "age": 31, "deathDate": null, "role": "paciente",
      "notes": "", "displayGroup": null,
      "attributes": {"isPatient": true, "isDeceased": false, "isPregnancy": false, "isAbortion": false, "isAdopted": false, "abortionType": null, "gestationalAge": null}
    },
    {
      "id": "p2_luis", "name": "Luis Pérez", "gender": "M", "generation": 2,
      "birthDate": null, "age": null, "deathDate": "2010-05-01", "role": "padre",
      "notes": "falleció de un infarto", "displayGroup": null,
      "attributes": {"isPatient": false, "isDeceased": true, "isPregnancy": false, "isAbortion": false, "isAdopted": false, "abortionType": null, "gestationalAge": null}
    }
  ],
  "relationships": [
    {
      "id": "r1_ana_luis", "source": "p3_ana", "target": "p2_luis", "type": "parentChild",
      "legalStatus": null, "emotionalBond": null, "startDate": null, "endDate": null, "notes": ""
    }
  ]
}`

func TestValidate_AcceptsWellFormedGraph(t *testing.T) {
	graph, warnings, err := Validate(validGraphJSON)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("expected no warnings, got %v", warnings)
	}
	if len(graph.People) != 2 {
		t.Fatalf("expected 2 people, got %d", len(graph.People))
	}
	if len(graph.Relationships) != 1 {
		t.Fatalf("expected 1 relationship, got %d", len(graph.Relationships))
	}
	if !graph.People[1].Attributes.IsDeceased {
		t.Error("expected the father to be marked deceased")
	}
	if graph.People[1].DeathDate == nil || *graph.People[1].DeathDate != "2010-05-01" {
		t.Errorf("expected deathDate 2010-05-01, got %v", graph.People[1].DeathDate)
	}
	if age, ok := graph.People[0].Age.Value(); !ok || age != 31 {
		t.Errorf("expected age 31, got %v %v", age, ok)
	}
}

func TestValidate_EmptyPayload(t *testing.T) {
	if _, _, err := Validate("   "); err == nil {
		t.Fatal("expected an error for an empty payload")
	}
}

func TestValidate_SyntaxErrorNamesOffset(t *testing.T) {
	_, _, err := Validate(`{"people": [,], "relationships": []}`)
	if err == nil {
		t.Fatal("expected a syntax error")
	}
	if !strings.Contains(err.Error(), "offset") {
		t.Errorf("expected the error to name the offset, got %q", err)
	}
	if !strings.Contains(err.Error(), "near:") {
		t.Errorf("expected the error to quote the surrounding text, got %q", err)
	}
}

func TestValidate_TopLevelNotAnObject(t *testing.T) {
	_, _, err := Validate(`[{"people": []}]`)
	if err == nil || !strings.Contains(err.Error(), "not an object") {
		t.Errorf("expected a top-level shape error, got %v", err)
	}
}

func TestValidate_MissingKeysAreNamed(t *testing.T) {
	_, _, err := Validate(`{"people": []}`)
	if err == nil {
		t.Fatal("expected an error for the missing key")
	}
	if !strings.Contains(err.Error(), `"relationships"`) {
		t.Errorf("expected the missing key to be named, got %q", err)
	}

	_, _, err = Validate(`{}`)
	if err == nil || !strings.Contains(err.Error(), `"people"`) || !strings.Contains(err.Error(), `"relationships"`) {
		t.Errorf("expected both missing keys to be named, got %v", err)
	}
}

func TestValidate_KeysMustBeLists(t *testing.T) {
	_, _, err := Validate(`{"people": {}, "relationships": []}`)
	if err == nil || !strings.Contains(err.Error(), `"people"`) {
		t.Errorf("expected a list-type error naming people, got %v", err)
	}
}

func TestValidate_DuplicatePersonID(t *testing.T) {
	payload := strings.Replace(validGraphJSON, `"id": "p2_luis"`, `"id": "p3_ana"`, 1)
	// The relationship target now dangles too, but the duplicate must win:
	// checks run in order.
	_, _, err := Validate(payload)
	if err == nil || !strings.Contains(err.Error(), `"p3_ana" is duplicated`) {
		t.Errorf("expected a duplicate-id error, got %v", err)
	}
}

func TestValidate_DuplicateRelationshipID(t *testing.T) {
	payload := strings.Replace(validGraphJSON, `"relationships": [`, `"relationships": [
    {
      "id": "r1_ana_luis", "source": "p2_luis", "target": "p3_ana", "type": "parentChild",
      "legalStatus": null, "emotionalBond": null, "startDate": null, "endDate": null, "notes": ""
    },`, 1)
	_, _, err := Validate(payload)
	if err == nil || !strings.Contains(err.Error(), `relationship id "r1_ana_luis" is duplicated`) {
		t.Errorf("expected a duplicate relationship id error, got %v", err)
	}
}

func TestValidate_MissingSourceOrTarget(t *testing.T) {
	payload := strings.Replace(validGraphJSON, `"source": "p3_ana"`, `"source": ""`, 1)
	_, _, err := Validate(payload)
	if err == nil || !strings.Contains(err.Error(), "missing its source or target") {
		t.Errorf("expected a missing-endpoint error, got %v", err)
	}
}

func TestValidate_DanglingReference(t *testing.T) {
	payload := strings.Replace(validGraphJSON, `"target": "p2_luis"`, `"target": "p9_nadie"`, 1)
	_, _, err := Validate(payload)
	if err == nil {
		t.Fatal("expected a dangling-reference error")
	}
	if !strings.Contains(err.Error(), `"p9_nadie"`) || !strings.Contains(err.Error(), `"r1_ana_luis"`) {
		t.Errorf("expected the error to name the id and the relationship, got %q", err)
	}
}

func TestValidate_MissingPersonIDIsAWarning(t *testing.T) {
	payload := strings.Replace(validGraphJSON, `"id": "p2_luis"`, `"id": ""`, 1)
	// Drop the relationship so the now-unreferencable person doesn't dangle.
	payload = strings.Replace(payload, `"source": "p3_ana", "target": "p2_luis"`, `"source": "p3_ana", "target": "p3_ana"`, 1)
	graph, warnings, err := Validate(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if graph == nil {
		t.Fatal("expected a graph")
	}
	found := false
	for _, w := range warnings {
		if strings.Contains(w, "has no id") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a missing-id warning, got %v", warnings)
	}
}

func TestValidate_NonIntegerAgeIsAWarning(t *testing.T) {
	payload := strings.Replace(validGraphJSON, `"age": 31`, `"age": "31 años"`, 1)
	graph, warnings, err := Validate(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	found := false
	for _, w := range warnings {
		if strings.Contains(w, "non-integer age") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a non-integer age warning, got %v", warnings)
	}
	if _, ok := graph.People[0].Age.Value(); ok {
		t.Error("expected no usable integer age")
	}
}

func TestValidate_PatientCountWarnings(t *testing.T) {
	none := strings.Replace(validGraphJSON, `"isPatient": true`, `"isPatient": false`, 1)
	_, warnings, err := Validate(none)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "found 0") {
		t.Errorf("expected an isPatient count warning, got %v", warnings)
	}

	two := strings.Replace(validGraphJSON, `"isPatient": false`, `"isPatient": true`, 1)
	_, warnings, err = Validate(two)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "found 2") {
		t.Errorf("expected an isPatient count warning, got %v", warnings)
	}
}

// A graph that validates, once re-serialized, must validate again with the
// same warnings. FlexInt keeps the raw age fragment so type drift survives
// the round trip instead of being silently coerced.
func TestValidate_Idempotent(t *testing.T) {
	payload := strings.Replace(validGraphJSON, `"age": 31`, `"age": "treinta y uno"`, 1)

	graph, warnings, err := Validate(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out, err := json.Marshal(graph)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	graph2, warnings2, err := Validate(string(out))
	if err != nil {
		t.Fatalf("second pass failed: %v", err)
	}
	if len(warnings2) != len(warnings) {
		t.Errorf("expected identical warnings, got %v then %v", warnings, warnings2)
	}
	if graph2.People[0].Age.Raw() != graph.People[0].Age.Raw() {
		t.Errorf("expected the raw age to survive the round trip, got %q then %q",
			graph.People[0].Age.Raw(), graph2.People[0].Age.Raw())
	}
}

func TestValidate_GestationalLossFields(t *testing.T) {
	payload := `{
  "people": [
    {
      "id": "p3_maria", "name": "María (Paciente)", "gender": "F", "generation": 3,
      "birthDate": null, "age": 29, "deathDate": null, "role": "paciente",
      "notes": "", "displayGroup": "pareja_maria_jose",
      "attributes": {"isPatient": true, "isDeceased": false, "isPregnancy": false, "isAbortion": false, "isAdopted": false, "abortionType": null, "gestationalAge": null}
    },
    {
      "id": "p3_jose", "name": "José", "gender": "M", "generation": 3,
      "birthDate": null, "age": null, "deathDate": null, "role": "pareja_paciente",
      "notes": "conviven", "displayGroup": "pareja_maria_jose",
      "attributes": {"isPatient": false, "isDeceased": false, "isPregnancy": false, "isAbortion": false, "isAdopted": false, "abortionType": null, "gestationalAge": null}
    },
    {
      "id": "a1_aborto_maria", "name": "Aborto espontáneo de María", "gender": null, "generation": 4,
      "birthDate": null, "age": null, "deathDate": null, "role": "aborto_materno",
      "notes": "a las 8 semanas", "displayGroup": null,
      "attributes": {"isPatient": false, "isDeceased": true, "isPregnancy": true, "isAbortion": true, "isAdopted": false, "abortionType": "spontaneous", "gestationalAge": 8}
    }
  ],
  "relationships": [
    {
      "id": "r1_pareja", "source": "p3_maria", "target": "p3_jose", "type": "conyugal",
      "legalStatus": "cohabitacion", "emotionalBond": null, "startDate": null, "endDate": null, "notes": ""
    },
    {
      "id": "r2_aborto_maria", "source": "a1_aborto_maria", "target": "p3_maria", "type": "parentChild",
      "legalStatus": null, "emotionalBond": null, "startDate": null, "endDate": null, "notes": ""
    }
  ]
}`

	graph, warnings, err := Validate(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("expected no warnings, got %v", warnings)
	}

	loss := graph.People[2]
	if !loss.Attributes.IsAbortion || !loss.Attributes.IsPregnancy || !loss.Attributes.IsDeceased {
		t.Error("expected the loss node to carry the abortion, pregnancy and deceased flags")
	}
	if loss.Attributes.AbortionType == nil || *loss.Attributes.AbortionType != "spontaneous" {
		t.Errorf("expected abortionType spontaneous, got %v", loss.Attributes.AbortionType)
	}
	if loss.Attributes.GestationalAge == nil || *loss.Attributes.GestationalAge != 8 {
		t.Errorf("expected gestationalAge 8, got %v", loss.Attributes.GestationalAge)
	}
	if loss.Gender != nil {
		t.Errorf("expected a nil gender for the loss node, got %v", *loss.Gender)
	}

	couple := graph.Relationships[0]
	if couple.LegalStatus == nil || *couple.LegalStatus != "cohabitacion" {
		t.Errorf("expected legalStatus cohabitacion, got %v", couple.LegalStatus)
	}
	if graph.People[0].DisplayGroup == nil || graph.People[1].DisplayGroup == nil ||
		*graph.People[0].DisplayGroup != *graph.People[1].DisplayGroup {
		t.Error("expected both partners to share a displayGroup")
	}
}
