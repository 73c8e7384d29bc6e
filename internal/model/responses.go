package model

import (
	"encoding/json"
	"fmt"
	"slices"
	"sort"
)

// FieldKind is the declared type of an event question.
type FieldKind string

const (
	KindText    FieldKind = "text"
	KindNumber  FieldKind = "number"
	KindBoolean FieldKind = "boolean"
	KindChoice  FieldKind = "choice"
)

func (k FieldKind) valid() bool {
	switch k {
	case KindText, KindNumber, KindBoolean, KindChoice:
		return true
	}
	return false
}

// FieldSpec declares one event-specific question.
type FieldSpec struct {
	ID       string    `json:"id"`
	Label    string    `json:"label"`
	Kind     FieldKind `json:"kind"`
	Required bool      `json:"required"`
	Choices  []string  `json:"choices,omitempty"`
}

// ResponseValue is a single answer. Exactly one of the value fields is
// meaningful, selected by Kind.
type ResponseValue struct {
	Kind   FieldKind
	Text   string
	Number float64
	Bool   bool
	Choice string
}

// Text, Number, Bool and Choice build tagged answers.
func Text(s string) ResponseValue { return ResponseValue{Kind: KindText, Text: s} }
func Number(f float64) ResponseValue { return ResponseValue{Kind: KindNumber, Number: f} }
func Bool(b bool) ResponseValue { return ResponseValue{Kind: KindBoolean, Bool: b} }
func Choice(s string) ResponseValue { return ResponseValue{Kind: KindChoice, Choice: s} }

type wireResponse struct {
	Kind  FieldKind       `json:"kind"`
	Value json.RawMessage `json:"value"`
}

// MarshalJSON encodes the answer as {"kind": ..., "value": ...}.
func (v ResponseValue) MarshalJSON() ([]byte, error) {
	var val any
	switch v.Kind {
	case KindText:
		val = v.Text
	case KindNumber:
		val = v.Number
	case KindBoolean:
		val = v.Bool
	case KindChoice:
		val = v.Choice
	default:
		return nil, fmt.Errorf("response: unknown kind %q", v.Kind)
	}
	raw, err := json.Marshal(val)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireResponse{Kind: v.Kind, Value: raw})
}

// UnmarshalJSON rejects unknown kinds and values of the wrong JSON type.
func (v *ResponseValue) UnmarshalJSON(b []byte) error {
	var w wireResponse
	if err := json.Unmarshal(b, &w); err != nil {
		return fmt.Errorf("response: %w", err)
	}
	if !w.Kind.valid() {
		return fmt.Errorf("response: unknown kind %q", w.Kind)
	}
	if len(w.Value) == 0 {
		return fmt.Errorf("response: %s value missing", w.Kind)
	}
	out := ResponseValue{Kind: w.Kind}
	var err error
	switch w.Kind {
	case KindText:
		err = json.Unmarshal(w.Value, &out.Text)
	case KindNumber:
		err = json.Unmarshal(w.Value, &out.Number)
	case KindBoolean:
		err = json.Unmarshal(w.Value, &out.Bool)
	case KindChoice:
		err = json.Unmarshal(w.Value, &out.Choice)
	}
	if err != nil {
		return fmt.Errorf("response: %s value: %w", w.Kind, err)
	}
	*v = out
	return nil
}

// Responses maps field id to answer.
type Responses map[string]ResponseValue

// FieldError is a single schema violation in an RSVP's responses.
type FieldError struct {
	FieldID string `json:"field_id"`
	Problem string `json:"problem"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("field %q: %s", e.FieldID, e.Problem)
}

// ValidateResponses checks answers against the event's declared fields.
// Errors are returned in field id order.
func (e *Event) ValidateResponses(rs Responses) []FieldError {
	var errs []FieldError
	declared := make(map[string]FieldSpec, len(e.Fields))
	for _, f := range e.Fields {
		declared[f.ID] = f
		if _, ok := rs[f.ID]; !ok && f.Required {
			errs = append(errs, FieldError{FieldID: f.ID, Problem: "required field missing"})
		}
	}
	for id, v := range rs {
		f, ok := declared[id]
		switch {
		case !ok:
			errs = append(errs, FieldError{FieldID: id, Problem: "unknown field"})
		case v.Kind != f.Kind:
			errs = append(errs, FieldError{FieldID: id, Problem: fmt.Sprintf("expected %s, got %s", f.Kind, v.Kind)})
		case f.Kind == KindChoice && !slices.Contains(f.Choices, v.Choice):
			errs = append(errs, FieldError{FieldID: id, Problem: fmt.Sprintf("choice %q not allowed", v.Choice)})
		}
	}
	sort.Slice(errs, func(i, j int) bool { return errs[i].FieldID < errs[j].FieldID })
	return errs
}
