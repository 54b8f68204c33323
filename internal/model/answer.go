package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

type AnswerKind string

const (
	AnswerChoice       AnswerKind = "choice"
	AnswerFillInBlanks AnswerKind = "fill-in-blanks"
	AnswerTranslation  AnswerKind = "translation"
	// AnswerChoiceOrFill marks a generated single-letter A-D answer whose
	// choice/fill distinction the model did not settle.
	AnswerChoiceOrFill AnswerKind = "choice|fill-in-blanks"
	AnswerUnknown      AnswerKind = "unknown"
)

// ParseAnswerKind maps a kind label to its AnswerKind; unrecognized labels
// are AnswerUnknown.
func ParseAnswerKind(s string) AnswerKind {
	switch k := AnswerKind(s); k {
	case AnswerChoice, AnswerFillInBlanks, AnswerTranslation, AnswerChoiceOrFill:
		return k
	default:
		return AnswerUnknown
	}
}

// Degradable reports whether an answer of this kind has an enumerable set of
// wrong options. The ambiguous marker counts as a choice.
func (k AnswerKind) Degradable() bool {
	return k == AnswerChoice || k == AnswerChoiceOrFill
}

// Content is a single answer string or a set of acceptable alternatives. It
// encodes to JSON as a string or an array of strings respectively.
type Content struct {
	values []string
}

func Single(s string) Content { return Content{values: []string{s}} }

func Alternatives(vs ...string) Content {
	return Content{values: append([]string(nil), vs...)}
}

func (c Content) IsAlternatives() bool { return len(c.values) > 1 }

func (c Content) Values() []string { return append([]string(nil), c.values...) }

// Text returns the single value, or the alternatives joined by "/".
func (c Content) Text() string { return strings.Join(c.values, "/") }

func (c Content) String() string {
	if c.IsAlternatives() {
		return fmt.Sprintf("%q", c.values)
	}
	return c.Text()
}

func (c Content) MarshalJSON() ([]byte, error) {
	if c.IsAlternatives() {
		return json.Marshal(c.values)
	}
	return json.Marshal(c.Text())
}

func (c *Content) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		var vs []string
		if err := json.Unmarshal(b, &vs); err != nil {
			return err
		}
		if len(vs) == 0 {
			return fmt.Errorf("empty alternatives")
		}
		c.values = vs
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	c.values = []string{s}
	return nil
}

// Answer is the canonical answer entry every upstream encoding is normalized
// into.
type Answer struct {
	Index   int        `json:"index"`
	ID      string     `json:"id"`
	Kind    AnswerKind `json:"kind"`
	Content Content    `json:"content"`
}

// AnswerSet is the persisted form of a derived or generated answer list.
type AnswerSet struct {
	Homework string   `json:"homework"`
	Source   string   `json:"source"`
	Answers  []Answer `json:"answers"`
}
