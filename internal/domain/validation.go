package domain

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxTextRunes caps the optional message text length (in characters).
const MaxTextRunes = 4096

var msisdnRE = regexp.MustCompile(`^\+[0-9]+$`)

// FieldError describes a single rejected field.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError is returned by ParseWebhook when the body is malformed or
// any field violates its constraint. It lists every failing field.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Reason)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, reason string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Reason: reason})
}

// webhookPayload mirrors the inbound JSON. Pointers distinguish a missing
// field from an empty one.
type webhookPayload struct {
	MessageID *string
	From      *string
	To        *string
	TS        *string
	Text      *string
}

// decodePayload reads the canonical keys by exact name. encoding/json
// matches struct tags case-insensitively, so keys such as "MESSAGE_ID" are
// looked up explicitly instead and otherwise ignored like any unknown key.
func decodePayload(body []byte) (webhookPayload, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return webhookPayload{}, err
	}
	var p webhookPayload
	for key, dst := range map[string]**string{
		"message_id": &p.MessageID,
		"from":       &p.From,
		"to":         &p.To,
		"ts":         &p.TS,
		"text":       &p.Text,
	} {
		v, ok := raw[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(v, dst); err != nil {
			return webhookPayload{}, err
		}
	}
	return p, nil
}

// ParseWebhook decodes a raw webhook body and validates it into a Message.
// On failure the error is a *ValidationError. CreatedAt is left empty; the
// store assigns it.
func ParseWebhook(body []byte) (Message, error) {
	p, err := decodePayload(body)
	if err != nil {
		ve := &ValidationError{}
		ve.add("body", "invalid JSON")
		return Message{}, ve
	}

	ve := &ValidationError{}
	switch {
	case p.MessageID == nil:
		ve.add("message_id", "required")
	case *p.MessageID == "":
		ve.add("message_id", "must not be empty")
	}
	checkMSISDN(ve, "from", p.From)
	checkMSISDN(ve, "to", p.To)
	switch {
	case p.TS == nil:
		ve.add("ts", "required")
	case !ValidTimestamp(*p.TS):
		ve.add("ts", "must be ISO-8601 UTC with Z suffix")
	}
	if p.Text != nil && utf8.RuneCountInString(*p.Text) > MaxTextRunes {
		ve.add("text", "text too long")
	}
	if len(ve.Fields) > 0 {
		return Message{}, ve
	}

	return Message{
		MessageID: *p.MessageID,
		From:      *p.From,
		To:        *p.To,
		TS:        *p.TS,
		Text:      p.Text,
	}, nil
}

func checkMSISDN(ve *ValidationError, field string, v *string) {
	if v == nil {
		ve.add(field, "required")
		return
	}
	if !msisdnRE.MatchString(*v) {
		ve.add(field, "must be E.164-like")
	}
}

// ValidTimestamp reports whether s is an ISO-8601 UTC timestamp that ends
// with a literal "Z" and parses as a real instant.
func ValidTimestamp(s string) bool {
	if !strings.HasSuffix(s, "Z") {
		return false
	}
	_, err := time.Parse(time.RFC3339Nano, s)
	return err == nil
}
