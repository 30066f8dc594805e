package alert

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformed is returned when a non-empty feed payload is not an alert record.
var ErrMalformed = errors.New("malformed alert payload")

// Alert is one record of the upstream feed. Identity is ID.
type Alert struct {
	// ID identifies the alert across polls.
	ID int64 `json:"id"`
	// Category is the upstream threat category code.
	Category int `json:"cat,omitempty"`
	// Title is the short headline of the event.
	Title string `json:"title"`
	// Regions lists the affected areas in feed order.
	Regions []string `json:"data"`
	// Description carries the instructions attached to the event.
	Description string `json:"desc"`
	// Raw is the record exactly as received.
	Raw json.RawMessage `json:"-"`
}

// wireAlert mirrors the feed JSON. Numeric fields arrive as numbers or as
// numeric strings depending on the feed version.
type wireAlert struct {
	ID       json.RawMessage `json:"id"`
	Category json.RawMessage `json:"cat"`
	Title    string          `json:"title"`
	Data     []string        `json:"data"`
	Desc     string          `json:"desc"`
}

// Parse decodes a trimmed, non-empty feed payload.
func Parse(payload string) (*Alert, error) {
	raw := []byte(strings.TrimSpace(payload))
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrMalformed)
	}

	var wire wireAlert
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	id, err := parseNumber(wire.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: id: %w", ErrMalformed, err)
	}

	// The category is informational only, an unreadable value leaves it at 0.
	category, err := parseNumber(wire.Category)
	if err != nil {
		category = 0
	}

	compacted := new(bytes.Buffer)
	if err = json.Compact(compacted, raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	return &Alert{
		ID:          id,
		Category:    int(category),
		Title:       wire.Title,
		Regions:     wire.Data,
		Description: wire.Desc,
		Raw:         compacted.Bytes(),
	}, nil
}

// parseNumber accepts 42 and "42".
func parseNumber(raw json.RawMessage) (int64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, errors.New("missing")
	}

	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, err
		}
	}

	return strconv.ParseInt(strings.TrimSpace(text), 10, 64)
}

// MarshalJSON emits the record as received when available.
func (a *Alert) MarshalJSON() ([]byte, error) {
	if len(a.Raw) > 0 {
		return a.Raw, nil
	}

	type plain Alert

	return json.Marshal((*plain)(a))
}

// HasRegion reports whether region is one of the alert regions.
func (a *Alert) HasRegion(region string) bool {
	for _, r := range a.Regions {
		if r == region {
			return true
		}
	}

	return false
}
