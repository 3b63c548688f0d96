package model

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MenuItem is a catalog entry. Prices holds one entry per portion label.
type MenuItem struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Prices      PriceMap  `json:"prices"`
	Available   bool      `json:"available"`
	Description string    `json:"description,omitempty"`
	Allergens   []string  `json:"allergens,omitempty"`
	SpiceLevel  int       `json:"spiceLevel,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Portion is one named price variant of a menu item.
type Portion struct {
	Label string
	Price decimal.Decimal

	// raw keeps a value that could not be read as a number so it survives a
	// round trip through storage untouched.
	raw json.RawMessage
}

// Valid reports whether the portion can be sold: a readable price above zero.
func (p Portion) Valid() bool {
	return p.raw == nil && p.Price.IsPositive()
}

// PriceMap is an ordered portion-label to price mapping. Decoding keeps the
// key order of the source document and never fails on a bad price value.
type PriceMap []Portion

// UnmarshalJSON reads a JSON object of label to price. A bare number is read
// as a single "standard" portion; anything else yields an empty map.
func (m *PriceMap) UnmarshalJSON(data []byte) error {
	*m = nil

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	if trimmed[0] != '{' {
		var d decimal.Decimal
		if err := d.UnmarshalJSON(trimmed); err == nil {
			*m = PriceMap{{Label: "standard", Price: d}}
		}
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	if _, err := dec.Token(); err != nil {
		return err
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		label, _ := tok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		m.put(parsePortion(label, raw))
	}
	_, err := dec.Token()
	return err
}

func parsePortion(label string, raw json.RawMessage) Portion {
	var d decimal.Decimal
	if bytes.Equal(raw, []byte("null")) || d.UnmarshalJSON(raw) != nil {
		return Portion{Label: label, raw: append(json.RawMessage(nil), raw...)}
	}
	return Portion{Label: label, Price: d}
}

// MarshalJSON writes the map as a JSON object in portion order.
func (m PriceMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(p.Label)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if p.raw != nil {
			buf.Write(p.raw)
		} else {
			buf.WriteString(p.Price.String())
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Set replaces the price of label, or appends a new portion.
func (m *PriceMap) Set(label string, price decimal.Decimal) {
	m.put(Portion{Label: label, Price: price})
}

// put keeps one portion per label: a repeated label takes the later value
// in the earlier position.
func (m *PriceMap) put(p Portion) {
	for i := range *m {
		if (*m)[i].Label == p.Label {
			(*m)[i] = p
			return
		}
	}
	*m = append(*m, p)
}
