package models

import (
	"bytes"
	"encoding/json"
	"math"
)

// Float is a float64 whose undefined values (NaN, ±Inf) encode as JSON null.
type Float float64

// MarshalJSON implements json.Marshaler.
func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

// UnmarshalJSON implements json.Unmarshaler. null decodes to NaN.
func (f *Float) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*f = Float(math.NaN())
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = Float(v)
	return nil
}

// IsDefined reports whether the value is a finite number.
func (f Float) IsDefined() bool {
	v := float64(f)
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
