package types

import "encoding/json"

// DrawingObject is one labeled element of a drawing snapshot. Only ID,
// Type and the position are interpreted by the comparison engine; every
// other attribute rides along in Attrs untouched.
type DrawingObject struct {
	ID    string                 `json:"id"`
	Type  string                 `json:"type,omitempty"`
	X     *float64               `json:"x,omitempty"`
	Y     *float64               `json:"y,omitempty"`
	Attrs map[string]interface{} `json:"-"`
}

// TypeOrDefault returns the object type, or "object" when unset.
func (o *DrawingObject) TypeOrDefault() string {
	if o.Type == "" {
		return "object"
	}
	return o.Type
}

// HasPosition reports whether both coordinates are present.
func (o *DrawingObject) HasPosition() bool {
	return o.X != nil && o.Y != nil
}

// UnmarshalJSON decodes the known fields and keeps any remaining keys
// in Attrs so records survive a diff round-trip intact.
func (o *DrawingObject) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	type known struct {
		ID   string   `json:"id"`
		Type string   `json:"type"`
		X    *float64 `json:"x"`
		Y    *float64 `json:"y"`
	}
	var k known
	if err := json.Unmarshal(data, &k); err != nil {
		return err
	}
	o.ID, o.Type, o.X, o.Y = k.ID, k.Type, k.X, k.Y

	delete(raw, "id")
	delete(raw, "type")
	delete(raw, "x")
	delete(raw, "y")
	if len(raw) > 0 {
		o.Attrs = make(map[string]interface{}, len(raw))
		for key, val := range raw {
			var v interface{}
			if err := json.Unmarshal(val, &v); err != nil {
				return err
			}
			o.Attrs[key] = v
		}
	}
	return nil
}

// MarshalJSON re-emits the known fields alongside the preserved Attrs.
func (o DrawingObject) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(o.Attrs)+4)
	for k, v := range o.Attrs {
		out[k] = v
	}
	out["id"] = o.ID
	if o.Type != "" {
		out["type"] = o.Type
	}
	if o.X != nil {
		out["x"] = *o.X
	}
	if o.Y != nil {
		out["y"] = *o.Y
	}
	return json.Marshal(out)
}

// Snapshot is one version of a drawing: an ordered collection of
// identifiable objects plus optional identifying metadata.
type Snapshot struct {
	ID      string          `json:"id,omitempty"`
	Label   string          `json:"label,omitempty"`
	Objects []DrawingObject `json:"objects"`
}

// ObjectCount returns the number of objects in the snapshot.
func (s *Snapshot) ObjectCount() int {
	return len(s.Objects)
}
