package store

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Entity is one record as the backend delivers it. Records are kept as field
// maps so a partial push payload can be merged without knowing the full shape.
type Entity map[string]any

// IDOf returns the stable identifier of e, read from "id" or "_id".
func IDOf(e Entity) string {
	if id := idString(e["id"]); id != "" {
		return id
	}
	return idString(e["_id"])
}

func idString(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return id
	case json.Number:
		return id.String()
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	case map[string]any:
		return IDOf(id)
	}
	return fmt.Sprint(v)
}

// Clone returns a shallow copy.
func (e Entity) Clone() Entity {
	out := make(Entity, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// Merge copies the fields of patch over e. Fields absent from patch keep
// their current value.
func (e Entity) Merge(patch Entity) Entity {
	out := e.Clone()
	for k, v := range patch {
		out[k] = v
	}
	return out
}

// String reads a field as a string; ids and numbers are rendered.
func (e Entity) String(key string) string {
	switch v := e[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return idString(v)
	}
}

// Int reads a numeric field, accepting numbers and numeric strings.
func (e Entity) Int(key string) (int64, bool) {
	switch v := e[key].(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n, true
		}
		f, err := v.Float64()
		return int64(f), err == nil
	case float64:
		return int64(v), true
	case int:
		return int64(v), true
	case int64:
		return v, true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return n, err == nil
	}
	return 0, false
}

// Bool reads a boolean field.
func (e Entity) Bool(key string) bool {
	b, _ := e[key].(bool)
	return b
}

// Subject returns the owning user id of a scoped record or event payload.
func (e Entity) Subject() string {
	return idString(e["userId"])
}

// DecodeEntity parses a JSON object, keeping numbers as json.Number.
func DecodeEntity(raw []byte) (Entity, error) {
	var e Entity
	if err := decode(raw, &e); err != nil {
		return nil, err
	}
	return e, nil
}

// DecodeEntities parses a JSON array of objects.
func DecodeEntities(raw []byte) ([]Entity, error) {
	var list []Entity
	if err := decode(raw, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func decode(raw []byte, v any) error {
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()
	return dec.Decode(v)
}
