package common

import (
	"bytes"
	"encoding/json"
)

// OptionalID distinguishes an absent JSON field from an explicit null.
//
//	{}                      -> Set=false
//	{"field": null}         -> Set=true, Valid=false
//	{"field": "abc"}        -> Set=true, Valid=true, ID="abc"
type OptionalID struct {
	Set   bool
	Valid bool
	ID    string
}

func SomeID(id string) OptionalID {
	return OptionalID{Set: true, Valid: true, ID: id}
}

func NullID() OptionalID {
	return OptionalID{Set: true}
}

// UnmarshalJSON is only invoked when the key is present.
func (o *OptionalID) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Valid = false
		o.ID = ""
		return nil
	}
	if err := json.Unmarshal(data, &o.ID); err != nil {
		return err
	}
	o.Valid = true
	return nil
}

func (o OptionalID) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(o.ID)
}
