package util

import "encoding/json"

// DecodeJSONQuery parses a JSON-encoded query parameter (the "filters" and
// "sort" params carry JSON documents). Empty input yields the zero value
// and no error.
func DecodeJSONQuery[T any](raw string) (T, error) {
	var v T
	if raw == "" {
		return v, nil
	}
	err := json.Unmarshal([]byte(raw), &v)
	return v, err
}
