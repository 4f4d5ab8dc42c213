package remote

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var errUnknownEnvelope = errors.New("unrecognized collection envelope")

// decodeRecords normalizes the collection shapes the API is known to
// return: {"elements": [...]}, {"items": [...]} and a bare array.
func decodeRecords(body []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var records []json.RawMessage
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("decode collection: %w", err)
		}
		return records, nil
	}

	var env struct {
		Elements json.RawMessage `json:"elements"`
		Items    json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, fmt.Errorf("decode collection: %w", err)
	}

	for _, field := range []json.RawMessage{env.Elements, env.Items} {
		if len(field) == 0 {
			continue
		}
		if bytes.Equal(bytes.TrimSpace(field), []byte("null")) {
			return nil, nil
		}
		var records []json.RawMessage
		if err := json.Unmarshal(field, &records); err != nil {
			return nil, fmt.Errorf("decode collection: %w", err)
		}
		return records, nil
	}
	return nil, errUnknownEnvelope
}
