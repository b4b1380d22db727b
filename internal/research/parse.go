package research

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/jonathan/company-updater/internal/llm"
	"github.com/jonathan/company-updater/internal/schemas"
	"github.com/jonathan/company-updater/internal/types"
)

// ParsePartial validates payload against schema and decodes it. Keys set to
// null are treated as absent.
func ParsePartial(schema llm.ExtractionSchema, payload string) (*types.PartialCompany, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(payload), &fields); err != nil {
		return nil, fmt.Errorf("payload is not a JSON object: %w", err)
	}
	for key, raw := range fields {
		if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			delete(fields, key)
		}
	}
	cleaned, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to re-encode payload: %w", err)
	}

	if err := schemas.ValidateJSONString(schema.JSONSchema(), string(cleaned)); err != nil {
		return nil, err
	}

	var partial types.PartialCompany
	if err := json.Unmarshal(cleaned, &partial); err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}
	return &partial, nil
}
