package postgres

import (
	"encoding/json"

	"github.com/bancozim/origination/domain"
)

func marshalJSON(v interface{}) []byte {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}

func marshalMap(data map[string]string) []byte {
	if len(data) == 0 {
		return nil
	}
	return marshalJSON(data)
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// unmarshalColumn decodes a JSONB column. A blob that no longer parses is
// data corruption and fails the read; it must never surface as an empty
// value that would restart a customer's journey.
func unmarshalColumn(column string, raw []byte, dst interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return domain.WrapError(domain.ErrCodeInternal, "corrupt "+column+" payload", err)
	}
	return nil
}
