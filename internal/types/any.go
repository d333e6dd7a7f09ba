package types

import (
	"encoding/json"
	"fmt"
)

// AnyTask is a task of any kind. The id and status are decoded and the full
// object is kept verbatim, so generic tooling can list and remove tasks
// without knowing the kind's shape.
type AnyTask struct {
	ID     int64
	Status string
	Raw    json.RawMessage
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *AnyTask) UnmarshalJSON(data []byte) error {
	var head struct {
		ID     int64  `json:"id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return fmt.Errorf("decode task: %w", err)
	}
	t.ID = head.ID
	t.Status = head.Status
	t.Raw = append(t.Raw[:0], data...)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (t AnyTask) MarshalJSON() ([]byte, error) {
	if len(t.Raw) == 0 {
		return json.Marshal(map[string]any{"id": t.ID, "status": t.Status})
	}
	return t.Raw, nil
}

func (t AnyTask) TaskID() int64 { return t.ID }
