package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// InsightList stores an ordered list of insights in a jsonb column. Nil
// marshals as an empty array so readers never see null.
type InsightList []Insight

func (l InsightList) Value() (driver.Value, error) {
	if l == nil {
		l = InsightList{}
	}
	return json.Marshal(l)
}

func (l *InsightList) Scan(value interface{}) error {
	if value == nil {
		*l = InsightList{}
		return nil
	}
	data, err := jsonbBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, l)
}

// ChatHistory stores ordered chat turns in a jsonb column.
type ChatHistory []ChatMessage

func (h ChatHistory) Value() (driver.Value, error) {
	if h == nil {
		h = ChatHistory{}
	}
	return json.Marshal(h)
}

func (h *ChatHistory) Scan(value interface{}) error {
	if value == nil {
		*h = ChatHistory{}
		return nil
	}
	data, err := jsonbBytes(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, h)
}

func jsonbBytes(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported jsonb source type %T", value)
	}
}
