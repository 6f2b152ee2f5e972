package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/vic-nas/bouncer/internal/model"
)

// Variable-length collections are stored as JSON text columns. The
// encoder's deterministic key order keeps stored rows byte-comparable.

func marshalIDs(ids []int64) (string, error) {
	if ids == nil {
		ids = []int64{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return "", fmt.Errorf("marshal ids: %w", err)
	}
	return string(data), nil
}

func unmarshalIDs(text string) ([]int64, error) {
	if text == "" {
		return nil, nil
	}
	var ids []int64
	if err := json.Unmarshal([]byte(text), &ids); err != nil {
		return nil, fmt.Errorf("unmarshal ids: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return ids, nil
}

func marshalAnswers(answers map[string]string) (string, error) {
	if answers == nil {
		answers = map[string]string{}
	}
	data, err := json.Marshal(answers)
	if err != nil {
		return "", fmt.Errorf("marshal answers: %w", err)
	}
	return string(data), nil
}

func unmarshalAnswers(text string) (map[string]string, error) {
	if text == "" || text == "{}" {
		return nil, nil
	}
	var answers map[string]string
	if err := json.Unmarshal([]byte(text), &answers); err != nil {
		return nil, fmt.Errorf("unmarshal answers: %w", err)
	}
	return answers, nil
}

func marshalOptions(options []model.DropdownOption) (string, error) {
	if options == nil {
		options = []model.DropdownOption{}
	}
	data, err := json.Marshal(options)
	if err != nil {
		return "", fmt.Errorf("marshal options: %w", err)
	}
	return string(data), nil
}

func unmarshalOptions(text string) ([]model.DropdownOption, error) {
	if text == "" || text == "[]" {
		return nil, nil
	}
	var options []model.DropdownOption
	if err := json.Unmarshal([]byte(text), &options); err != nil {
		return nil, fmt.Errorf("unmarshal options: %w", err)
	}
	return options, nil
}

// Timestamps are stored as RFC 3339 text; the zero time as the empty
// string.

func marshalTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func unmarshalTime(text string) (time.Time, error) {
	if text == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, text)
	if err != nil {
		return time.Time{}, fmt.Errorf("unmarshal time: %w", err)
	}
	return t, nil
}
