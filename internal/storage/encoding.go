package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

// encodeStrings serializes a string list for a TEXT column. nil and empty
// both encode as "[]".
func encodeStrings(values []string) (string, error) {
	if len(values) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("failed to encode list: %w", err)
	}
	return string(data), nil
}

// decodeStrings reverses encodeStrings. The result is never nil.
func decodeStrings(text string) ([]string, error) {
	values := []string{}
	if text == "" {
		return values, nil
	}
	if err := json.Unmarshal([]byte(text), &values); err != nil {
		return nil, fmt.Errorf("invalid list data %q: %w", text, err)
	}
	return values, nil
}

// encodeArguments serializes annotation arguments. Keys are sorted by
// encoding/json, so equal maps give equal text.
func encodeArguments(args map[string]string) (string, error) {
	if len(args) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("failed to encode arguments: %w", err)
	}
	return string(data), nil
}

// decodeArguments reverses encodeArguments. The result is never nil.
func decodeArguments(text string) (map[string]string, error) {
	args := map[string]string{}
	if text == "" {
		return args, nil
	}
	if err := json.Unmarshal([]byte(text), &args); err != nil {
		return nil, fmt.Errorf("invalid arguments data %q: %w", text, err)
	}
	return args, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullInt(n *int) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func intPtr(ni sql.NullInt64) *int {
	if !ni.Valid {
		return nil
	}
	n := int(ni.Int64)
	return &n
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
