package model

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// StringList is a list of labels or URLs stored in a JSON column.
//
// Rows written by older clients hold either a JSON array or a string that
// itself contains an encoded array ("[\"a\",\"b\"]"), so decoding accepts
// both shapes.  A plain non-JSON string becomes a one-element list and
// null/empty becomes an empty list.  Encoding always yields an array, never
// null.
type StringList []string

// ParseStringList decodes any of the accepted shapes.
func ParseStringList(raw []byte) (StringList, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return StringList{}, nil
	}
	if !json.Valid(raw) {
		// bare text that was never JSON encoded, even when it starts with
		// a bracket or a quote
		return compact([]string{string(raw)}), nil
	}
	switch raw[0] {
	case '[':
		var out []string
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("string list: %w", err)
		}
		return compact(out), nil
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("string list: %w", err)
		}
		return ParseStringList([]byte(s))
	default:
		// a bare JSON scalar such as a number
		return compact([]string{string(raw)}), nil
	}
}

func compact(in []string) StringList {
	out := make(StringList, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (l *StringList) UnmarshalJSON(b []byte) error {
	v, err := ParseStringList(b)
	if err != nil {
		return err
	}
	*l = v
	return nil
}

func (l StringList) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(l))
}

// Scan implements sql.Scanner for JSON / TEXT columns.
func (l *StringList) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*l = StringList{}
		return nil
	case []byte:
		return l.UnmarshalJSON(v)
	case string:
		return l.UnmarshalJSON([]byte(v))
	default:
		return fmt.Errorf("string list: unsupported column type %T", src)
	}
}

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	b, err := l.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// First returns the first element or def when the list is empty.
func (l StringList) First(def string) string {
	if len(l) == 0 {
		return def
	}
	return l[0]
}

// Clone copies the list; the result is never nil.
func (l StringList) Clone() StringList {
	out := make(StringList, len(l))
	copy(out, l)
	return out
}
