/*
 * Copyright © 2025 CipherStash Inc., All rights reserved.
 */

package registry

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/go-openapi/strfmt"
)

// Kind is the value shape of a field.
type Kind int

const (
	String Kind = iota + 1
	Int
	Float
	Bool
	Bytes
	Time
	DateTime
	Any
)

func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case Int:
		return "int"
	case Float:
		return "float"
	case Bool:
		return "bool"
	case Bytes:
		return "bytes"
	case Time:
		return "time"
	case DateTime:
		return "datetime"
	case Any:
		return "any"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind maps a schema-file kind name onto a Kind.
func ParseKind(s string) (Kind, bool) {
	for k := String; k <= Any; k++ {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}

// Indexable reports whether values of this kind can be blinded into terms.
func (k Kind) Indexable() bool {
	return k != Any && k != 0
}

// Normalize checks v against the kind and converts it to the canonical Go
// representation: string, int64, float64, bool, []byte, time.Time or
// strfmt.DateTime, both in UTC. Any passes through untouched.
func (k Kind) Normalize(v any) (any, error) {
	switch k {
	case String:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case Int:
		if i, ok := toInt64(v); ok {
			return i, nil
		}
	case Float:
		switch f := v.(type) {
		case float64:
			return f, nil
		case float32:
			return float64(f), nil
		}
		if i, ok := toInt64(v); ok {
			return float64(i), nil
		}
	case Bool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case Bytes:
		if b, ok := v.([]byte); ok {
			return b, nil
		}
	case Time:
		switch t := v.(type) {
		case time.Time:
			return t.UTC(), nil
		case strfmt.DateTime:
			return time.Time(t).UTC(), nil
		}
	case DateTime:
		switch t := v.(type) {
		case strfmt.DateTime:
			return strfmt.DateTime(time.Time(t).UTC()), nil
		case *strfmt.DateTime:
			if t != nil {
				return strfmt.DateTime(time.Time(*t).UTC()), nil
			}
		case time.Time:
			return strfmt.DateTime(t.UTC()), nil
		}
	case Any:
		return v, nil
	}
	return nil, fmt.Errorf("value of type %T is not a %s", v, k)
}

// Canonical renders an indexable value as the plaintext fed to blinding and
// embedded in sort keys. Equal values always render identically.
func (k Kind) Canonical(v any) (string, error) {
	if !k.Indexable() {
		return "", fmt.Errorf("%s values cannot be indexed", k)
	}
	n, err := k.Normalize(v)
	if err != nil {
		return "", err
	}
	switch x := n.(type) {
	case string:
		return x, nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float64:
		if x == 0 {
			// -0 and 0 compare equal and must blind alike.
			x = 0
		}
		return strconv.FormatFloat(x, 'g', -1, 64), nil
	case bool:
		return strconv.FormatBool(x), nil
	case []byte:
		return string(x), nil
	case time.Time:
		return x.Format(time.RFC3339Nano), nil
	case strfmt.DateTime:
		return time.Time(x).UTC().Format(time.RFC3339Nano), nil
	}
	return "", fmt.Errorf("unexpected %T for %s", n, k)
}

// Parse reverses Canonical.
func (k Kind) Parse(s string) (any, error) {
	switch k {
	case String:
		return s, nil
	case Int:
		return strconv.ParseInt(s, 10, 64)
	case Float:
		return strconv.ParseFloat(s, 64)
	case Bool:
		return strconv.ParseBool(s)
	case Bytes:
		return []byte(s), nil
	case Time:
		return time.Parse(time.RFC3339Nano, s)
	case DateTime:
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return nil, err
		}
		return strfmt.DateTime(t), nil
	}
	return nil, fmt.Errorf("%s values cannot be parsed from a key", k)
}

func toInt64(v any) (int64, bool) {
	switch i := v.(type) {
	case int:
		return int64(i), true
	case int8:
		return int64(i), true
	case int16:
		return int64(i), true
	case int32:
		return int64(i), true
	case int64:
		return i, true
	case uint8:
		return int64(i), true
	case uint16:
		return int64(i), true
	case uint32:
		return int64(i), true
	case uint:
		if uint64(i) <= math.MaxInt64 {
			return int64(i), true
		}
	case uint64:
		if i <= math.MaxInt64 {
			return int64(i), true
		}
	}
	return 0, false
}
