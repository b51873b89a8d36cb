/*
 * Copyright © 2025 CipherStash Inc., All rights reserved.
 */

package codec

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-openapi/strfmt"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"

	"github.com/cipherstash/cipherstash-dynamodb/registry"
)

// marshalValue serialises a normalized value for encryption.
func marshalValue(v any) ([]byte, error) {
	if dt, ok := v.(strfmt.DateTime); ok {
		v = time.Time(dt)
	}
	var buf bytes.Buffer
	enc := msgpack.GetEncoder()
	enc.Reset(&buf)
	enc.SetSortMapKeys(true)
	err := enc.Encode(v)
	msgpack.PutEncoder(enc)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// unmarshalValue reverses marshalValue for a field of the given kind.
func unmarshalValue(kind registry.Kind, b []byte) (any, error) {
	if len(b) == 1 && b[0] == msgpcode.Nil {
		return nil, nil
	}

	var r bytes.Reader
	r.Reset(b)
	dec := msgpack.GetDecoder()
	dec.Reset(&r)
	dec.UseLooseInterfaceDecoding(true)
	defer msgpack.PutDecoder(dec)

	switch kind {
	case registry.String:
		return dec.DecodeString()
	case registry.Int:
		return dec.DecodeInt64()
	case registry.Float:
		return dec.DecodeFloat64()
	case registry.Bool:
		return dec.DecodeBool()
	case registry.Bytes:
		return dec.DecodeBytes()
	case registry.Time:
		t, err := dec.DecodeTime()
		if err != nil {
			return nil, err
		}
		return t.UTC(), nil
	case registry.DateTime:
		t, err := dec.DecodeTime()
		if err != nil {
			return nil, err
		}
		return strfmt.DateTime(t.UTC()), nil
	default:
		return dec.DecodeInterfaceLoose()
	}
}

// plaintextAttribute renders a normalized value as a native attribute.
func plaintextAttribute(kind registry.Kind, v any) (types.AttributeValue, error) {
	if v == nil {
		return &types.AttributeValueMemberNULL{Value: true}, nil
	}
	switch x := v.(type) {
	case string:
		return &types.AttributeValueMemberS{Value: x}, nil
	case int64:
		return &types.AttributeValueMemberN{Value: strconv.FormatInt(x, 10)}, nil
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil, fmt.Errorf("%v cannot be stored as a number", x)
		}
		return &types.AttributeValueMemberN{Value: strconv.FormatFloat(x, 'f', -1, 64)}, nil
	case bool:
		return &types.AttributeValueMemberBOOL{Value: x}, nil
	case []byte:
		return &types.AttributeValueMemberB{Value: x}, nil
	case time.Time:
		return &types.AttributeValueMemberS{Value: x.Format(time.RFC3339Nano)}, nil
	case strfmt.DateTime:
		return &types.AttributeValueMemberS{Value: time.Time(x).Format(time.RFC3339Nano)}, nil
	}
	if kind == registry.Any {
		return attributevalue.Marshal(v)
	}
	return nil, fmt.Errorf("unsupported value %T for %s", v, kind)
}

// plaintextValue reverses plaintextAttribute.
func plaintextValue(kind registry.Kind, av types.AttributeValue) (any, error) {
	if _, ok := av.(*types.AttributeValueMemberNULL); ok {
		return nil, nil
	}
	switch kind {
	case registry.String:
		if s, ok := av.(*types.AttributeValueMemberS); ok {
			return s.Value, nil
		}
	case registry.Int:
		if n, ok := av.(*types.AttributeValueMemberN); ok {
			return strconv.ParseInt(n.Value, 10, 64)
		}
	case registry.Float:
		if n, ok := av.(*types.AttributeValueMemberN); ok {
			return strconv.ParseFloat(n.Value, 64)
		}
	case registry.Bool:
		if b, ok := av.(*types.AttributeValueMemberBOOL); ok {
			return b.Value, nil
		}
	case registry.Bytes:
		if b, ok := av.(*types.AttributeValueMemberB); ok {
			return b.Value, nil
		}
	case registry.Time, registry.DateTime:
		if s, ok := av.(*types.AttributeValueMemberS); ok {
			t, err := time.Parse(time.RFC3339Nano, s.Value)
			if err != nil {
				return nil, err
			}
			if kind == registry.DateTime {
				return strfmt.DateTime(t.UTC()), nil
			}
			return t.UTC(), nil
		}
	case registry.Any:
		var out any
		if err := attributevalue.Unmarshal(av, &out); err != nil {
			return nil, err
		}
		return out, nil
	}
	return nil, fmt.Errorf("attribute %T does not hold a %s", av, kind)
}
