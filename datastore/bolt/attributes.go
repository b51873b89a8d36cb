/*
 * Copyright © 2025 CipherStash Inc., All rights reserved.
 */

package bolt

import (
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/pkg/errors"

	"github.com/cipherstash/cipherstash-dynamodb/storagemodels"
)

// attr is the msgpack form of a DynamoDB attribute value. T names the member.
type attr struct {
	T    string          `msgpack:"t"`
	S    string          `msgpack:"s,omitempty"`
	B    []byte          `msgpack:"b,omitempty"`
	Bool bool            `msgpack:"bool,omitempty"`
	SS   []string        `msgpack:"ss,omitempty"`
	BS   [][]byte        `msgpack:"bs,omitempty"`
	L    []attr          `msgpack:"l,omitempty"`
	M    map[string]attr `msgpack:"m,omitempty"`
}

func toAttr(av types.AttributeValue) (attr, error) {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return attr{T: "S", S: v.Value}, nil
	case *types.AttributeValueMemberN:
		return attr{T: "N", S: v.Value}, nil
	case *types.AttributeValueMemberB:
		return attr{T: "B", B: v.Value}, nil
	case *types.AttributeValueMemberBOOL:
		return attr{T: "BOOL", Bool: v.Value}, nil
	case *types.AttributeValueMemberNULL:
		return attr{T: "NULL"}, nil
	case *types.AttributeValueMemberSS:
		return attr{T: "SS", SS: v.Value}, nil
	case *types.AttributeValueMemberNS:
		return attr{T: "NS", SS: v.Value}, nil
	case *types.AttributeValueMemberBS:
		return attr{T: "BS", BS: v.Value}, nil
	case *types.AttributeValueMemberL:
		out := attr{T: "L", L: make([]attr, 0, len(v.Value))}
		for _, el := range v.Value {
			a, err := toAttr(el)
			if err != nil {
				return attr{}, err
			}
			out.L = append(out.L, a)
		}
		return out, nil
	case *types.AttributeValueMemberM:
		m, err := toAttrMap(v.Value)
		if err != nil {
			return attr{}, err
		}
		return attr{T: "M", M: m}, nil
	default:
		return attr{}, errors.Errorf("unsupported attribute value %T", av)
	}
}

func (a attr) value() (types.AttributeValue, error) {
	switch a.T {
	case "S":
		return &types.AttributeValueMemberS{Value: a.S}, nil
	case "N":
		return &types.AttributeValueMemberN{Value: a.S}, nil
	case "B":
		return &types.AttributeValueMemberB{Value: a.B}, nil
	case "BOOL":
		return &types.AttributeValueMemberBOOL{Value: a.Bool}, nil
	case "NULL":
		return &types.AttributeValueMemberNULL{Value: true}, nil
	case "SS":
		return &types.AttributeValueMemberSS{Value: a.SS}, nil
	case "NS":
		return &types.AttributeValueMemberNS{Value: a.SS}, nil
	case "BS":
		return &types.AttributeValueMemberBS{Value: a.BS}, nil
	case "L":
		list := make([]types.AttributeValue, 0, len(a.L))
		for _, el := range a.L {
			v, err := el.value()
			if err != nil {
				return nil, err
			}
			list = append(list, v)
		}
		return &types.AttributeValueMemberL{Value: list}, nil
	case "M":
		m, err := fromAttrMap(a.M)
		if err != nil {
			return nil, err
		}
		return &types.AttributeValueMemberM{Value: m}, nil
	default:
		return nil, errors.Errorf("unknown stored attribute tag %q", a.T)
	}
}

func toAttrMap(item storagemodels.Item) (map[string]attr, error) {
	out := make(map[string]attr, len(item))
	for name, av := range item {
		a, err := toAttr(av)
		if err != nil {
			return nil, errors.WithMessagef(err, "attribute %s", name)
		}
		out[name] = a
	}
	return out, nil
}

func fromAttrMap(m map[string]attr) (storagemodels.Item, error) {
	out := make(storagemodels.Item, len(m))
	for name, a := range m {
		v, err := a.value()
		if err != nil {
			return nil, errors.WithMessagef(err, "attribute %s", name)
		}
		out[name] = v
	}
	return out, nil
}
