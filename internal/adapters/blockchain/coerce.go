package blockchain

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

var bigIntType = reflect.TypeOf(&big.Int{})

// CoerceArgs converts loosely typed queue arguments into the Go types
// go-ethereum expects for each ABI input.
func CoerceArgs(inputs abi.Arguments, args []any) ([]any, error) {
	if len(args) != len(inputs) {
		return nil, fmt.Errorf("expected %d arguments, got %d", len(inputs), len(args))
	}

	out := make([]any, len(args))
	for i, input := range inputs {
		v, err := coerce(input.Type, args[i])
		if err != nil {
			name := input.Name
			if name == "" {
				name = strconv.Itoa(i)
			}
			return nil, fmt.Errorf("argument %s (%s): %w", name, input.Type.String(), err)
		}
		out[i] = v
	}
	return out, nil
}

func coerce(t abi.Type, v any) (any, error) {
	if v != nil && reflect.TypeOf(v) == t.GetType() {
		return v, nil
	}

	switch t.T {
	case abi.AddressTy:
		s, ok := v.(string)
		if !ok || !common.IsHexAddress(s) {
			return nil, fmt.Errorf("invalid address %v", v)
		}
		return common.HexToAddress(s), nil

	case abi.IntTy, abi.UintTy:
		n, err := toBigInt(v)
		if err != nil {
			return nil, err
		}
		return sizedInt(t, n)

	case abi.BoolTy:
		switch b := v.(type) {
		case bool:
			return b, nil
		case string:
			return strconv.ParseBool(b)
		}
		return nil, fmt.Errorf("invalid bool %v", v)

	case abi.StringTy:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("invalid string %v", v)
		}
		return s, nil

	case abi.BytesTy:
		return toBytes(v)

	case abi.FixedBytesTy, abi.HashTy:
		b, err := toBytes(v)
		if err != nil {
			return nil, err
		}
		size := t.Size
		if t.T == abi.HashTy {
			size = common.HashLength
		}
		if len(b) != size {
			return nil, fmt.Errorf("expected %d bytes, got %d", size, len(b))
		}
		arr := reflect.New(t.GetType()).Elem()
		reflect.Copy(arr, reflect.ValueOf(b))
		return arr.Interface(), nil

	case abi.SliceTy, abi.ArrayTy:
		items, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("expected a list, got %T", v)
		}
		var target reflect.Value
		if t.T == abi.SliceTy {
			target = reflect.MakeSlice(t.GetType(), len(items), len(items))
		} else {
			if len(items) != t.Size {
				return nil, fmt.Errorf("expected %d elements, got %d", t.Size, len(items))
			}
			target = reflect.New(t.GetType()).Elem()
		}
		for i, item := range items {
			elem, err := coerce(*t.Elem, item)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			target.Index(i).Set(reflect.ValueOf(elem))
		}
		return target.Interface(), nil

	case abi.TupleTy:
		target := reflect.New(t.GetType()).Elem()
		for i, elemType := range t.TupleElems {
			var raw any
			switch fields := v.(type) {
			case map[string]any:
				raw = fields[t.TupleRawNames[i]]
			case []any:
				if len(fields) != len(t.TupleElems) {
					return nil, fmt.Errorf("expected %d tuple fields, got %d", len(t.TupleElems), len(fields))
				}
				raw = fields[i]
			default:
				return nil, fmt.Errorf("expected an object or list for tuple, got %T", v)
			}
			elem, err := coerce(*elemType, raw)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", t.TupleRawNames[i], err)
			}
			target.Field(i).Set(reflect.ValueOf(elem))
		}
		return target.Interface(), nil
	}

	return nil, fmt.Errorf("unsupported ABI type %s", t.String())
}

func toBigInt(v any) (*big.Int, error) {
	switch n := v.(type) {
	case *big.Int:
		if n == nil {
			return nil, fmt.Errorf("nil integer")
		}
		return n, nil
	case string:
		s := strings.TrimSpace(n)
		if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
			return hexutil.DecodeBig(s)
		}
		out, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return nil, fmt.Errorf("invalid integer %q", n)
		}
		return out, nil
	case json.Number:
		return toBigInt(n.String())
	case float64:
		if n != math.Trunc(n) {
			return nil, fmt.Errorf("non-integral number %v", n)
		}
		out, _ := big.NewFloat(n).Int(nil)
		return out, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return big.NewInt(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return new(big.Int).SetUint64(rv.Uint()), nil
	}
	return nil, fmt.Errorf("invalid integer %v (%T)", v, v)
}

// sizedInt range-checks n against the ABI type and converts it to the
// native Go integer go-ethereum uses for 8/16/32/64-bit widths.
func sizedInt(t abi.Type, n *big.Int) (any, error) {
	if t.T == abi.UintTy {
		if n.Sign() < 0 {
			return nil, fmt.Errorf("negative value %s for unsigned type", n)
		}
		if n.BitLen() > t.Size {
			return nil, fmt.Errorf("value %s overflows uint%d", n, t.Size)
		}
	} else {
		limit := new(big.Int).Lsh(big.NewInt(1), uint(t.Size-1))
		if n.Cmp(limit) >= 0 || n.Cmp(new(big.Int).Neg(limit)) < 0 {
			return nil, fmt.Errorf("value %s overflows int%d", n, t.Size)
		}
	}

	goType := t.GetType()
	if goType == bigIntType {
		return new(big.Int).Set(n), nil
	}
	if t.T == abi.UintTy {
		return reflect.ValueOf(n.Uint64()).Convert(goType).Interface(), nil
	}
	return reflect.ValueOf(n.Int64()).Convert(goType).Interface(), nil
}

func toBytes(v any) ([]byte, error) {
	switch b := v.(type) {
	case []byte:
		return b, nil
	case string:
		out, err := hexutil.Decode(b)
		if err != nil {
			return nil, fmt.Errorf("invalid hex bytes %q: %w", b, err)
		}
		return out, nil
	}
	return nil, fmt.Errorf("invalid bytes %v (%T)", v, v)
}
