package ir

import (
	"fmt"
	"strconv"
)

// Value is a sealed interface over the scalar constants a column can hold.
// Only Int, Float, String, and Bool implement it.
type Value interface {
	value() // Sealed - only these types implement it
	String() string
}

// Int is an integer constant. Always int64.
type Int int64

func (Int) value() {}

func (v Int) String() string { return strconv.FormatInt(int64(v), 10) }

// Float is a floating point constant. Only valid in REAL columns and
// never inside structured terms.
type Float float64

func (Float) value() {}

func (v Float) String() string { return strconv.FormatFloat(float64(v), 'g', -1, 64) }

// String is a text constant.
type String string

func (String) value() {}

func (v String) String() string { return strconv.Quote(string(v)) }

// Bool is a boolean constant. Stored as 0/1 by SQLite.
type Bool bool

func (Bool) value() {}

func (v Bool) String() string { return strconv.FormatBool(bool(v)) }

// ValueOf converts a Go scalar into a Value.
// Accepts Value, all Go integer kinds, float32/float64, string and bool.
func ValueOf(v any) (Value, error) {
	switch val := v.(type) {
	case Value:
		return val, nil
	case int:
		return Int(val), nil
	case int8:
		return Int(val), nil
	case int16:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint8:
		return Int(val), nil
	case uint16:
		return Int(val), nil
	case uint32:
		return Int(val), nil
	case float32:
		return Float(val), nil
	case float64:
		return Float(val), nil
	case string:
		return String(val), nil
	case bool:
		return Bool(val), nil
	case nil:
		return nil, fmt.Errorf("null is not a valid constant")
	default:
		return nil, fmt.Errorf("unsupported constant type %T", v)
	}
}

// Param converts a Value into a database/sql parameter.
func Param(v Value) any {
	switch val := v.(type) {
	case Int:
		return int64(val)
	case Float:
		return float64(val)
	case String:
		return string(val)
	case Bool:
		if val {
			return int64(1)
		}
		return int64(0)
	default:
		return nil
	}
}

// ColumnParam converts a ground term into the parameter stored in a column
// of type col. Terms bound for JSON columns become canonical JSON text;
// scalar columns only accept constants.
func ColumnParam(t Term, col ColumnType) (any, error) {
	if col == JSON {
		data, err := MarshalTerm(t)
		if err != nil {
			return nil, err
		}
		return string(data), nil
	}
	c, ok := t.(Const)
	if !ok {
		return nil, fmt.Errorf("%s is not a constant", t)
	}
	return Param(c.Value), nil
}

// FromColumn converts a raw value scanned from a column of the given type
// back into a Term. JSON columns are decoded into structured terms.
func FromColumn(raw any, typ ColumnType) (Term, error) {
	if typ == JSON {
		var text []byte
		switch val := raw.(type) {
		case string:
			text = []byte(val)
		case []byte:
			text = val
		case int64:
			return Const{Value: Int(val)}, nil
		case float64:
			return Const{Value: Float(val)}, nil
		default:
			return nil, fmt.Errorf("unexpected %T in JSON column", raw)
		}
		return DecodeJSONTerm(text)
	}

	switch val := raw.(type) {
	case int64:
		if typ == Real {
			return Const{Value: Float(val)}, nil
		}
		return Const{Value: Int(val)}, nil
	case float64:
		return Const{Value: Float(val)}, nil
	case string:
		return Const{Value: String(val)}, nil
	case []byte:
		return Const{Value: String(string(val))}, nil
	case bool:
		return Const{Value: Bool(val)}, nil
	case nil:
		return nil, fmt.Errorf("unexpected NULL in %s column", typ)
	default:
		return nil, fmt.Errorf("unexpected %T in %s column", raw, typ)
	}
}
