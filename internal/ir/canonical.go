package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// MarshalTerm produces canonical JSON for a ground term.
// This is the encoding stored in JSON columns and bound as a parameter
// whenever a constant is compared against one.
//
// Encoding:
//   - Compound: {"functor":[args...]}
//   - List: [elems...]
//   - Int, Bool, String: JSON scalars; strings are NFC normalized
//
// Differences from json.Marshal:
//  1. No HTML escaping (< > & are NOT escaped)
//  2. U+2028 and U+2029 are written literally
//  3. No floats (returns error)
//  4. No variables or expressions (returns error)
func MarshalTerm(t Term) ([]byte, error) {
	var buf bytes.Buffer
	if err := marshalTerm(&buf, t); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func marshalTerm(buf *bytes.Buffer, t Term) error {
	switch val := t.(type) {
	case Const:
		return marshalValue(buf, val.Value)
	case Compound:
		buf.WriteByte('{')
		if err := marshalString(buf, val.Functor); err != nil {
			return err
		}
		buf.WriteString(":[")
		for i, a := range val.Args {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := marshalTerm(buf, a); err != nil {
				return fmt.Errorf("%s[%d]: %w", val.Functor, i, err)
			}
		}
		buf.WriteString("]}")
		return nil
	case List:
		buf.WriteByte('[')
		for i, e := range val.Elems {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := marshalTerm(buf, e); err != nil {
				return fmt.Errorf("list[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
		return nil
	case Var:
		return fmt.Errorf("variable %s is not ground", val.Name)
	case Expr:
		return fmt.Errorf("expression %s is not ground", val)
	default:
		return fmt.Errorf("unsupported term %T", t)
	}
}

func marshalValue(buf *bytes.Buffer, v Value) error {
	switch val := v.(type) {
	case Int:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case Bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case String:
		return marshalString(buf, string(val))
	case Float:
		return fmt.Errorf("floats are forbidden in canonical JSON: %v", float64(val))
	case nil:
		return fmt.Errorf("null is forbidden in canonical JSON")
	default:
		return fmt.Errorf("unsupported value %T", v)
	}
	return nil
}

// marshalString writes a JSON string with NFC normalization.
// Only control characters (U+0000-U+001F), backslash, and quote are escaped.
func marshalString(buf *bytes.Buffer, s string) error {
	normalized := norm.NFC.String(s)

	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false) // <, >, & must NOT be escaped
	if err := enc.Encode(normalized); err != nil {
		return err
	}

	// json.Encoder adds trailing newline
	out := bytes.TrimSuffix(tmp.Bytes(), []byte{'\n'})
	buf.Write(unescapeLineSeparators(out))
	return nil
}

// unescapeLineSeparators rewrites \u2028 and \u2029 escapes produced by
// encoding/json back to the literal characters. A sequence preceded by an
// odd number of backslashes is an escaped backslash followed by text and
// stays as is.
func unescapeLineSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}

	out := make([]byte, 0, len(data))
	backslashes := 0
	for i := 0; i < len(data); i++ {
		c := data[i]
		if c == '\\' && backslashes%2 == 0 && i+6 <= len(data) &&
			bytes.HasPrefix(data[i+1:], []byte("u202")) && (data[i+5] == '8' || data[i+5] == '9') {
			if data[i+5] == '8' {
				out = append(out, "\u2028"...)
			} else {
				out = append(out, "\u2029"...)
			}
			i += 5
			backslashes = 0
			continue
		}
		if c == '\\' {
			backslashes++
		} else {
			backslashes = 0
		}
		out = append(out, c)
	}
	return out
}

// DecodeJSONTerm parses JSON column contents back into a Term.
// Single-key objects whose value is an array decode as Compound terms.
func DecodeJSONTerm(data []byte) (Term, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode JSON term: %w", err)
	}
	return jsonToTerm(raw)
}

func jsonToTerm(raw any) (Term, error) {
	switch val := raw.(type) {
	case nil:
		return nil, fmt.Errorf("null is not a term")
	case bool:
		return Const{Value: Bool(val)}, nil
	case string:
		return Const{Value: String(val)}, nil
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return Const{Value: Int(n)}, nil
		}
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %s: %w", val, err)
		}
		return Const{Value: Float(f)}, nil
	case []any:
		elems := make([]Term, len(val))
		for i, e := range val {
			t, err := jsonToTerm(e)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			elems[i] = t
		}
		return List{Elems: elems}, nil
	case map[string]any:
		if len(val) != 1 {
			return nil, fmt.Errorf("compound object must have exactly one key, got %d", len(val))
		}
		for functor, v := range val {
			args, ok := v.([]any)
			if !ok {
				return nil, fmt.Errorf("compound %q: arguments must be an array", functor)
			}
			list, err := jsonToTerm(args)
			if err != nil {
				return nil, fmt.Errorf("%s%w", functor, err)
			}
			return Compound{Functor: functor, Args: list.(List).Elems}, nil
		}
	}
	return nil, fmt.Errorf("unsupported JSON value %T", raw)
}
