package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalTerm(t *testing.T) {
	tests := []struct {
		name     string
		input    Term
		expected string
	}{
		{"int", MustT(42), "42"},
		{"negative int", MustT(-100), "-100"},
		{"max int64", MustT(int64(9223372036854775807)), "9223372036854775807"},
		{"bool", MustT(false), "false"},
		{"string", MustT("hello"), `"hello"`},
		{"empty list", L(), "[]"},
		{"list", L(1, 2, 3), "[1,2,3]"},
		{"nullary compound", Fn("zero"), `{"zero":[]}`},
		{"nested compound", Fn("succ", Fn("succ", Fn("zero"))), `{"succ":[{"succ":[{"zero":[]}]}]}`},
		{"mixed", Fn("pair", L("a", true), 7), `{"pair":[["a",true],7]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := MarshalTerm(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(out))
		})
	}
}

func TestMarshalTermNoHTMLEscape(t *testing.T) {
	out, err := MarshalTerm(MustT("<a&b>"))
	require.NoError(t, err)
	assert.Equal(t, `"<a&b>"`, string(out))
}

func TestMarshalTermNFC(t *testing.T) {
	// e + combining acute accent normalizes to a single code point
	out, err := MarshalTerm(MustT("e\u0301"))
	require.NoError(t, err)
	assert.Equal(t, "\"\u00e9\"", string(out))
}

func TestMarshalTermLineSeparators(t *testing.T) {
	out, err := MarshalTerm(MustT("a\u2028b\u2029c"))
	require.NoError(t, err)
	assert.Equal(t, "\"a\u2028b\u2029c\"", string(out))

	// A literal backslash followed by u2028 text stays escaped.
	out, err = MarshalTerm(MustT(`a\u2028`))
	require.NoError(t, err)
	assert.Equal(t, `"a\\u2028"`, string(out))
}

func TestMarshalTermRejects(t *testing.T) {
	tests := []struct {
		name  string
		input Term
	}{
		{"float", MustT(1.5)},
		{"float in compound", Fn("f", 1.5)},
		{"variable", L(V("x"))},
		{"expression", E("1 + 1")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := MarshalTerm(tt.input)
			assert.Error(t, err)
		})
	}
}

func TestDecodeJSONTerm(t *testing.T) {
	term := Fn("succ", Fn("pair", L(1, "a"), false))
	data, err := MarshalTerm(term)
	require.NoError(t, err)

	decoded, err := DecodeJSONTerm(data)
	require.NoError(t, err)
	assert.Equal(t, Term(term), decoded)

	decoded, err = DecodeJSONTerm([]byte("2.5"))
	require.NoError(t, err)
	assert.Equal(t, Term(Const{Value: Float(2.5)}), decoded)
}

func TestDecodeJSONTermRejects(t *testing.T) {
	for _, in := range []string{`null`, `{"a":[],"b":[]}`, `{"a":1}`, `[1,null]`, `{`} {
		_, err := DecodeJSONTerm([]byte(in))
		assert.Error(t, err, in)
	}
}
