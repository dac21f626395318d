package ir

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTermString(t *testing.T) {
	tests := []struct {
		name     string
		term     Term
		expected string
	}{
		{"var", V("x"), "x"},
		{"int", MustT(42), "42"},
		{"string", MustT("a b"), `"a b"`},
		{"bool", MustT(true), "true"},
		{"float", MustT(1.5), "1.5"},
		{"compound", Fn("succ", Fn("zero")), "succ(zero())"},
		{"list", L(1, V("y"), "z"), `[1, y, "z"]`},
		{"expr", E("{y} + {$0}", 1), "y + 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.term.String())
		})
	}
}

func TestPlaceholders(t *testing.T) {
	ps := Placeholders("{x} < {$0} AND {y_2} <> {x}")
	require.Len(t, ps, 4)

	assert.Equal(t, "x", ps[0].Name)
	assert.Equal(t, -1, ps[0].Arg)
	assert.Equal(t, "", ps[1].Name)
	assert.Equal(t, 0, ps[1].Arg)
	assert.Equal(t, "y_2", ps[2].Name)

	assert.Equal(t, []string{"x", "y_2"}, templateVars("{x} < {$0} AND {y_2} <> {x}"))
}

func TestSubstitute(t *testing.T) {
	out, err := Substitute("{x} + {$0}", func(p Placeholder) (string, error) {
		if p.Name != "" {
			return "a.x0", nil
		}
		return ":p0", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "a.x0 + :p0", out)

	_, err = Substitute("{x}", func(Placeholder) (string, error) {
		return "", errors.New("unbound")
	})
	assert.Error(t, err)
}

func TestT(t *testing.T) {
	term, err := T(int32(7))
	require.NoError(t, err)
	assert.Equal(t, Const{Value: Int(7)}, term)

	term, err = T([]any{1, "a"})
	require.NoError(t, err)
	assert.Equal(t, List{Elems: []Term{Const{Value: Int(1)}, Const{Value: String("a")}}}, term)

	term, err = T(V("x"))
	require.NoError(t, err)
	assert.Equal(t, Var{Name: "x"}, term)

	_, err = T(nil)
	assert.Error(t, err)

	_, err = T(struct{}{})
	assert.Error(t, err)

	assert.Panics(t, func() { MustT(map[string]int{}) })
}

func TestVars(t *testing.T) {
	vs := Vars(" x  y z ")
	assert.Equal(t, []Var{{Name: "x"}, {Name: "y"}, {Name: "z"}}, vs)
}

func TestIsGround(t *testing.T) {
	assert.True(t, IsGround(MustT(1)))
	assert.True(t, IsGround(Fn("f", 1, L("a"))))
	assert.False(t, IsGround(Fn("f", 1, L(V("x")))))
	assert.False(t, IsGround(E("1 + 1")))
	assert.False(t, IsGround(V("x")))
}

func TestTermVars(t *testing.T) {
	vars := TermVars(nil, Fn("f", V("x"), L(V("y"), 2), E("{z} * {x}")))
	assert.Equal(t, []string{"x", "y", "z", "x"}, vars)
}
