package alias

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind_AllKinds(t *testing.T) {
	tests := []struct {
		token string
		want  Kind
		code  Code
	}{
		{"NoAlias", NoAlias, 0},
		{"MustAlias", MustAlias, 1},
		{"PartialAlias", PartialAlias, 2},
		{"MayAlias", MayAlias, 3},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			k, err := ParseKind(tt.token)
			require.NoError(t, err)
			assert.Equal(t, tt.want, k)
			assert.Equal(t, tt.code, k.Code())

			back, err := tt.code.Kind()
			require.NoError(t, err)
			assert.Equal(t, tt.want, back)
		})
	}
}

func TestParseKind_Unknown(t *testing.T) {
	for _, token := range []string{"", "mayalias", "MayAlias:", "Aliased"} {
		_, err := ParseKind(token)
		require.Error(t, err, "token %q", token)
		assert.True(t, IsProtocolViolation(err))
	}
}

func TestCode_Wire(t *testing.T) {
	assert.Equal(t, "0", CodeNoAlias.Wire())
	assert.Equal(t, "3", CodeMayAlias.Wire())
}

func TestCode_InvalidKind(t *testing.T) {
	c := Code(7)
	assert.False(t, c.Valid())
	_, err := c.Kind()
	assert.Error(t, err)
	assert.Equal(t, "7", c.String())
}

func TestParseCode(t *testing.T) {
	tests := []struct {
		in      string
		want    Code
		wantErr bool
	}{
		{"0", CodeNoAlias, false},
		{"1", CodeMustAlias, false},
		{" 2 ", CodePartialAlias, false},
		{"3", CodeMayAlias, false},
		{"MustAlias", CodeMustAlias, false},
		{"noalias", CodeNoAlias, false},
		{"4", 0, true},
		{"-1", 0, true},
		{"sometimes", 0, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.in), func(t *testing.T) {
			got, err := ParseCode(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestKind_CodePanicsOnUnknown(t *testing.T) {
	assert.Panics(t, func() { Kind("Bogus").Code() })
}
