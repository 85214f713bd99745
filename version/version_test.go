/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package version

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{in: "0.0.1"},
		{in: "1.2.3"},
		{in: "2.0.0-rc1"},
		{in: "1.0.0-alpha.1"},
		{in: "1.0.0+build.5"},
		{in: "1.0.0-beta+exp.sha.5114f85"},
		{in: "", wantErr: true},
		{in: "1.0", wantErr: true},
		{in: "v1.0.0", wantErr: true},
		{in: "01.0.0", wantErr: true},
		{in: "1.0.0-", wantErr: true},
		{in: "abc", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			v, err := Parse(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalid)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.in, v.String())
			require.False(t, v.IsOrigin())
		})
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{a: "2.0.0-rc1", b: "2.0.0", want: -1},
		{a: "1.0.0", b: "1.1.0", want: -1},
		{a: "0.0.1-alpha", b: "0.0.1", want: -1},
		{a: "1.0.0-alpha", b: "1.0.0-alpha.1", want: -1},
		{a: "1.0.0-alpha.1", b: "1.0.0-alpha.beta", want: -1},
		{a: "1.0.0-beta.2", b: "1.0.0-beta.11", want: -1},
		{a: "1.0.0-rc.1", b: "1.0.0", want: -1},
		{a: "1.10.0", b: "1.9.0", want: 1},
		{a: "2.0.0", b: "1.99.99", want: 1},
		{a: "1.0.0", b: "1.0.0", want: 0},
		{a: "1.0.0", b: "1.0.0+build", want: 0},
		{a: "1.0.0+a", b: "1.0.0+b", want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.a+" vs "+tt.b, func(t *testing.T) {
			a, b := MustParse(tt.a), MustParse(tt.b)
			assert.Equal(t, tt.want, Compare(a, b))
			assert.Equal(t, -tt.want, Compare(b, a))
			assert.Equal(t, tt.want < 0, a.LessThan(b))
			assert.Equal(t, tt.want == 0, a.Equal(b))
		})
	}
}

func TestCompare_TotalOrder(t *testing.T) {
	ordered := []string{"0.0.1-alpha", "0.0.1", "0.1.0", "1.0.0-alpha", "1.0.0-rc1", "1.0.0", "1.1.0", "2.0.0-rc1", "2.0.0"}
	for i := range ordered {
		for j := range ordered {
			a, b := MustParse(ordered[i]), MustParse(ordered[j])
			switch {
			case i < j:
				require.True(t, a.LessThan(b), "%s < %s", a, b)
			case i > j:
				require.True(t, b.LessThan(a), "%s > %s", a, b)
			default:
				require.True(t, a.Equal(b))
			}
		}
	}
}

func TestOrigin(t *testing.T) {
	require.True(t, Origin.IsOrigin())
	require.Equal(t, "", Origin.String())
	require.Equal(t, 0, Compare(Origin, Origin))
	for _, s := range []string{"0.0.0", "0.0.0-0", "0.0.1-alpha", "1.0.0"} {
		v := MustParse(s)
		require.True(t, Origin.LessThan(v), s)
		require.Equal(t, 1, v.Compare(Origin), s)
	}
}

func TestVersion_TextMarshaling(t *testing.T) {
	type doc struct {
		From Version `json:"from"`
		To   Version `json:"to"`
	}
	data, err := json.Marshal(doc{From: Origin, To: MustParse("1.2.0-rc1+b7")})
	require.NoError(t, err)
	require.JSONEq(t, `{"from":"","to":"1.2.0-rc1+b7"}`, string(data))

	var got doc
	require.NoError(t, json.Unmarshal(data, &got))
	require.True(t, got.From.IsOrigin())
	require.Equal(t, "1.2.0-rc1+b7", got.To.String())

	require.ErrorIs(t, json.Unmarshal([]byte(`{"to":"1.x"}`), &got), ErrInvalid)
}

func TestMustParse_Panics(t *testing.T) {
	require.Panics(t, func() { MustParse("not-a-version") })
}
