package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loom-hdl/loom/pkg/errors"
)

func mustParse(t *testing.T, s string) Version {
	t.Helper()
	v, err := Parse(s)
	require.NoError(t, err)
	return v
}

func TestParse(t *testing.T) {
	v := mustParse(t, "1.2.3")
	assert.Equal(t, Version{Major: 1, Minor: 2, Micro: 3}, v)
	assert.Equal(t, "1.2.3", v.String())

	v = mustParse(t, "0.4.0-rc1")
	assert.Equal(t, "rc1", v.Label)
	assert.Equal(t, "0.4.0-rc1", v.String())
}

func TestParseRejects(t *testing.T) {
	for _, s := range []string{"", "1", "1.2", "1.2.3.4", "a.b.c", "1.-2.3", "1.2.3-", "1..3"} {
		_, err := Parse(s)
		assert.Error(t, err, "input %q", s)
		assert.Equal(t, errors.Version, errors.GetCode(err), "input %q", s)
	}
}

func TestTotalOrder(t *testing.T) {
	ordered := []string{
		"0.0.1",
		"0.1.0",
		"0.1.1",
		"1.0.0-alpha",
		"1.0.0-beta",
		"1.0.0",
		"1.0.1",
		"1.1.0",
		"2.0.0",
	}
	for i := range ordered {
		for j := range ordered {
			a, b := mustParse(t, ordered[i]), mustParse(t, ordered[j])
			switch {
			case i < j:
				assert.Equal(t, -1, a.Compare(b), "%s < %s", a, b)
			case i == j:
				assert.Equal(t, 0, a.Compare(b))
			default:
				assert.Equal(t, 1, a.Compare(b), "%s > %s", a, b)
			}
		}
	}
}

func TestPartialRoundTrip(t *testing.T) {
	tests := []struct {
		in    string
		minor int
		micro int
	}{
		{"1", Unset, Unset},
		{"1.2", 2, Unset},
		{"1.2.3", 2, 3},
	}
	for _, tt := range tests {
		pv, err := ParsePartial(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.minor, pv.Minor)
		assert.Equal(t, tt.micro, pv.Micro)
		assert.Equal(t, tt.in, pv.String())
	}

	_, err := ParsePartial("")
	assert.Error(t, err)
	_, err = ParsePartial("1.2.3.4")
	assert.Error(t, err)
}

func TestConstraintMatching(t *testing.T) {
	tests := []struct {
		req     string
		version string
		want    bool
	}{
		// Exact
		{"=1.2.3", "1.2.3", true},
		{"=1.2.3", "1.2.4", false},
		// Caret with major > 0 locks major
		{"^1.2.3", "1.2.3", true},
		{"^1.2.3", "1.9.0", true},
		{"^1.2.3", "2.0.0", false},
		{"^1.2.3", "1.2.2", false},
		// ^0.y locks minor
		{"^0.2.3", "0.2.9", true},
		{"^0.2.3", "0.3.0", false},
		// ^0.0.z locks exactly
		{"^0.0.3", "0.0.3", true},
		{"^0.0.3", "0.0.4", false},
		// Tilde permits patch-level only
		{"~1.2.3", "1.2.9", true},
		{"~1.2.3", "1.3.0", false},
		{"~1.2.3", "1.2.2", false},
		// Boundary ops
		{">=1.0.0", "1.0.0", true},
		{">1.0.0", "1.0.0", false},
		{"<=1.0.0", "1.0.0", true},
		{"<1.0.0", "0.9.9", true},
		{"<1.0.0", "1.0.0", false},
		// Bare version defaults to caret
		{"1.2.3", "1.5.0", true},
		{"1.2.3", "2.0.0", false},
		// Prereleases never match
		{"^1.0.0", "1.1.0-rc1", false},
		{">=0.0.0", "1.0.0-beta", false},
		{"=1.0.0", "1.0.0-beta", false},
		// Partial right-hand sides
		{"^1", "1.9.9", true},
		{"^1", "2.0.0", false},
		{"~1.2", "1.2.7", true},
		{"~1.2", "1.3.0", false},
		// Conjunction
		{">=1.0.0, <2.0.0", "1.5.0", true},
		{">=1.0.0, <2.0.0", "2.0.0", false},
	}
	for _, tt := range tests {
		req, err := ParseReq(tt.req)
		require.NoError(t, err, "req %q", tt.req)
		v := mustParse(t, tt.version)
		assert.Equal(t, tt.want, req.Matches(v), "%q vs %s", tt.req, tt.version)
	}
}

func TestReqParseErrors(t *testing.T) {
	for _, s := range []string{"", ">=", "^x.y", "1.2.3,,"} {
		_, err := ParseReq(s)
		assert.Error(t, err, "input %q", s)
	}
}

func TestReqString(t *testing.T) {
	req, err := ParseReq(">=1.0.0, <2.0.0")
	require.NoError(t, err)
	assert.Equal(t, ">=1.0.0, <2.0.0", req.String())

	req, err = ParseReq("1.2")
	require.NoError(t, err)
	assert.Equal(t, "^1.2", req.String())
}
