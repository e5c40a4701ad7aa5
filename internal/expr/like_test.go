package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baltrad/baltrad-db-sub003/internal/errs"
)

func TestMatchLike(t *testing.T) {
	testCases := []struct {
		pattern, s string
		want       bool
	}{
		{"WMO:*", "WMO:02606,RAD:SE50", true},
		{"*SE50", "WMO:02606,RAD:SE50", true},
		{"*SE5?", "RAD:SE50", true},
		{"SE5?", "SE5", false},
		{"SE5?", "SE500", false},
		{"*", "", true},
		{"", "", true},
		{"", "x", false},
		{"a*b*c", "abxbc", true},
		{"a*b*c", "abxbd", false},
		{"ä?", "äö", true},
		{"PVOL", "pvol", false},
	}

	for _, tc := range testCases {
		t.Run(tc.pattern+"~"+tc.s, func(t *testing.T) {
			assert.Equal(t, tc.want, MatchLike(tc.pattern, tc.s))
		})
	}
}

func TestSQLLikePattern(t *testing.T) {
	assert.Equal(t, "WMO:%", SQLLikePattern("WMO:*"))
	assert.Equal(t, "SE5_", SQLLikePattern("SE5?"))
	assert.Equal(t, `100\%\_x\\`, SQLLikePattern(`100%_x\`))
}

func TestEvalLike_NullIsTypeMismatch(t *testing.T) {
	_, err := EvalLike(Null(), Str("*"))
	assert.True(t, errs.IsTypeMismatch(err))

	_, err = EvalLike(Int(1), Str("*"))
	assert.True(t, errs.IsTypeMismatch(err))

	ok, err := EvalLike(Str("SE50"), Str("SE*"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMember(t *testing.T) {
	ok, err := Member(Str("PVOL"), List(Str("SCAN"), Str("PVOL")))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Member(Int(2), List(Float(2.0)))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Member(Str("X"), List())
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = Member(Str("PVOL"), Str("PVOL"))
	assert.True(t, errs.IsTypeMismatch(err), "right operand must be a list")

	_, err = Member(List(Str("PVOL")), List(Str("PVOL")))
	assert.True(t, errs.IsTypeMismatch(err), "left operand must not be a list")

	_, err = Member(Null(), List(Null()))
	assert.True(t, errs.IsTypeMismatch(err))
}
