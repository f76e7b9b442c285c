package consent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	derrors "aidantsconnect/pkg/domain-errors"
)

func TestNormalizePhone(t *testing.T) {
	cases := map[string]string{
		"+33611223344":   "+33611223344",
		"0611223344":     "+33611223344",
		"06 11 22 33 44": "+33611223344",
		"06.11.22.33.44": "+33611223344",
		"0033611223344":  "+33611223344",
		"+33800840800":   "+33800840800",
	}
	for raw, want := range cases {
		got, err := NormalizePhone(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}
}

func TestNormalizePhoneRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "abc", "06112233", "+33 hello"} {
		_, err := NormalizePhone(raw)
		require.Error(t, err, raw)
		assert.True(t, derrors.Is(err, derrors.CodeBadRequest), raw)
	}
}

func TestClassify(t *testing.T) {
	keywords := []string{"OUI", "YES"}

	assert.True(t, Classify("OUI", keywords))
	assert.True(t, Classify("oui", keywords))
	assert.True(t, Classify("  Oui.  ", keywords))
	assert.True(t, Classify("yes!", keywords))

	assert.False(t, Classify("NON", keywords))
	assert.False(t, Classify("oui mais", keywords))
	assert.False(t, Classify("", keywords))
	assert.False(t, Classify("anything else", keywords))
}
