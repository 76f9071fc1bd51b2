package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	testCases := []struct {
		name      string
		raw       string
		expected  string
		expectErr bool
	}{
		{name: "Plain digits", raw: "01012345678", expected: "01012345678"},
		{name: "Dashes", raw: "010-1234-5678", expected: "01012345678"},
		{name: "Spaces and dots", raw: " 011 9876.5432 ", expected: "01198765432"},
		{name: "Country prefix", raw: "+82 10-1234-5678", expected: "01012345678"},
		{name: "Country prefix without plus", raw: "821012345678", expected: "01012345678"},
		{name: "Landline", raw: "02-123-4567", expectErr: true},
		{name: "Too short", raw: "010-123-456", expectErr: true},
		{name: "Too long", raw: "010123456789", expectErr: true},
		{name: "Empty", raw: "", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizePhone(tc.raw)
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestFormatPhone(t *testing.T) {
	assert.Equal(t, "010-1234-5678", FormatPhone("01012345678"))
	assert.Equal(t, "12345", FormatPhone("12345"))
}

func TestValidBirthDate(t *testing.T) {
	assert.True(t, ValidBirthDate("1990-01-15"))
	assert.True(t, ValidBirthDate(""))
	assert.False(t, ValidBirthDate("19900115"))
	assert.False(t, ValidBirthDate("1990/01/15"))
	assert.False(t, ValidBirthDate("1990-13-45"))
	assert.False(t, ValidBirthDate("1990-02-30"))
	assert.True(t, ValidBirthDate("2000-02-29"))
}
