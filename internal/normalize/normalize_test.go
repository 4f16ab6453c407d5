package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValue_PhoneVariantsCollapse(t *testing.T) {
	a := Value("(555) 123-4567")
	b := Value("555-123-4567")
	c := Value("5551234567")

	assert.Equal(t, a, b)
	assert.Equal(t, b, c)
}

func TestValue_TrimAndUppercase(t *testing.T) {
	assert.Equal(t, "123MAINST", Value("  123 Main St "))
}

func TestValue_Empty(t *testing.T) {
	assert.Equal(t, "", Value(""))
}

func TestValidPhone(t *testing.T) {
	tests := []struct {
		phone string
		want  bool
	}{
		{"555-123-4567", true},
		{"(555) 123-4567", true},
		{"1-555-123-4567", true},
		{"+1 555 123 4567", true},
		{"555-123-456", false}, // nine digits
		{"123", false},
		{"555-123-45678", false}, // eleven digits, no leading 1
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidPhone(tt.phone), tt.phone)
	}
}

func TestValidEmail(t *testing.T) {
	assert.True(t, ValidEmail("jane.doe@example.com"))
	assert.True(t, ValidEmail("j+tag@sub.example.org"))
	assert.False(t, ValidEmail("jane.doe@invalid"))
	assert.False(t, ValidEmail("not-an-email"))
}

func TestValidZip(t *testing.T) {
	assert.True(t, ValidZip("90001"))
	assert.True(t, ValidZip("90001-1234"))
	assert.False(t, ValidZip("9000"))
	assert.False(t, ValidZip("90001-12"))
	assert.False(t, ValidZip("ABCDE"))
}
