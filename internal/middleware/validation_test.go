package middleware

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateUserID(t *testing.T) {
	assert.NoError(t, ValidateUserID("123456789"))
	assert.NoError(t, ValidateUserID("51999888777"))

	assert.Error(t, ValidateUserID(""))
	assert.Error(t, ValidateUserID("   "))
	assert.Error(t, ValidateUserID("user with spaces"))
	assert.Error(t, ValidateUserID("user:colon"))
	assert.Error(t, ValidateUserID(strings.Repeat("x", 200)))
}

func TestValidateMessageContent(t *testing.T) {
	assert.NoError(t, ValidateMessageContent("hola"))
	assert.NoError(t, ValidateMessageContent("¿Cuándo son las elecciones?"))

	assert.Error(t, ValidateMessageContent(""))
	assert.Error(t, ValidateMessageContent("   \n\t"))
	assert.Error(t, ValidateMessageContent(strings.Repeat("a", 5000)))
	assert.Error(t, ValidateMessageContent("mal\xff"))
}
