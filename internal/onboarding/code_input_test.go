package onboarding

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeInputEntryMovesFocus(t *testing.T) {
	var c CodeInput

	assert.True(t, c.Enter('1'))
	assert.Equal(t, 1, c.Focus())
	assert.False(t, c.Enter('a'))
	assert.Equal(t, 1, c.Focus())
	assert.Equal(t, "1", c.Code())

	c.SetFocus(4)
	assert.True(t, c.Enter('5'))
	assert.Equal(t, 5, c.Focus())
	assert.True(t, c.Enter('6'))
	// wraps to the first empty slot
	assert.Equal(t, 1, c.Focus())

	for _, d := range "234" {
		c.Enter(d)
	}
	assert.True(t, c.Complete())
	assert.Equal(t, "123456", c.Code())
}

func TestCodeInputBackspace(t *testing.T) {
	var c CodeInput
	for _, d := range "123" {
		c.Enter(d)
	}
	assert.Equal(t, 3, c.Focus())

	// empty focused slot moves focus back without clearing
	c.Backspace()
	assert.Equal(t, 2, c.Focus())
	assert.Equal(t, "123", c.Code())

	// filled focused slot is cleared in place
	c.Backspace()
	assert.Equal(t, 2, c.Focus())
	assert.Equal(t, "12", c.Code())

	c.SetFocus(0)
	c.Backspace()
	c.Backspace()
	assert.Equal(t, 0, c.Focus())
	assert.Equal(t, [CodeLength]string{"", "2"}, c.Slots())
}

func TestCodeInputPaste(t *testing.T) {
	var c CodeInput
	assert.Equal(t, CodeLength, c.Paste("Your code: 12-34 56 (expires soon) 789"))
	assert.True(t, c.Complete())
	assert.Equal(t, "123456", c.Code())

	c.Clear()
	assert.Equal(t, 0, c.Focus())
	assert.Equal(t, 0, c.Paste("no digits"))
	assert.Equal(t, 0, c.Focus())

	assert.Equal(t, 2, c.Paste("42"))
	assert.Equal(t, 2, c.Focus())
	assert.False(t, c.Complete())
}

func TestEmailAndNameRules(t *testing.T) {
	assert.True(t, ValidEmail(" user@mail.example.org "))
	assert.False(t, ValidEmail("user@localhost"))
	assert.False(t, ValidEmail("user name@example.com"))
	assert.Equal(t, "user@example.com", NormalizeEmail("  User@Example.COM"))

	assert.False(t, ValidDisplayName(" \t "))
	assert.True(t, ValidDisplayName(" a "))
	assert.Equal(t, "short", NormalizeDisplayName("short"))
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "", UserMessage(nil))
	assert.Equal(t, "Please enter your email address", UserMessage(ErrEmailRequired))
	assert.Equal(t, "Please enter a valid email address", UserMessage(ErrInvalidEmail))
	assert.Equal(t, "Invalid code", UserMessage(&RelayError{Status: 400, Message: "Invalid code"}))
	assert.Equal(t, "relay responded with status 502", UserMessage(&RelayError{Status: 502}))
	assert.Equal(t, "This email is already verified", UserMessage(ErrAlreadyVerified))
	assert.Equal(t, "Something went wrong. Please try again.", UserMessage(ErrBusy))
}
