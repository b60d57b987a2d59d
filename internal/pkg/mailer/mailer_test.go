package mailer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisabledWithoutHost(t *testing.T) {
	m := New(Config{})

	assert.False(t, m.Enabled())
	assert.ErrorIs(t, m.Send("to@example.com", "subject", "<p>body</p>"), ErrDisabled)
}

func TestEnabledWithHost(t *testing.T) {
	m := New(Config{Host: "smtp.example.com", Port: 587})
	assert.True(t, m.Enabled())
}
