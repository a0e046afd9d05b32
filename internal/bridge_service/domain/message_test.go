package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeAddress(t *testing.T) {
	assert.Equal(t, "15551234567", NormalizeAddress("+15551234567"))
	assert.Equal(t, "15551234567", NormalizeAddress("  ++15551234567 "))
	assert.Equal(t, "15551234567", NormalizeAddress("15551234567"))
	assert.Equal(t, "", NormalizeAddress("+"))
}

func TestNewOutboundMessage(t *testing.T) {
	t.Run("Text", func(t *testing.T) {
		msg, err := NewOutboundMessage("id-1", "+15551234567", "+15557654321", "hello")
		require.NoError(t, err)
		assert.Equal(t, "15551234567", msg.To)
		assert.Equal(t, "15557654321", msg.From)
		assert.False(t, msg.HasMedia())
	})

	t.Run("BlankMediaRefsDropped", func(t *testing.T) {
		msg, err := NewOutboundMessage("id-1", "1", "2", "hi", " ", "")
		require.NoError(t, err)
		assert.False(t, msg.HasMedia())
	})

	t.Run("Empty", func(t *testing.T) {
		_, err := NewOutboundMessage("id-1", "1", "2", "", " ")
		assert.ErrorIs(t, err, ErrEmptyMessage)
	})

	t.Run("MissingRecipient", func(t *testing.T) {
		_, err := NewOutboundMessage("id-1", "+", "2", "hi")
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrEmptyMessage)
	})

	t.Run("BadMediaURL", func(t *testing.T) {
		_, err := NewOutboundMessage("id-1", "1", "2", "", "not a url")
		assert.Error(t, err)
	})
}
