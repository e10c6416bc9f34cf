package mailgun

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurvcrm/kurv/internal/channel"
	"github.com/kurvcrm/kurv/internal/logger"
)

func TestNewSenderRequiresDomainAndKey(t *testing.T) {
	_, err := NewSender(logger.Nop(), Config{Domain: "mg.example.com"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestNewSenderDefaults(t *testing.T) {
	s, err := NewSender(logger.Nop(), Config{Domain: "mg.example.com", APIKey: "key", Region: "EU"})
	require.NoError(t, err)
	assert.Equal(t, "noreply@mg.example.com", s.from)
	assert.Equal(t, Name, s.Name())
	assert.Equal(t, channel.Email, s.Channel())
}
