package smtp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurvcrm/kurv/internal/logger"
	"github.com/kurvcrm/kurv/internal/transport"
)

func TestNewSenderDefaults(t *testing.T) {
	s, err := NewSender(logger.Nop(), Config{Host: "smtp.example.com", Username: "crm@example.com", Security: " STARTTLS "})
	require.NoError(t, err)
	assert.Equal(t, 587, s.cfg.Port)
	assert.Equal(t, "crm@example.com", s.cfg.From)
	assert.Equal(t, "starttls", s.cfg.Security)
	assert.Len(t, s.clientOptions(), 5)
}

func TestNewSenderRequiresHost(t *testing.T) {
	_, err := NewSender(nil, Config{From: "crm@example.com"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestBuildMessage(t *testing.T) {
	s, err := NewSender(logger.Nop(), Config{Host: "localhost", From: "crm@example.com", Security: "none"})
	require.NoError(t, err)

	m, err := s.buildMessage(transport.Message{To: "bob@example.com", Subject: "Hi", Body: "hello"})
	require.NoError(t, err)
	assert.NotEmpty(t, m.GetMessageID())

	_, err = s.buildMessage(transport.Message{To: "not an address", Body: "x"})
	assert.Error(t, err)
	assert.Len(t, s.clientOptions(), 2)
}
