package http

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/hostembed/internal/domain/connection"
	"github.com/GriffinCanCode/AgentOS/hostembed/internal/domain/embed"
	"github.com/GriffinCanCode/AgentOS/hostembed/internal/messages"
)

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		in   string
		want messages.Severity
	}{
		{"debug", messages.Debug},
		{"information", messages.Information},
		{"WARNING", messages.Warning},
		{"Error", messages.Error},
	}
	for _, tt := range tests {
		got, err := parseSeverity(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := parseSeverity("fatal")
	assert.Error(t, err)
}

func TestViewOf(t *testing.T) {
	opened := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	v := viewOf(connection.Info{
		ID:       "conn_01HZY3J4V6Q2W8K9M0N1P2R3S4",
		Name:     "db01",
		Tool:     "PuTTY",
		State:    embed.StateConnected,
		Window:   0xABC,
		Focused:  true,
		OpenedAt: opened,
	})

	assert.Equal(t, "conn_01HZY3J4V6Q2W8K9M0N1P2R3S4", v.ID)
	assert.Equal(t, "connected", v.State)
	assert.Equal(t, "0xabc", v.Window)
	assert.True(t, v.Focused)
	assert.Equal(t, opened, v.OpenedAt)
}

func TestMessageOf(t *testing.T) {
	m := messageOf(messages.Message{Severity: messages.Warning, Text: "Killing failed", Err: errors.New("access denied")})
	assert.Equal(t, "warning", m.Severity)
	assert.Equal(t, "access denied", m.Error)

	m = messageOf(messages.Message{Severity: messages.Debug, Text: "Resizing: PuTTY"})
	assert.Empty(t, m.Error)
}
