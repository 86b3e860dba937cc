package http

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/GriffinCanCode/AgentOS/hostembed/internal/domain/connection"
	"github.com/GriffinCanCode/AgentOS/hostembed/internal/messages"
	"github.com/GriffinCanCode/AgentOS/hostembed/internal/shared/id"
	"github.com/gin-gonic/gin"
)

type connectionView struct {
	ID        string    `json:"id"`
	RequestID string    `json:"request_id"`
	Name      string    `json:"name"`
	Tool      string    `json:"tool"`
	State     string    `json:"state"`
	Window    string    `json:"window"`
	Focused   bool      `json:"focused"`
	OpenedAt  time.Time `json:"opened_at"`
}

func viewOf(info connection.Info) connectionView {
	return connectionView{
		ID:        info.ID.String(),
		RequestID: info.RequestID,
		Name:      info.Name,
		Tool:      info.Tool,
		State:     info.State.String(),
		Window:    fmt.Sprintf("%#x", uintptr(info.Window)),
		Focused:   info.Focused,
		OpenedAt:  info.OpenedAt,
	}
}

func statsOf(stats connection.Stats) gin.H {
	focused := ""
	if stats.FocusedID != nil {
		focused = stats.FocusedID.String()
	}
	return gin.H{
		"total":      stats.Total,
		"connected":  stats.Connected,
		"focused_id": focused,
	}
}

type messageView struct {
	Severity string    `json:"severity"`
	Text     string    `json:"text"`
	Error    string    `json:"error,omitempty"`
	Time     time.Time `json:"time"`
}

func messageOf(m messages.Message) messageView {
	v := messageView{Severity: m.Severity.String(), Text: m.Text, Time: m.Time}
	if m.Err != nil {
		v.Error = m.Err.Error()
	}
	return v
}

// connectionID reads and validates the :id path parameter, writing a 400
// response when it is malformed
func connectionID(c *gin.Context) (id.ConnectionID, bool) {
	raw := c.Param("id")
	prefix, _, err := id.Split(raw)
	if err != nil || prefix != id.ConnectionPrefix {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid connection id"})
		return "", false
	}
	return id.ConnectionID(raw), true
}

// parseSeverity accepts a severity name as printed by Severity.String
func parseSeverity(s string) (messages.Severity, error) {
	for _, sev := range []messages.Severity{messages.Debug, messages.Information, messages.Warning, messages.Error} {
		if strings.EqualFold(s, sev.String()) {
			return sev, nil
		}
	}
	return 0, fmt.Errorf("unknown severity %q", s)
}
