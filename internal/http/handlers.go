package http

import (
	"net/http"
	"time"

	"github.com/GriffinCanCode/AgentOS/hostembed/internal/domain/connection"
	"github.com/GriffinCanCode/AgentOS/hostembed/internal/domain/tools"
	"github.com/GriffinCanCode/AgentOS/hostembed/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/hostembed/internal/messages"
	"github.com/gin-gonic/gin"
)

// Version is reported by the root endpoint
const Version = "1.0.0"

// Handlers contains all HTTP handlers
type Handlers struct {
	connections *connection.Manager
	messages    *messages.Collector
	catalog     *tools.Catalog
	metrics     *monitoring.Metrics
	started     time.Time
}

// NewHandlers creates a new handler set. collector, catalog and metrics
// may be nil.
func NewHandlers(
	connections *connection.Manager,
	collector *messages.Collector,
	catalog *tools.Catalog,
	metrics *monitoring.Metrics,
) *Handlers {
	return &Handlers{
		connections: connections,
		messages:    collector,
		catalog:     catalog,
		metrics:     metrics,
		started:     time.Now(),
	}
}

// Root handles health check
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "hostembed",
		"version": Version,
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	snap := h.metrics.Snapshot()

	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"uptime":      time.Since(h.started).Round(time.Second).String(),
		"connections": statsOf(h.connections.Stats()),
		"counters": gin.H{
			"connects":         snap.Connects,
			"connect_failures": snap.ConnectFailures,
			"active_instances": snap.ActiveInstances,
			"hook_resyncs":     snap.HookResyncs,
			"hook_suppressed":  snap.HookSuppressed,
		},
	})
}

// ListConnections lists open connections, oldest first
func (h *Handlers) ListConnections(c *gin.Context) {
	infos := h.connections.List()
	out := make([]connectionView, 0, len(infos))
	for _, info := range infos {
		out = append(out, viewOf(info))
	}

	c.JSON(http.StatusOK, gin.H{
		"connections": out,
		"stats":       statsOf(h.connections.Stats()),
	})
}

// GetConnection returns one connection
func (h *Handlers) GetConnection(c *gin.Context) {
	cid, ok := connectionID(c)
	if !ok {
		return
	}

	info, exists := h.connections.Get(cid)
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "connection not found"})
		return
	}
	c.JSON(http.StatusOK, viewOf(info))
}

// FocusConnection gives a connection's window input focus
func (h *Handlers) FocusConnection(c *gin.Context) {
	cid, ok := connectionID(c)
	if !ok {
		return
	}

	if !h.connections.Focus(cid) {
		c.JSON(http.StatusNotFound, gin.H{"error": "connection not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// CloseConnection terminates a connection's program
func (h *Handlers) CloseConnection(c *gin.Context) {
	cid, ok := connectionID(c)
	if !ok {
		return
	}

	if !h.connections.Close(cid) {
		c.JSON(http.StatusNotFound, gin.H{"error": "connection not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ResizeConnections re-fits every connection to its container
func (h *Handlers) ResizeConnections(c *gin.Context) {
	h.connections.ResizeAll()
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ListMessages returns collected user-facing messages. The optional
// min query parameter filters by severity.
func (h *Handlers) ListMessages(c *gin.Context) {
	if h.messages == nil {
		c.JSON(http.StatusOK, gin.H{"messages": []messageView{}})
		return
	}

	minSeverity, err := parseSeverity(c.DefaultQuery("min", "debug"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msgs := h.messages.Filter(minSeverity)
	out := make([]messageView, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageOf(m))
	}
	c.JSON(http.StatusOK, gin.H{"messages": out})
}

// ClearMessages drops collected messages
func (h *Handlers) ClearMessages(c *gin.Context) {
	if h.messages != nil {
		h.messages.Clear()
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ListTools lists the tool catalog
func (h *Handlers) ListTools(c *gin.Context) {
	list := []tools.Tool{}
	if h.catalog != nil {
		list = h.catalog.List()
	}
	c.JSON(http.StatusOK, gin.H{
		"tools": list,
		"count": len(list),
	})
}
