package connection

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/GriffinCanCode/AgentOS/hostembed/internal/domain/embed"
	"github.com/GriffinCanCode/AgentOS/hostembed/internal/logging"
	"github.com/GriffinCanCode/AgentOS/hostembed/internal/platform"
	"github.com/GriffinCanCode/AgentOS/hostembed/internal/shared/id"
	"github.com/GriffinCanCode/AgentOS/hostembed/internal/shared/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// closeConcurrency bounds how many connections CloseAll terminates at once
const closeConcurrency = 8

// Info describes one open connection
type Info struct {
	ID        id.ConnectionID
	RequestID string
	Name      string
	Tool      string
	State     embed.State
	Window    platform.Handle
	Focused   bool
	OpenedAt  time.Time
}

// Stats summarizes the manager
type Stats struct {
	Total     int
	Connected int
	FocusedID *id.ConnectionID
}

type entry struct {
	id        id.ConnectionID
	requestID string
	instance  *embed.Instance
	openedAt  time.Time
	seq       uint64
}

// Manager orchestrates the embedded connections of a host
type Manager struct {
	mu        sync.RWMutex
	conns     map[id.ConnectionID]*entry // Protected by mu
	focusedID *id.ConnectionID           // Protected by mu
	seq       uint64                     // Protected by mu
	listeners []func(id.ConnectionID)    // Protected by mu
	host      *embed.Host
	logger    *logging.Logger
}

// NewManager creates a manager opening connections through host
func NewManager(host *embed.Host) *Manager {
	return &Manager{
		conns:  make(map[id.ConnectionID]*entry),
		host:   host,
		logger: logging.NewNop(),
	}
}

// WithLogger sets the logger
func (m *Manager) WithLogger(l *logging.Logger) *Manager {
	m.logger = logging.OrNop(l).Component("connections")
	return m
}

// OnClosed registers fn to run after a connection has closed and left the
// manager, whether it was closed through the manager or its process exited.
// fn runs on the goroutine that observed the close.
func (m *Manager) OnClosed(fn func(id.ConnectionID)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Open embeds conn's tool into container and focuses it. It blocks for up
// to the host's max wait. A tool that runs without integration is started
// and Open returns an error wrapping embed.ErrNonIntegrated.
func (m *Manager) Open(conn *types.Connection, container platform.Container) (Info, error) {
	requestID := uuid.NewString()
	cid := id.NewConnectionID()
	log := m.logger.With(
		zap.String("request_id", requestID),
		zap.String("connection", conn.Name),
		zap.String("tool", conn.ExternalTool))

	inst := m.host.NewInstance(conn, container)
	inst.OnClosed(func(*embed.Instance) { m.remove(cid) })

	if !inst.Initialize() || !inst.Connect() {
		err := inst.LastError()
		inst.Close()
		log.Info("connection not opened", zap.Error(err))
		return Info{}, err
	}

	e := &entry{id: cid, requestID: requestID, instance: inst, openedAt: time.Now()}

	m.mu.Lock()
	m.seq++
	e.seq = m.seq
	m.conns[cid] = e
	m.focusedID = &cid
	m.mu.Unlock()

	// the process may have exited before the entry was stored
	if inst.State() == embed.StateClosed {
		m.remove(cid)
	}

	log.Info("connection opened", zap.String("id", cid.String()))
	return m.info(e, true), nil
}

// Get retrieves a connection by ID
func (m *Manager) Get(cid id.ConnectionID) (Info, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.conns[cid]
	if !ok {
		return Info{}, false
	}
	return m.info(e, m.isFocused(cid)), true
}

// List returns all connections, oldest first
func (m *Manager) List() []Info {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := make([]*entry, 0, len(m.conns))
	for _, e := range m.conns {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(a, b int) bool {
		return entries[a].seq < entries[b].seq
	})

	infos := make([]Info, 0, len(entries))
	for _, e := range entries {
		infos = append(infos, m.info(e, m.isFocused(e.id)))
	}
	return infos
}

// Focus gives a connection's window input focus
func (m *Manager) Focus(cid id.ConnectionID) bool {
	m.mu.Lock()
	e, ok := m.conns[cid]
	if ok {
		m.focusedID = &cid
	}
	m.mu.Unlock()

	if !ok {
		return false
	}
	e.instance.Focus()
	return true
}

// ResizeAll re-fits every connection to its container, after the host
// layout changed
func (m *Manager) ResizeAll() {
	for _, e := range m.snapshot() {
		e.instance.Resize()
	}
}

// Close terminates one connection
func (m *Manager) Close(cid id.ConnectionID) bool {
	m.mu.RLock()
	e, ok := m.conns[cid]
	m.mu.RUnlock()

	if !ok {
		return false
	}
	// the closed listener removes the entry
	e.instance.Close()
	return true
}

// CloseAll terminates every connection concurrently. Connections not yet
// closed when ctx ends are left open.
func (m *Manager) CloseAll(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(closeConcurrency)

	for _, e := range m.snapshot() {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			e.instance.Close()
			return nil
		})
	}
	return g.Wait()
}

// Stats returns manager statistics
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var stats Stats
	for _, e := range m.conns {
		stats.Total++
		if e.instance.State() == embed.StateConnected {
			stats.Connected++
		}
	}
	if m.focusedID != nil {
		focused := *m.focusedID
		stats.FocusedID = &focused
	}
	return stats
}

// remove drops a closed connection, moves focus to another one and
// notifies OnClosed listeners
func (m *Manager) remove(cid id.ConnectionID) {
	m.mu.Lock()
	if _, ok := m.conns[cid]; !ok {
		m.mu.Unlock()
		return
	}
	delete(m.conns, cid)

	if m.focusedID != nil && *m.focusedID == cid {
		m.focusedID = nil
		var newest *entry
		for _, e := range m.conns {
			if newest == nil || e.seq > newest.seq {
				newest = e
			}
		}
		if newest != nil {
			next := newest.id
			m.focusedID = &next
		}
	}
	listeners := m.listeners
	m.mu.Unlock()

	m.logger.Debug("connection removed", zap.String("id", cid.String()))
	for _, fn := range listeners {
		fn(cid)
	}
}

func (m *Manager) snapshot() []*entry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := make([]*entry, 0, len(m.conns))
	for _, e := range m.conns {
		entries = append(entries, e)
	}
	return entries
}

// isFocused reports whether cid has focus (must hold lock)
func (m *Manager) isFocused(cid id.ConnectionID) bool {
	return m.focusedID != nil && *m.focusedID == cid
}

func (m *Manager) info(e *entry, focused bool) Info {
	inst := e.instance
	conn := inst.Connection()
	return Info{
		ID:        e.id,
		RequestID: e.requestID,
		Name:      conn.Name,
		Tool:      conn.ExternalTool,
		State:     inst.State(),
		Window:    inst.Handle(),
		Focused:   focused,
		OpenedAt:  e.openedAt,
	}
}
