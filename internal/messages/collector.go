// Package messages implements the message sink every embedding failure is
// funneled to. Messages are kept in a bounded ring for display by the host
// and mirrored to the structured logger.
package messages

import (
	"fmt"
	"sync"
	"time"

	"github.com/GriffinCanCode/AgentOS/hostembed/internal/logging"
	"go.uber.org/zap"
)

// Severity classifies a message
type Severity int

const (
	Debug Severity = iota
	Information
	Warning
	Error
)

// String returns the lowercase severity name
func (s Severity) String() string {
	switch s {
	case Debug:
		return "debug"
	case Information:
		return "information"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Sink accepts user-facing reports
type Sink interface {
	AddMessage(severity Severity, text string)
	AddExceptionMessage(context string, err error)
}

// Message is one retained report
type Message struct {
	Severity Severity
	Text     string
	Err      error
	Time     time.Time
}

// DefaultCapacity is the ring size used when none is given
const DefaultCapacity = 512

// Collector is a Sink that keeps the most recent messages.
// It is safe for concurrent use.
type Collector struct {
	logger *logging.Logger

	mu    sync.RWMutex
	ring  []Message
	next  int
	count int
}

// NewCollector creates a collector retaining up to capacity messages
func NewCollector(logger *logging.Logger, capacity int) *Collector {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Collector{
		logger: logging.OrNop(logger).Component("messages"),
		ring:   make([]Message, capacity),
	}
}

// AddMessage records a message with the given severity
func (c *Collector) AddMessage(severity Severity, text string) {
	c.store(Message{Severity: severity, Text: text, Time: time.Now()})

	switch severity {
	case Debug:
		c.logger.Debug(text)
	case Information:
		c.logger.Info(text)
	case Warning:
		c.logger.Warn(text)
	default:
		c.logger.Error(text)
	}
}

// AddExceptionMessage records an error with the operation it interrupted
func (c *Collector) AddExceptionMessage(context string, err error) {
	text := context
	if err != nil {
		text = fmt.Sprintf("%s: %v", context, err)
	}
	c.store(Message{Severity: Error, Text: text, Err: err, Time: time.Now()})
	c.logger.Error(context, zap.Error(err))
}

func (c *Collector) store(m Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ring[c.next] = m
	c.next = (c.next + 1) % len(c.ring)
	if c.count < len(c.ring) {
		c.count++
	}
}

// Messages returns retained messages, oldest first
func (c *Collector) Messages() []Message {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Message, 0, c.count)
	start := (c.next - c.count + len(c.ring)) % len(c.ring)
	for i := 0; i < c.count; i++ {
		out = append(out, c.ring[(start+i)%len(c.ring)])
	}
	return out
}

// Filter returns retained messages at or above min, oldest first
func (c *Collector) Filter(min Severity) []Message {
	var out []Message
	for _, m := range c.Messages() {
		if m.Severity >= min {
			out = append(out, m)
		}
	}
	return out
}

// Clear drops all retained messages
func (c *Collector) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.next = 0
	c.count = 0
	clear(c.ring)
}

// Discard is a Sink that drops everything
type Discard struct{}

func (Discard) AddMessage(Severity, string)       {}
func (Discard) AddExceptionMessage(string, error) {}
