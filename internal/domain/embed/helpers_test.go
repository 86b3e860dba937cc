package embed

import (
	"strings"
	"sync"
	"time"

	"github.com/GriffinCanCode/AgentOS/hostembed/internal/messages"
	"github.com/GriffinCanCode/AgentOS/hostembed/internal/platform"
	"github.com/GriffinCanCode/AgentOS/hostembed/internal/platform/platformtest"
)

// fakeClock only moves when yielded to or advanced
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	step   time.Duration
	yields int
}

func newFakeClock(step time.Duration) *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0), step: step}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Yield() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(c.step)
	c.yields++
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) Yields() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.yields
}

type window struct {
	handle platform.Handle
	title  string
}

// scriptedWindows answers MainWindow from a script, repeating the last entry
type scriptedWindows struct {
	*platformtest.WindowSystem

	mu     sync.Mutex
	script []window
	calls  int
}

func (s *scriptedWindows) MainWindow(int) (platform.Handle, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := s.script[min(s.calls, len(s.script)-1)]
	s.calls++
	return w.handle, w.title, nil
}

func texts(c *messages.Collector) []string {
	var out []string
	for _, m := range c.Messages() {
		out = append(out, m.Text)
	}
	return out
}

func containsText(c *messages.Collector, substr string) bool {
	for _, text := range texts(c) {
		if strings.Contains(text, substr) {
			return true
		}
	}
	return false
}

func moveSizeEnd(h platform.Handle) platform.Event {
	return platform.Event{Type: platform.EventSystemMoveSizeEnd, Window: h}
}
