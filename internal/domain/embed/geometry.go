package embed

import (
	"fmt"

	"github.com/GriffinCanCode/AgentOS/hostembed/internal/platform"
)

// ComputeGeometry returns the bounds that make the foreign window's client
// area cover the container exactly: the frame and caption are pushed outside
// the container's visible area.
func ComputeGeometry(container platform.Size, m platform.FrameMetrics) platform.Rect {
	return platform.Rect{
		X:      -m.BorderWidth,
		Y:      -(m.CaptionHeight + m.BorderHeight),
		Width:  container.Width + 2*m.BorderWidth,
		Height: container.Height + m.CaptionHeight + 2*m.BorderHeight,
	}
}

// ApplyGeometry moves h to r. The size is applied first without moving and
// the position second without resizing, both without sending
// WM_WINDOWPOSCHANGING, which avoids partially painted frames.
func ApplyGeometry(ws platform.WindowSystem, h platform.Handle, r platform.Rect) error {
	if err := ws.SetWindowPos(h, r, platform.NoSendChanging|platform.NoMove); err != nil {
		return fmt.Errorf("resize window: %w", err)
	}
	if err := ws.SetWindowPos(h, r, platform.NoSendChanging|platform.NoSize); err != nil {
		return fmt.Errorf("move window: %w", err)
	}
	return nil
}

// Embed re-parents the foreign window into the container. The caller must
// follow it with a geometry fix-up.
func Embed(ws platform.WindowSystem, foreign, container platform.Handle) error {
	if foreign.IsZero() {
		return fmt.Errorf("%w: no foreign window", ErrEmbed)
	}
	if container.IsZero() {
		return fmt.Errorf("%w: no container window", ErrEmbed)
	}
	if err := ws.SetParent(foreign, container); err != nil {
		return fmt.Errorf("%w: %w", ErrEmbed, err)
	}
	return nil
}
