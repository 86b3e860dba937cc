package connection

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/hostembed/internal/domain/embed"
	"github.com/GriffinCanCode/AgentOS/hostembed/internal/domain/tools"
	"github.com/GriffinCanCode/AgentOS/hostembed/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/hostembed/internal/messages"
	"github.com/GriffinCanCode/AgentOS/hostembed/internal/platform"
	"github.com/GriffinCanCode/AgentOS/hostembed/internal/platform/platformtest"
	"github.com/GriffinCanCode/AgentOS/hostembed/internal/shared/id"
	"github.com/GriffinCanCode/AgentOS/hostembed/internal/shared/types"
)

type fixture struct {
	ws       *platformtest.WindowSystem
	launcher *platformtest.Launcher
	manager  *Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	catalog, err := tools.NewCatalog(
		tools.Tool{DisplayName: "PuTTY", FileName: "putty.exe", TryIntegrate: true},
		tools.Tool{DisplayName: "Browser", FileName: "browser.exe"},
	)
	require.NoError(t, err)

	ws := platformtest.NewWindowSystem()
	for pid := 1001; pid <= 1005; pid++ {
		ws.SetMainWindow(pid, platform.Handle(pid*0x10), "PuTTY")
	}
	launcher := platformtest.NewLauncher().WithWindows(ws)

	cfg := config.EmbedConfig{MaxWait: 50 * time.Millisecond, KillWait: 50 * time.Millisecond}
	host := embed.NewHost(cfg, ws, launcher, catalog, messages.Discard{})

	return &fixture{ws: ws, launcher: launcher, manager: NewManager(host)}
}

func container() *platformtest.Container {
	return platformtest.NewContainer(0x500, 0x400, platform.Size{Width: 640, Height: 480})
}

func (f *fixture) open(t *testing.T, name string) Info {
	t.Helper()
	info, err := f.manager.Open(&types.Connection{Name: name, ExternalTool: "PuTTY"}, container())
	require.NoError(t, err)
	return info
}

func TestOpen(t *testing.T) {
	f := newFixture(t)

	info := f.open(t, "db01")

	assert.True(t, id.IsValid(info.ID.String()))
	assert.NotEmpty(t, info.RequestID)
	assert.Equal(t, "db01", info.Name)
	assert.Equal(t, "PuTTY", info.Tool)
	assert.Equal(t, embed.StateConnected, info.State)
	assert.EqualValues(t, 1001*0x10, info.Window)
	assert.True(t, info.Focused)

	got, ok := f.manager.Get(info.ID)
	require.True(t, ok)
	assert.Equal(t, info.ID, got.ID)
}

func TestOpenFailures(t *testing.T) {
	tests := []struct {
		name string
		tool string
		err  error
	}{
		{"unknown tool", "Missing", embed.ErrToolNotFound},
		{"non-integrated tool", "Browser", embed.ErrNonIntegrated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			_, err := f.manager.Open(&types.Connection{Name: "x", ExternalTool: tt.tool}, container())

			assert.ErrorIs(t, err, tt.err)
			assert.Empty(t, f.manager.List())
			assert.Zero(t, f.manager.Stats().Total)
		})
	}
}

func TestFocusMovesBetweenConnections(t *testing.T) {
	f := newFixture(t)
	first := f.open(t, "db01")
	second := f.open(t, "db02")

	got, _ := f.manager.Get(first.ID)
	assert.False(t, got.Focused, "opening a connection focuses it")

	require.True(t, f.manager.Focus(first.ID))
	got, _ = f.manager.Get(first.ID)
	assert.True(t, got.Focused)
	assert.Equal(t, []platform.Handle{first.Window}, f.ws.Foregrounded())

	got, _ = f.manager.Get(second.ID)
	assert.False(t, got.Focused)

	assert.False(t, f.manager.Focus("conn_missing"))
}

func TestCloseMovesFocus(t *testing.T) {
	f := newFixture(t)
	first := f.open(t, "db01")
	second := f.open(t, "db02")

	require.True(t, f.manager.Close(second.ID))
	assert.False(t, f.manager.Close(second.ID))

	_, ok := f.manager.Get(second.ID)
	assert.False(t, ok)

	stats := f.manager.Stats()
	assert.Equal(t, 1, stats.Total)
	require.NotNil(t, stats.FocusedID)
	assert.Equal(t, first.ID, *stats.FocusedID)
}

func TestProcessExitRemovesConnection(t *testing.T) {
	f := newFixture(t)
	info := f.open(t, "db01")

	f.launcher.Processes()[0].Exit()

	assert.Eventually(t, func() bool {
		_, ok := f.manager.Get(info.ID)
		return !ok
	}, 5*time.Second, 10*time.Millisecond)
	assert.Nil(t, f.manager.Stats().FocusedID)
}

func TestOnClosedReportsEveryRemoval(t *testing.T) {
	f := newFixture(t)

	closed := make(chan id.ConnectionID, 4)
	f.manager.OnClosed(func(cid id.ConnectionID) { closed <- cid })

	exited := f.open(t, "db01")
	closedByHost := f.open(t, "db02")

	f.launcher.Processes()[0].Exit()
	select {
	case cid := <-closed:
		assert.Equal(t, exited.ID, cid)
	case <-time.After(5 * time.Second):
		t.Fatal("no close reported after the process exited")
	}

	require.True(t, f.manager.Close(closedByHost.ID))
	select {
	case cid := <-closed:
		assert.Equal(t, closedByHost.ID, cid)
	default:
		t.Fatal("no close reported for Close")
	}

	assert.False(t, f.manager.Close(closedByHost.ID))
	assert.Empty(t, closed, "each connection is reported once")
}

func TestOnClosedIgnoresFailedOpen(t *testing.T) {
	f := newFixture(t)

	var calls int
	f.manager.OnClosed(func(id.ConnectionID) { calls++ })

	_, err := f.manager.Open(&types.Connection{Name: "x", ExternalTool: "Missing"}, container())
	require.Error(t, err)
	assert.Zero(t, calls)
}

func TestResizeAll(t *testing.T) {
	f := newFixture(t)
	f.open(t, "db01")
	f.open(t, "db02")
	f.ws.ResetPositions()

	f.manager.ResizeAll()

	assert.Len(t, f.ws.Positions(), 4, "two passes per connection")
}

func TestListOldestFirst(t *testing.T) {
	f := newFixture(t)
	a := f.open(t, "db01")
	b := f.open(t, "db02")
	c := f.open(t, "db03")

	list := f.manager.List()
	require.Len(t, list, 3)
	assert.Equal(t, []id.ConnectionID{a.ID, b.ID, c.ID}, []id.ConnectionID{list[0].ID, list[1].ID, list[2].ID})
}

func TestCloseAll(t *testing.T) {
	f := newFixture(t)
	for _, name := range []string{"db01", "db02", "db03"} {
		f.open(t, name)
	}

	require.NoError(t, f.manager.CloseAll(context.Background()))

	assert.Empty(t, f.manager.List())
	assert.Zero(t, f.ws.ActiveHooks())
	for _, p := range f.launcher.Processes() {
		assert.True(t, p.HasExited())
	}
}

func TestCloseAllCancelled(t *testing.T) {
	f := newFixture(t)
	f.open(t, "db01")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, f.manager.CloseAll(ctx), context.Canceled)
	assert.Len(t, f.manager.List(), 1)

	require.NoError(t, f.manager.CloseAll(context.Background()))
}
