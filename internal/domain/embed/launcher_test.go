package embed

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/hostembed/internal/domain/tools"
	"github.com/GriffinCanCode/AgentOS/hostembed/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/AgentOS/hostembed/internal/platform"
	"github.com/GriffinCanCode/AgentOS/hostembed/internal/platform/platformtest"
	"github.com/GriffinCanCode/AgentOS/hostembed/internal/shared/types"
)

func noEnv(string) (string, bool) { return "", false }

func TestLauncherCommandExpandsTemplates(t *testing.T) {
	l := NewLauncher(platformtest.NewLauncher()).WithEnv(func(name string) (string, bool) {
		if name == "PROGRAMFILES" {
			return `C:\Program Files`, true
		}
		return "", false
	})
	tool := tools.Tool{
		DisplayName: "PuTTY",
		FileName:    `%PROGRAMFILES%\PuTTY\putty.exe`,
		Arguments:   "-ssh %USERNAME%@%HOSTNAME% -P %PORT%",
		WorkingDir:  "%!PROGRAMFILES%",
		RunElevated: true,
	}
	conn := &types.Connection{Hostname: "db01", Port: 22, Username: "ops"}

	cmd := l.Command(tool, conn)

	assert.Equal(t, platform.Command{
		FileName:   `C:\Program Files\PuTTY\putty.exe`,
		Arguments:  "-ssh ops@db01 -P 22",
		WorkingDir: `C:\Program Files`,
		Elevated:   true,
	}, cmd)
}

func TestLauncherStart(t *testing.T) {
	fake := platformtest.NewLauncher()
	l := NewLauncher(fake).WithEnv(noEnv)

	p, err := l.Start(tools.Tool{DisplayName: "WinSCP", FileName: "winscp.exe"}, &types.Connection{})

	require.NoError(t, err)
	assert.Equal(t, 1001, p.PID())
	require.Len(t, fake.Started(), 1)
	assert.Equal(t, "winscp.exe", fake.Started()[0].FileName)
}

func TestLauncherStartFailureWrapsErrLaunch(t *testing.T) {
	fake := platformtest.NewLauncher()
	fake.Err = errors.New("file not found")
	l := NewLauncher(fake)

	_, err := l.Start(tools.Tool{DisplayName: "WinSCP", FileName: "winscp.exe"}, nil)

	assert.ErrorIs(t, err, ErrLaunch)
	assert.ErrorIs(t, err, fake.Err)
}

func TestLauncherBreakerOpensAfterRepeatedFailures(t *testing.T) {
	fake := platformtest.NewLauncher()
	fake.Err = errors.New("file not found")
	l := NewLauncher(fake).WithBreakers(resilience.NewGroup(resilience.Settings{Failures: 2, Cooldown: time.Minute}))
	tool := tools.Tool{DisplayName: "WinSCP", FileName: "winscp.exe"}

	for i := 0; i < 2; i++ {
		_, err := l.Start(tool, nil)
		require.ErrorIs(t, err, fake.Err)
	}

	_, err := l.Start(tool, nil)
	assert.ErrorIs(t, err, ErrLaunch)
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Len(t, fake.Started(), 2, "an open breaker does not reach the launcher")

	_, err = l.Start(tools.Tool{DisplayName: "PuTTY", FileName: "putty.exe"}, nil)
	assert.ErrorIs(t, err, fake.Err, "breakers are per tool")
}

func TestLauncherDetachReleasesProcess(t *testing.T) {
	fake := platformtest.NewLauncher()
	l := NewLauncher(fake)

	require.NoError(t, l.Detach(tools.Tool{DisplayName: "Notepad", FileName: "notepad.exe"}, nil))

	require.Len(t, fake.Processes(), 1)
	_, _, releases := fake.Processes()[0].Calls()
	assert.Equal(t, 1, releases)
}
