package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDomain = `name: TestDomain
slot_names:
  a: []
  b: ["no_elicitation"]
  c:
inquire_slots: [a, c]
`

func writeDomainFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "domain.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestSlotsCommand(t *testing.T) {
	path := writeDomainFile(t, testDomain)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"all by default", []string{"slots", path}, "a\nb\nc\n"},
		{"elicitation", []string{"slots", path, "--kind", "elicitation"}, "a\nc\n"},
		{"inquiry", []string{"slots", path, "-k", "inquiry"}, "a\nc\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runCLI(t, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestSlotsCommand_YAML(t *testing.T) {
	path := writeDomainFile(t, testDomain)

	out, err := runCLI(t, "slots", path, "-o", "yaml")
	require.NoError(t, err)
	assert.Equal(t, `name: TestDomain
slots:
  - a
  - b
  - c
elicitation:
  - a
  - c
inquiry:
  - a
  - c
`, out)

	emptyInquiry := writeDomainFile(t, "slot_names:\n  a:\ninquire_slots: []\n")
	out, err = runCLI(t, "slots", emptyInquiry, "-k", "inquiry", "-o", "yaml")
	require.NoError(t, err)
	assert.Equal(t, "inquiry: []\n", out)
}

func TestSlotsCommand_InvalidFlags(t *testing.T) {
	path := writeDomainFile(t, testDomain)

	_, err := runCLI(t, "slots", path, "--kind", "everything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --kind")

	_, err = runCLI(t, "slots", path, "--output", "json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --output")
}

func TestSlotsCommand_MissingInquireSlots(t *testing.T) {
	path := writeDomainFile(t, "slot_names:\n  a:\n")

	_, err := runCLI(t, "slots", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inquire_slots")
}

func TestValidateCommand(t *testing.T) {
	good := writeDomainFile(t, testDomain)
	bad := writeDomainFile(t, "name: broken\n")

	out, err := runCLI(t, "validate", good)
	require.NoError(t, err)
	assert.Contains(t, out, "ok (3 slots, 2 elicitation, 2 inquiry)")

	out, err = runCLI(t, "validate", good, bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 domain files invalid")
	assert.Contains(t, out, bad+": invalid")
	assert.Contains(t, out, `  - slot_names: the configuration should contain the field "slot_names"`)
	assert.Contains(t, out, `  - inquire_slots: the configuration should contain the field "inquire_slots"`)
}

func TestValidateCommand_RequiresArgs(t *testing.T) {
	_, err := runCLI(t, "validate")
	assert.Error(t, err)
}

func TestInitCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "movies.yaml")

	out, err := runCLI(t, "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Simulation domain.")
	assert.Contains(t, string(data), "title: [no_elicitation]")

	out, err = runCLI(t, "slots", path, "-k", "elicitation")
	require.NoError(t, err)
	assert.Equal(t, "genre\nkeywords\n", out)

	_, err = runCLI(t, "init", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = runCLI(t, "init", path, "--force")
	require.NoError(t, err)
}

// syncBuffer guards a bytes.Buffer written by the watch loop and read by the test
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatchCommand(t *testing.T) {
	path := writeDomainFile(t, testDomain)

	var out syncBuffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"watch", path, "--debounce", "50ms"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- root.ExecuteContext(ctx) }()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "3 slots")
	}, 3*time.Second, 20*time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte("slot_names:\n  x:\ninquire_slots: [x]\n"), 0644))

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "1 slots, elicitation=[x] inquiry=[x]")
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch command did not stop")
	}
}

func TestWatchCommand_RejectsNonPositiveDebounce(t *testing.T) {
	path := writeDomainFile(t, testDomain)
	_, err := runCLI(t, "watch", path, "--debounce", "0s")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--debounce must be positive")
}

func TestParseLogLevelFlags(t *testing.T) {
	tests := []struct {
		name         string
		flags        []string
		env          map[string]string
		wantDefault  string
		wantPackages map[string]string
		wantErr      bool
	}{
		{
			name:         "single default level",
			flags:        []string{"debug"},
			wantDefault:  "debug",
			wantPackages: map[string]string{},
		},
		{
			name:         "default and package levels",
			flags:        []string{"default=warn", "config.watcher=debug"},
			wantDefault:  "warn",
			wantPackages: map[string]string{"config.watcher": "debug"},
		},
		{
			name:         "env var with flag override",
			flags:        []string{"info", "domain=error"},
			env:          map[string]string{"LOG_LEVEL_DOMAIN": "debug", "LOG_LEVEL_CONFIG_WATCHER": "warn"},
			wantDefault:  "info",
			wantPackages: map[string]string{"domain": "error", "config.watcher": "warn"},
		},
		{
			name:    "invalid default",
			flags:   []string{"loud"},
			wantErr: true,
		},
		{
			name:    "invalid package level",
			flags:   []string{"domain=loud"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			def, pkgs, err := parseLogLevelFlags(tt.flags)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDefault, def)
			assert.Equal(t, tt.wantPackages, pkgs)
		})
	}
}

func TestConvertEnvKeyToPackageName(t *testing.T) {
	assert.Equal(t, "config.watcher", convertEnvKeyToPackageName("LOG_LEVEL_CONFIG_WATCHER"))
	assert.Equal(t, "domain", convertEnvKeyToPackageName("LOG_LEVEL_DOMAIN"))
}
