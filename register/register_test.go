package register

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readServers(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	servers, ok := doc["mcpServers"].(map[string]any)
	require.True(t, ok, "mcpServers not found or not an object")
	return servers
}

func Test_DeriveServerName(t *testing.T) {
	tests := []struct {
		binaryPath string
		want       string
	}{
		{"fileorganizer-mcp", "fileorganizer"},
		{"fileorganizer-mcp.exe", "fileorganizer"},
		{"organizer", "organizer"},
		{"/usr/local/bin/fileorganizer-mcp", "fileorganizer"},
	}
	for _, tt := range tests {
		t.Run(tt.binaryPath, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveServerName(tt.binaryPath))
		})
	}
}

func Test_Register_ProjectScope(t *testing.T) {
	dir := t.TempDir()

	path, err := Register(Options{
		Scope:      ScopeProject,
		Directory:  dir,
		BinaryPath: "/usr/local/bin/fileorganizer-mcp",
		ServerArgs: []string{"--root", "/photos"},
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ".mcp.json"), path)

	servers := readServers(t, path)
	entry, ok := servers["fileorganizer"].(map[string]any)
	require.True(t, ok)
	if runtime.GOOS != "windows" {
		assert.Equal(t, "/usr/local/bin/fileorganizer-mcp", entry["command"])
		assert.Equal(t, []any{"--root", "/photos"}, entry["args"])
	}
}

func Test_Register_UserScope(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)

	path, err := Register(Options{Scope: ScopeUser, ServerName: "files", BinaryPath: "/bin/fo"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".claude.json"), path)
	assert.Contains(t, readServers(t, path), "files")
}

func Test_Register_UnknownScope(t *testing.T) {
	_, err := Register(Options{Scope: "global"})
	require.ErrorIs(t, err, ErrUnknownScope)
}

func Test_writeConfig_KeepsOtherEntries(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), ".mcp.json")
	initial := `{"theme": "dark", "mcpServers": {"other": {"command": "/usr/bin/other"}, "fileorganizer": {"command": "/old"}}}`
	require.NoError(t, os.WriteFile(configPath, []byte(initial), 0644))

	require.NoError(t, writeConfig(configPath, "fileorganizer", ServerEntry{Command: "/new"}))

	data, err := os.ReadFile(configPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"theme": "dark"`)

	servers := readServers(t, configPath)
	assert.Equal(t, "/usr/bin/other", servers["other"].(map[string]any)["command"])
	assert.Equal(t, "/new", servers["fileorganizer"].(map[string]any)["command"])
}

func Test_writeConfig_InvalidJSON(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), ".mcp.json")
	require.NoError(t, os.WriteFile(configPath, []byte("not valid json{{{"), 0644))

	err := writeConfig(configPath, "fileorganizer", ServerEntry{Command: "/bin/fo"})
	assert.Error(t, err)
}

func Test_writeConfig_ServersNotObject(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), ".mcp.json")
	require.NoError(t, os.WriteFile(configPath, []byte(`{"mcpServers": []}`), 0644))

	err := writeConfig(configPath, "fileorganizer", ServerEntry{Command: "/bin/fo"})
	assert.ErrorContains(t, err, "not an object")
}

func Test_buildEntry(t *testing.T) {
	entry := buildEntry("/usr/local/bin/fileorganizer-mcp", []string{"--watch=false"})

	if runtime.GOOS == "windows" {
		assert.Equal(t, "cmd", entry.Command)
		assert.Equal(t, []string{"/C", "/usr/local/bin/fileorganizer-mcp", "--watch=false"}, entry.Args)
		return
	}
	assert.Equal(t, "/usr/local/bin/fileorganizer-mcp", entry.Command)
	assert.Equal(t, []string{"--watch=false"}, entry.Args)
}
