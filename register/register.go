// Package register adds the organizer to an MCP client configuration file.
package register

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Scopes accepted by Register.
const (
	ScopeProject = "project" // <directory>/.mcp.json
	ScopeUser    = "user"    // ~/.claude.json
)

// ErrUnknownScope is returned for scopes other than project and user.
var ErrUnknownScope = errors.New(`unknown scope (must be "project" or "user")`)

// ServerEntry is one mcpServers entry.
type ServerEntry struct {
	Command string   `json:"command"`
	Args    []string `json:"args,omitempty"`
}

// Options describes a registration.
type Options struct {
	Scope      string
	Directory  string // project scope only, default "."
	ServerName string // default derived from the binary name
	BinaryPath string // default the running executable
	ServerArgs []string
}

// Register writes or replaces the server entry and returns the file it wrote.
func Register(options Options) (string, error) {
	if options.Scope != ScopeProject && options.Scope != ScopeUser {
		return "", fmt.Errorf("%w: %q", ErrUnknownScope, options.Scope)
	}

	binaryPath := options.BinaryPath
	if binaryPath == "" {
		var err error
		binaryPath, err = detectBinaryPath()
		if err != nil {
			return "", fmt.Errorf("detecting binary path: %w", err)
		}
	}
	serverName := options.ServerName
	if serverName == "" {
		serverName = DeriveServerName(binaryPath)
	}

	configPath, err := resolveConfigPath(options.Scope, options.Directory)
	if err != nil {
		return "", fmt.Errorf("resolving config path: %w", err)
	}

	if err := writeConfig(configPath, serverName, buildEntry(binaryPath, options.ServerArgs)); err != nil {
		return "", fmt.Errorf("writing config: %w", err)
	}
	return configPath, nil
}

// DeriveServerName extracts a server name from a binary path by stripping .exe and -mcp suffixes.
func DeriveServerName(binaryPath string) string {
	name := filepath.Base(binaryPath)
	name = strings.TrimSuffix(name, ".exe")
	name = strings.TrimSuffix(name, "-mcp")
	return name
}

func detectBinaryPath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("getting executable path: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("resolving symlinks for %s: %w", exe, err)
	}
	return resolved, nil
}

func resolveConfigPath(scope string, directory string) (string, error) {
	if scope == ScopeProject {
		if directory == "" {
			directory = "."
		}
		absDir, err := filepath.Abs(directory)
		if err != nil {
			return "", fmt.Errorf("resolving directory %s: %w", directory, err)
		}
		return filepath.Join(absDir, ".mcp.json"), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(homeDir, ".claude.json"), nil
}

func buildEntry(binaryPath string, serverArgs []string) ServerEntry {
	if runtime.GOOS == "windows" {
		args := []string{"/C", binaryPath}
		args = append(args, serverArgs...)
		return ServerEntry{Command: "cmd", Args: args}
	}
	return ServerEntry{Command: binaryPath, Args: serverArgs}
}

// writeConfig sets mcpServers[serverName] and keeps every other key.
func writeConfig(configPath string, serverName string, entry ServerEntry) error {
	doc := map[string]any{
		"mcpServers": map[string]any{},
	}

	data, err := os.ReadFile(configPath)
	if err == nil {
		if err := json.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parsing existing config %s: %w", configPath, err)
		}
	}

	servers, ok := doc["mcpServers"]
	if !ok {
		servers = map[string]any{}
		doc["mcpServers"] = servers
	}
	serversMap, ok := servers.(map[string]any)
	if !ok {
		return fmt.Errorf("mcpServers in %s is not an object", configPath)
	}
	serversMap[serverName] = entry

	output, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	output = append(output, '\n')

	// Write a temp file in the same directory and rename it over the original.
	configDir := filepath.Dir(configPath)
	tmpFile, err := os.CreateTemp(configDir, ".mcp-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file in %s: %w", configDir, err)
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(output); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp file %s: %w", tmpPath, err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, configPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming %s to %s: %w", tmpPath, configPath, err)
	}
	return nil
}
