// Package setup registers the diagnosis MCP server with desktop MCP clients.
package setup

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// ServerKey is the entry name used in the client's mcpServers map.
const ServerKey = "breast-dx"

// BinaryName is the MCP server executable looked up when no path is given.
const BinaryName = "mcp-server"

// ClientConfig is the desktop client configuration file. Entries other than
// mcpServers are preserved untouched.
type ClientConfig struct {
	MCPServers map[string]ServerEntry `json:"mcpServers"`
	other      map[string]json.RawMessage
}

// ServerEntry is one MCP server launch definition.
type ServerEntry struct {
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// Options controls Register.
type Options struct {
	ConfigPath string // empty means DefaultConfigPath
	BinaryPath string // empty means FindBinary
	DataDir    string // exported as BCDX_DATA_DIR
	ModelPath  string // exported as BCDX_MODEL_PATH
}

// DefaultConfigPath returns the desktop client's config file for this OS.
func DefaultConfigPath() (string, error) {
	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(home, "Library", "Application Support", "Claude", "claude_desktop_config.json"), nil
	case "linux":
		dir := os.Getenv("XDG_CONFIG_HOME")
		if dir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			dir = filepath.Join(home, ".config")
		}
		return filepath.Join(dir, "Claude", "claude_desktop_config.json"), nil
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", errors.New("APPDATA environment variable not set")
		}
		return filepath.Join(appData, "Claude", "claude_desktop_config.json"), nil
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}
}

// Load reads the client config. A missing file yields an empty config.
func Load(path string) (*ClientConfig, error) {
	cfg := &ClientConfig{MCPServers: map[string]ServerEntry{}, other: map[string]json.RawMessage{}}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, &cfg.other); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if raw, ok := cfg.other["mcpServers"]; ok {
		if err := json.Unmarshal(raw, &cfg.MCPServers); err != nil {
			return nil, fmt.Errorf("failed to parse mcpServers: %w", err)
		}
		delete(cfg.other, "mcpServers")
	}
	if cfg.MCPServers == nil {
		cfg.MCPServers = map[string]ServerEntry{}
	}
	return cfg, nil
}

// Save writes the config, creating its directory.
func (c *ClientConfig) Save(path string) error {
	out := make(map[string]any, len(c.other)+1)
	for k, v := range c.other {
		out[k] = v
	}
	out["mcpServers"] = c.MCPServers

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Register adds or replaces the breast-dx entry and returns the config path written.
func Register(opts Options) (string, error) {
	path := opts.ConfigPath
	if path == "" {
		var err error
		if path, err = DefaultConfigPath(); err != nil {
			return "", err
		}
	}

	binary := opts.BinaryPath
	if binary == "" {
		var err error
		if binary, err = FindBinary(); err != nil {
			return "", err
		}
	}

	cfg, err := Load(path)
	if err != nil {
		return "", err
	}

	entry := ServerEntry{Command: binary, Env: map[string]string{}}
	if opts.DataDir != "" {
		entry.Env["BCDX_DATA_DIR"] = opts.DataDir
	}
	if opts.ModelPath != "" {
		entry.Env["BCDX_MODEL_PATH"] = opts.ModelPath
	}
	cfg.MCPServers[ServerKey] = entry

	return path, cfg.Save(path)
}

// FindBinary looks for the MCP server on PATH, then in the usual build locations.
func FindBinary() (string, error) {
	if path, err := exec.LookPath(BinaryName); err == nil {
		return path, nil
	}

	home, _ := os.UserHomeDir()
	for _, loc := range []string{
		filepath.Join(".", BinaryName),
		filepath.Join(".", "bin", BinaryName),
		filepath.Join(home, ".local", "bin", BinaryName),
	} {
		if _, err := os.Stat(loc); err == nil {
			if abs, err := filepath.Abs(loc); err == nil {
				return abs, nil
			}
			return loc, nil
		}
	}
	return "", fmt.Errorf("binary %q not found", BinaryName)
}

// Status describes the registration found in a client config.
type Status struct {
	ConfigPath string
	Registered bool
	Entry      ServerEntry
	Issues     []string
}

// Inspect reports whether the server is registered and whether its binary exists.
func Inspect(path string) (*Status, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	status := &Status{ConfigPath: path}
	entry, ok := cfg.MCPServers[ServerKey]
	if !ok {
		status.Issues = append(status.Issues, "breast-dx is not registered")
		return status, nil
	}
	status.Registered = true
	status.Entry = entry

	info, err := os.Stat(entry.Command)
	switch {
	case err != nil:
		status.Issues = append(status.Issues, "server binary not found: "+entry.Command)
	case info.Mode()&0111 == 0:
		status.Issues = append(status.Issues, "server binary is not executable: "+entry.Command)
	}
	return status, nil
}
