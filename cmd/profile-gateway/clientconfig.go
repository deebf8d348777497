// ABOUTME: Client-side TOML config for CLI commands that talk to a running gateway.
// ABOUTME: Loads from XDG path with environment variable expansion.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
)

type clientConfig struct {
	Gateway clientGatewayConfig `toml:"gateway"`
}

type clientGatewayConfig struct {
	URL        string `toml:"url"`
	AdminToken string `toml:"admin_token"`
}

// getClientConfigPath returns the path to the client config file.
// Priority: PROFILE_GATEWAY_CLIENT_CONFIG env var > XDG_CONFIG_HOME/profile-gateway/client.toml
func getClientConfigPath() string {
	if envPath := os.Getenv("PROFILE_GATEWAY_CLIENT_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "client.toml"
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "profile-gateway", "client.toml")
}

// loadClientConfig reads the client config, falling back to a localhost
// gateway when no config file exists yet.
func loadClientConfig() (*clientConfig, error) {
	cfg := &clientConfig{}
	cfg.Gateway.URL = "http://localhost:8080"

	path := getClientConfigPath()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading client config: %w", err)
	}

	expanded := expandClientEnvVars(string(data))
	if _, err := toml.Decode(expanded, cfg); err != nil {
		return nil, fmt.Errorf("parsing client config %s: %w", path, err)
	}

	cfg.Gateway.URL = strings.TrimRight(cfg.Gateway.URL, "/")
	if cfg.Gateway.URL == "" {
		return nil, fmt.Errorf("gateway.url is empty in %s", path)
	}

	return cfg, nil
}

// expandClientEnvVars replaces ${VAR} with environment variable values.
func expandClientEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		return os.Getenv(varName)
	})
}

// writeClientConfig saves a client config file with the given gateway URL and
// admin token. Used by bootstrap so the CLI commands work out of the box.
func writeClientConfig(gatewayURL, adminToken string) (string, error) {
	path := getClientConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}

	var buf strings.Builder
	buf.WriteString("# profile-gateway client configuration\n")
	buf.WriteString("# Generated by profile-gateway bootstrap\n\n")
	buf.WriteString("[gateway]\n")
	buf.WriteString(fmt.Sprintf("url = %q\n", gatewayURL))
	buf.WriteString(fmt.Sprintf("admin_token = %q\n", adminToken))

	if err := os.WriteFile(path, []byte(buf.String()), 0600); err != nil {
		return "", fmt.Errorf("writing client config: %w", err)
	}
	return path, nil
}
