// ABOUTME: Entry point for the profile-gateway server and CLI.
// ABOUTME: Caching resolver for XMTP conversation profiles with pin overrides.

package main

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/converge-cv/profile-gateway/internal/auth"
	"github.com/converge-cv/profile-gateway/internal/config"
	"github.com/converge-cv/profile-gateway/internal/gateway"
	"github.com/converge-cv/profile-gateway/internal/profile"
	"github.com/converge-cv/profile-gateway/internal/store"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
                   __ _ _
 _ __  _ __ ___  / _(_) | ___        __ _  __ _| |_ _____      ____ _ _   _
| '_ \| '__/ _ \| |_| | |/ _ \_____ / _' |/ _' | __/ _ \ \ /\ / / _' | | | |
| |_) | | | (_) |  _| | |  __/_____| (_| | (_| | ||  __/\ V  V / (_| | |_| |
| .__/|_|  \___/|_| |_|_|\___|      \__, |\__,_|\__\___| \_/\_/ \__,_|\__, |
|_|                                 |___/                             |___/
`

// getConfigPath returns the path to the gateway config file.
// Priority: PROFILE_GATEWAY_CONFIG env var > XDG_CONFIG_HOME/profile-gateway/gateway.yaml
func getConfigPath() string {
	if envPath := os.Getenv("PROFILE_GATEWAY_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "gateway.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "profile-gateway", "gateway.yaml")
}

// getDataPath returns the path to the profile-gateway data directory.
// Priority: XDG_DATA_HOME/profile-gateway > ~/.local/share/profile-gateway
func getDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data" // fallback
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, "profile-gateway")
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit()
	case "bootstrap":
		err = runBootstrap(ctx)
	case "token":
		err = runToken(ctx, os.Args[2:])
	case "health":
		err = runHealth(ctx)
	case "stats":
		err = runStats(ctx)
	case "resolve":
		err = runResolve(ctx, os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	cyan.Print(banner)
	fmt.Println()
	fmt.Println("Usage: profile-gateway <command> [args]")
	fmt.Println()
	yellow.Println("Commands:")
	fmt.Println("  serve                  Start the gateway server")
	fmt.Println("  init                   Create a new config file interactively")
	fmt.Println("  bootstrap --name NAME  Create config and initial admin token")
	fmt.Println("  token create --name N  Mint a new admin token")
	fmt.Println("  token list             List admin tokens")
	fmt.Println("  token revoke <id>      Revoke an admin token")
	fmt.Println("  health                 Check gateway health")
	fmt.Println("  stats                  Show cache statistics")
	fmt.Println("  resolve <address>      Resolve a profile through the gateway")
	fmt.Println()
	yellow.Println("Environment:")
	fmt.Println("  PROFILE_GATEWAY_CONFIG          Server config path (default: ~/.config/profile-gateway/gateway.yaml)")
	fmt.Println("  PROFILE_GATEWAY_CLIENT_CONFIG   Client config path (default: ~/.config/profile-gateway/client.toml)")
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)

	baseURL, err := cfg.UpstreamBaseURL()
	if err != nil {
		return fmt.Errorf("resolving upstream: %w", err)
	}

	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	green.Print("    ▶ ")
	fmt.Printf("Config:    %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:      %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Upstream:  %s\n", baseURL)
	green.Print("    ▶ ")
	fmt.Printf("Cache:     ttl=%s negative_ttl=%s\n", cfg.Cache.TTL, cfg.Cache.NegativeTTL)

	if cfg.Tailscale.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("Tailscale: ")
		cyan.Print(cfg.Tailscale.Hostname)
		if cfg.Tailscale.Funnel {
			yellow.Print(" [funnel]")
		}
		if cfg.Tailscale.Ephemeral {
			gray.Print(" (ephemeral)")
		}
		fmt.Println()
	}

	fmt.Println()

	logger.Info("starting profile-gateway",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"upstream", baseURL,
	)

	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}

	resolver := profile.NewHTTPResolver(baseURL, cfg.Upstream.RequestTimeout, logger)
	profiles := profile.NewService(st, resolver, cfg.Cache.TTL, cfg.Cache.NegativeTTL, logger)

	gw := gateway.New(cfg, st, profiles, logger)
	return gw.Run(ctx)
}

func runHealth(ctx context.Context) error {
	client, err := loadClientConfig()
	if err != nil {
		return err
	}

	resp, err := clientGet(ctx, client, "/healthz")
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	fmt.Println("healthy")
	return nil
}

func runStats(ctx context.Context) error {
	client, err := loadClientConfig()
	if err != nil {
		return err
	}

	resp, err := clientGet(ctx, client, "/api/stats")
	if err != nil {
		return fmt.Errorf("fetching stats: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("stats failed: status %d", resp.StatusCode)
	}

	var stats struct {
		Lookups       int64 `json:"lookups"`
		Hits          int64 `json:"hits"`
		Misses        int64 `json:"misses"`
		Entries       int   `json:"entries"`
		UptimeSeconds int64 `json:"uptime_seconds"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return fmt.Errorf("decoding stats: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "lookups:\t%d\n", stats.Lookups)
	fmt.Fprintf(w, "hits:\t%d\n", stats.Hits)
	fmt.Fprintf(w, "misses:\t%d\n", stats.Misses)
	fmt.Fprintf(w, "entries:\t%d\n", stats.Entries)
	fmt.Fprintf(w, "uptime:\t%s\n", time.Duration(stats.UptimeSeconds)*time.Second)
	return w.Flush()
}

func runResolve(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: profile-gateway resolve <address>")
	}
	address := args[0]

	client, err := loadClientConfig()
	if err != nil {
		return err
	}

	resp, err := clientGet(ctx, client, "/api/profiles/"+url.PathEscape(address))
	if err != nil {
		return fmt.Errorf("resolving profile: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		color.Yellow("no profile for %s", address)
		return nil
	default:
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("resolve failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var p profile.Profile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return fmt.Errorf("decoding profile: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "address:\t%s\n", p.Address)
	if p.Handle != "" {
		fmt.Fprintf(w, "handle:\t%s\n", p.Handle)
	}
	if p.DisplayName != "" {
		fmt.Fprintf(w, "display name:\t%s\n", p.DisplayName)
	}
	if p.AvatarURL != "" {
		fmt.Fprintf(w, "avatar:\t%s\n", p.AvatarURL)
	}
	if p.Bio != "" {
		fmt.Fprintf(w, "bio:\t%s\n", p.Bio)
	}
	fmt.Fprintf(w, "source:\t%s\n", p.Source)
	return w.Flush()
}

func clientGet(ctx context.Context, client *clientConfig, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, client.Gateway.URL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if client.Gateway.AdminToken != "" {
		req.Header.Set("Authorization", "Bearer "+client.Gateway.AdminToken)
	}
	return http.DefaultClient.Do(req)
}

// runBootstrap performs first-time setup of the gateway:
// 1. Creates config file with random JWT secret (if not exists)
// 2. Creates the database and an initial admin token
// 3. Writes a client config so the CLI commands work immediately
//
// This is a one-command setup: profile-gateway bootstrap --name "laptop"
func runBootstrap(ctx context.Context) error {
	name, err := parseNameFlag(os.Args[2:])
	if err != nil {
		return err
	}

	configPath := getConfigPath()
	dataPath := getDataPath()
	dbPath := filepath.Join(dataPath, "gateway.db")

	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	var cfg *config.Config

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		secretBytes := make([]byte, 32)
		if _, err := rand.Read(secretBytes); err != nil {
			return fmt.Errorf("generating JWT secret: %w", err)
		}
		jwtSecret := base64.StdEncoding.EncodeToString(secretBytes)

		if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
		if err := os.MkdirAll(dataPath, 0755); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}

		configContent := fmt.Sprintf(`# profile-gateway configuration
# Generated by profile-gateway bootstrap

server:
  http_addr: "localhost:8080"

database:
  path: "%s"

upstream:
  env: "production"

cache:
  ttl: "5m"
  negative_ttl: "30s"

auth:
  jwt_secret: "%s"

logging:
  level: "info"
  format: "text"
`, dbPath, jwtSecret)

		if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
			return fmt.Errorf("writing config file: %w", err)
		}

		green.Printf("  ✓ Created config: %s\n", configPath)

		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
	} else {
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cyan.Printf("  Using existing config: %s\n", configPath)
	}

	s, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer s.Close()

	green.Printf("  ✓ Database: %s\n", cfg.Database.Path)

	existing, err := s.ListAdminTokens(ctx)
	if err != nil {
		return fmt.Errorf("checking admin tokens: %w", err)
	}
	if len(existing) > 0 {
		return fmt.Errorf("bootstrap already complete: %d admin token(s) exist (use 'token create' for more)", len(existing))
	}

	gen, err := auth.GenerateAdminToken(name)
	if err != nil {
		return fmt.Errorf("generating admin token: %w", err)
	}
	if err := s.CreateAdminToken(ctx, gen.Record); err != nil {
		return fmt.Errorf("storing admin token: %w", err)
	}

	green.Printf("  ✓ Created admin token: %s\n", name)

	gatewayURL := "http://" + cfg.Server.HTTPAddr
	clientPath, err := writeClientConfig(gatewayURL, gen.Token)
	if err != nil {
		return err
	}
	green.Printf("  ✓ Saved client config: %s\n", clientPath)

	fmt.Println()
	green.Println("  Bootstrap complete!")
	fmt.Println()
	cyan.Println("  Admin Token")
	cyan.Println("  -----------")
	fmt.Printf("  ID:    %s\n", gen.Record.ID)
	fmt.Printf("  Name:  %s\n", name)
	fmt.Printf("  Token: %s\n", gen.Token)
	fmt.Println()
	yellow.Println("  The token is shown once and cannot be recovered. It is saved")
	yellow.Printf("  in %s for the CLI commands.\n", clientPath)
	fmt.Println()
	yellow.Println("  Ready to go:")
	fmt.Println("    profile-gateway serve     # start the gateway")
	fmt.Println("    profile-gateway health    # verify it is up")
	fmt.Println()

	return nil
}

// runToken manages admin tokens directly against the database, so it works
// even when the gateway is not running.
func runToken(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: profile-gateway token <create|list|revoke>")
	}

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	s, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer s.Close()

	switch args[0] {
	case "create":
		name, err := parseNameFlag(args[1:])
		if err != nil {
			return err
		}
		gen, err := auth.GenerateAdminToken(name)
		if err != nil {
			return fmt.Errorf("generating admin token: %w", err)
		}
		if err := s.CreateAdminToken(ctx, gen.Record); err != nil {
			return fmt.Errorf("storing admin token: %w", err)
		}
		color.Green("Created token %q (id %s)", name, gen.Record.ID)
		fmt.Println()
		fmt.Println(gen.Token)
		color.Yellow("The token is shown once and cannot be recovered.")
		return nil

	case "list":
		tokens, err := s.ListAdminTokens(ctx)
		if err != nil {
			return fmt.Errorf("listing admin tokens: %w", err)
		}
		if len(tokens) == 0 {
			fmt.Println("no admin tokens")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tCREATED\tLAST USED")
		for _, t := range tokens {
			lastUsed := "never"
			if t.LastUsedAt != nil {
				lastUsed = t.LastUsedAt.Format(time.RFC3339)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.ID, t.Name, t.CreatedAt.Format(time.RFC3339), lastUsed)
		}
		return w.Flush()

	case "revoke":
		if len(args) != 2 {
			return fmt.Errorf("usage: profile-gateway token revoke <id>")
		}
		if err := s.DeleteAdminToken(ctx, args[1]); err != nil {
			return fmt.Errorf("revoking token: %w", err)
		}
		color.Green("Revoked token %s", args[1])
		return nil

	default:
		return fmt.Errorf("unknown token subcommand: %s", args[0])
	}
}

// parseNameFlag extracts --name from args.
// Supports both "--name value" and "--name=value" formats.
func parseNameFlag(args []string) (string, error) {
	var name string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--name" || arg == "-n":
			if i+1 >= len(args) {
				return "", fmt.Errorf("--name requires a value")
			}
			name = args[i+1]
			i++
		case strings.HasPrefix(arg, "--name="):
			name = strings.TrimPrefix(arg, "--name=")
		case strings.HasPrefix(arg, "-n="):
			name = strings.TrimPrefix(arg, "-n=")
		case strings.HasPrefix(arg, "-"):
			return "", fmt.Errorf("unknown flag: %s", arg)
		default:
			return "", fmt.Errorf("unexpected argument: %s", arg)
		}
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("--name flag is required")
	}
	if len(name) > 100 {
		return "", fmt.Errorf("name exceeds maximum length of 100 characters")
	}
	return name, nil
}

func runInit() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("profile-gateway configuration setup")
	fmt.Println("===================================")
	fmt.Println()

	defaultConfigPath := getConfigPath()
	defaultDataPath := getDataPath()
	defaultDbPath := filepath.Join(defaultDataPath, "gateway.db")

	outputFile := prompt(reader, "Config file path", defaultConfigPath)

	if _, err := os.Stat(outputFile); err == nil {
		overwrite := prompt(reader, "File exists. Overwrite?", "no")
		if strings.ToLower(overwrite) != "yes" && strings.ToLower(overwrite) != "y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	fmt.Println("\n--- Server Configuration ---")
	httpAddr := prompt(reader, "HTTP address", "localhost:8080")

	fmt.Println("\n--- Database Configuration ---")
	dbPath := prompt(reader, "SQLite database path", defaultDbPath)

	fmt.Println("\n--- Upstream Configuration ---")
	upstreamEnv := prompt(reader, "XMTP environment (local/dev/production)", "production")
	baseURL := prompt(reader, "Upstream base URL override (leave empty to use environment)", "")

	fmt.Println("\n--- Cache Configuration ---")
	ttl := prompt(reader, "Profile cache TTL", "5m")
	negativeTTL := prompt(reader, "Negative cache TTL (missing profiles)", "30s")

	fmt.Println("\n--- Tailscale Configuration ---")
	enableTailscale := prompt(reader, "Enable Tailscale?", "no")
	tailscaleEnabled := strings.ToLower(enableTailscale) == "yes" || strings.ToLower(enableTailscale) == "y"

	var tsHostname, tsAuthKey string
	var tsEphemeral, tsFunnel bool
	if tailscaleEnabled {
		tsHostname = prompt(reader, "Tailscale hostname", "profile-gateway")
		tsAuthKey = prompt(reader, "Tailscale auth key (leave empty for interactive)", "")
		ephemeralStr := prompt(reader, "Ephemeral node?", "no")
		tsEphemeral = strings.ToLower(ephemeralStr) == "yes" || strings.ToLower(ephemeralStr) == "y"
		funnelStr := prompt(reader, "Enable Funnel (public HTTPS)?", "no")
		tsFunnel = strings.ToLower(funnelStr) == "yes" || strings.ToLower(funnelStr) == "y"
	}

	fmt.Println("\n--- Logging Configuration ---")
	logLevel := prompt(reader, "Log level (debug/info/warn/error)", "info")
	logFormat := prompt(reader, "Log format (text/json)", "text")

	var cfg strings.Builder
	cfg.WriteString("# profile-gateway configuration\n")
	cfg.WriteString("# Generated by profile-gateway init\n\n")

	cfg.WriteString("server:\n")
	cfg.WriteString(fmt.Sprintf("  http_addr: \"%s\"\n", httpAddr))
	cfg.WriteString("\n")

	cfg.WriteString("database:\n")
	cfg.WriteString(fmt.Sprintf("  path: \"%s\"\n", dbPath))
	cfg.WriteString("\n")

	cfg.WriteString("upstream:\n")
	cfg.WriteString(fmt.Sprintf("  env: \"%s\"\n", upstreamEnv))
	if baseURL != "" {
		cfg.WriteString(fmt.Sprintf("  base_url: \"%s\"\n", baseURL))
	}
	cfg.WriteString("  request_timeout: \"10s\"\n")
	cfg.WriteString("\n")

	cfg.WriteString("cache:\n")
	cfg.WriteString(fmt.Sprintf("  ttl: \"%s\"\n", ttl))
	cfg.WriteString(fmt.Sprintf("  negative_ttl: \"%s\"\n", negativeTTL))
	cfg.WriteString("\n")

	cfg.WriteString("tailscale:\n")
	cfg.WriteString(fmt.Sprintf("  enabled: %t\n", tailscaleEnabled))
	if tailscaleEnabled {
		cfg.WriteString(fmt.Sprintf("  hostname: \"%s\"\n", tsHostname))
		if tsAuthKey != "" {
			cfg.WriteString(fmt.Sprintf("  auth_key: \"%s\"\n", tsAuthKey))
		}
		cfg.WriteString(fmt.Sprintf("  ephemeral: %t\n", tsEphemeral))
		cfg.WriteString(fmt.Sprintf("  funnel: %t\n", tsFunnel))
	}
	cfg.WriteString("\n")

	cfg.WriteString("logging:\n")
	cfg.WriteString(fmt.Sprintf("  level: \"%s\"\n", logLevel))
	cfg.WriteString(fmt.Sprintf("  format: \"%s\"\n", logFormat))

	if err := os.MkdirAll(filepath.Dir(outputFile), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(outputFile, []byte(cfg.String()), 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	fmt.Printf("\nConfig written to %s\n", outputFile)
	fmt.Println("\nTo start the server:")
	fmt.Printf("  profile-gateway serve\n")

	return nil
}

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		// On EOF or error, return default
		fmt.Println()
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}
