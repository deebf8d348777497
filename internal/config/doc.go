// Package config handles configuration loading for profile-gateway.
//
// # Overview
//
// Configuration is loaded from a YAML file with environment variable
// expansion (${VAR_NAME}), duration parsing, defaults, and validation.
//
// # Configuration Sections
//
// Server and database:
//
//	server:
//	  http_addr: "0.0.0.0:8080"
//	database:
//	  path: "/var/lib/profile-gateway/gateway.db"
//
// Upstream profile API (env preset or explicit base URL):
//
//	upstream:
//	  env: "production"      # local, dev, production
//	  base_url: ""           # overrides env when set
//	  request_timeout: "10s"
//
// Resolution cache TTLs:
//
//	cache:
//	  ttl: "5m"              # positive results
//	  negative_ttl: "30s"    # "no such profile" results
//
// Authentication, Tailscale serving, and logging:
//
//	auth:
//	  jwt_secret: "${PGW_JWT_SECRET}"
//	tailscale:
//	  enabled: false
//	  hostname: "profile-gateway"
//	  https: true
//	  funnel: false
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax ("30s", "5m", "1h").
package config
