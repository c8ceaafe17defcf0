// Package config handles configuration loading for lumen-gateway.
//
// # Overview
//
// Configuration is loaded from a YAML file with environment variable
// expansion. Every field has a sensible default; the gateway runs fine with
// no config file at all, which is the common case when a supervisor process
// spawns it.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from LUMEN_CONFIG environment variable
//  2. ~/.config/lumen/gateway.yaml (XDG_CONFIG_HOME respected)
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	engine:
//	  api_key: "${GEMINI_API_KEY}"
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	session:
//	  idle_timeout: "120s"
//	  sweep_interval: "30s"
//
// # Configuration Sections
//
// Engine backend:
//
//	engine:
//	  backend: "mock"      # mock, gemini, openai
//	  model: ""            # backend model name or catalog entry id
//	  api_key: ""          # required for gemini
//	  base_url: ""         # openai backend endpoint override
//
// Model catalog:
//
//	catalog:
//	  path: ""             # optional TOML catalog; embedded defaults otherwise
//
// Session lifecycle:
//
//	session:
//	  idle_timeout: "120s"
//	  sweep_interval: "30s"
//
// Limits:
//
//	limits:
//	  max_content_chars: 10000
//	  ready_probe_timeout: "5s"
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// All log output goes to stderr; stdout belongs to the wire protocol.
package config
