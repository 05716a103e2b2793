// Package config handles configuration loading for coven-phrasebot.
//
// # Overview
//
// Configuration is loaded from YAML files, or TOML files when the path ends in
// ".toml", with environment variable expansion. Load applies defaults and
// validates the result.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from the --config flag
//  2. Path from COVEN_PHRASEBOT_CONFIG environment variable
//  3. $XDG_CONFIG_HOME/coven/phrasebot.yaml
//  4. ~/.config/coven/phrasebot.yaml
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	matrix:
//	  password: "${PHRASEBOT_MATRIX_PASSWORD}"
//
// Unset variables expand to the empty string.
//
// # Configuration Sections
//
//	matrix:
//	  homeserver: "https://matrix.org"
//	  username: "phrasebot"
//	  password: "${PHRASEBOT_MATRIX_PASSWORD}"
//	  recovery_key: ""          # enables E2EE when set
//	  allowed_rooms: []         # empty = all joined rooms
//	  auto_join: true           # accept room invites
//
//	bot:
//	  command_prefix: "/"
//	  send_timeout: "30s"
//
//	storage:
//	  driver: "sqlite"          # sqlite | redis | memory
//	  path: "~/.local/share/coven/phrasebot.db"
//	  redis:
//	    addr: "localhost:6379"
//	    password: ""
//	    db: 0
//	    key_prefix: "phrasebot:"
//
//	logging:
//	  level: "info"             # debug | info | warn | error
//	  format: "text"            # text | json
//
//	metrics:
//	  enabled: false
//	  addr: "127.0.0.1:9090"
//	  path: "/metrics"
//
// # Validation
//
// Validate checks the sections every mode needs; ValidateMatrix additionally
// checks the Matrix credentials required by the bridge.
package config
