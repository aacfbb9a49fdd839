package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Anchor Configuration

[listen]
# Local websocket endpoint for the page companion
address = "127.0.0.1:8947"
path = "/feed"

[storage]
# SQLite database location (empty = ~/.config/anchor/anchor.db)
path = ""

[scrape]
# Labels to anchor on, in priority order
labels = ["Realized P&L"]
# Poll interval for the detection backstop
poll_every = "2s"
# Settle window after a page mutation burst
debounce = "250ms"
# Minimum realized-total change that counts as a trade
noise_floor = 0.5

[logging]
# Log level: trace, debug, info, warn, error
level = "info"

[timezone]
# Day-boundary timezone, e.g. "America/New_York" ("Local" = host time)
name = "Local"
`

func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	return fmt.Errorf("config file not found, created template at %s", path)
}
