package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sevigo/eris/internal/core"
)

var (
	ErrConfigNotFound = errors.New("config file not found")
	ErrConfigParsing  = errors.New("config parsing failed")
)

// LoadCommands loads and parses the commands file. A missing file yields the
// default command set together with ErrConfigNotFound.
func LoadCommands(path string) (*core.CommandSet, error) {
	if path == "" {
		return core.DefaultCommandSet(), ErrConfigNotFound
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return core.DefaultCommandSet(), ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	commands := core.DefaultCommandSet()
	if err := yaml.Unmarshal(data, commands); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigParsing, err)
	}

	seen := make(map[string]bool, len(commands.Commands))
	for _, c := range commands.Commands {
		if c.Name == "" {
			return nil, fmt.Errorf("%w: command without a name", ErrConfigParsing)
		}
		if seen[c.Name] {
			return nil, fmt.Errorf("%w: duplicate command %q", ErrConfigParsing, c.Name)
		}
		seen[c.Name] = true
	}
	return commands, nil
}
