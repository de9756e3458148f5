package config

import (
	"fmt"
	"io/fs"

	"github.com/BurntSushi/toml"

	"github.com/spachava753/convobench/internal/models"
)

// DefaultDomainManifest returns a DomainManifest with default file names.
func DefaultDomainManifest() models.DomainManifest {
	return models.DomainManifest{
		PolicyFile: "policy.md",
		DBFile:     "db.json",
		TasksFile:  "tasks.json",
	}
}

// LoadDomainManifest loads and parses a domain.toml file from the given
// filesystem.
func LoadDomainManifest(fsys fs.FS) (models.DomainManifest, error) {
	m := DefaultDomainManifest()

	data, err := fs.ReadFile(fsys, "domain.toml")
	if err != nil {
		return m, fmt.Errorf("reading domain.toml: %w", err)
	}

	if _, err := toml.Decode(string(data), &m); err != nil {
		return m, fmt.Errorf("parsing domain.toml: %w", err)
	}

	if m.Name == "" {
		return m, fmt.Errorf("domain.toml: 'name' is required")
	}
	if m.CurrentTime == "" {
		return m, fmt.Errorf("domain.toml: 'current_time' is required")
	}

	return m, nil
}
