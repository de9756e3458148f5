package models

// DomainManifest represents the parsed domain.toml shipped with a domain's
// data files. Date-shifted domain variants carry the same manifest with the
// anchor time and tool defaults uniformly offset.
type DomainManifest struct {
	Name string `toml:"name"`

	// CurrentTime is the simulated "now" of the domain, ISO 8601.
	CurrentTime string `toml:"current_time"`

	PolicyFile string `toml:"policy_file"`
	DBFile     string `toml:"db_file"`
	TasksFile  string `toml:"tasks_file"`

	// ToolDefaults are default argument values tools fall back to when a
	// call omits them (e.g. the default search date).
	ToolDefaults map[string]string `toml:"tool_defaults,omitempty"`
}
