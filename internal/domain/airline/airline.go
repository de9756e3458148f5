// Package airline is the reference domain: a mock airline customer-service
// backend with flights, reservations, and a policy that forbids some of the
// things customers ask for.
package airline

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/spachava753/convobench/internal/config"
	"github.com/spachava753/convobench/internal/domain"
	"github.com/spachava753/convobench/internal/models"
)

//go:embed data
var dataFS embed.FS

// Airline implements domain.Provider over the embedded seed data.
type Airline struct {
	name   string
	seed   []byte
	tasks  []models.Task
	tools  []domain.Tool
	policy string
}

// New loads the embedded airline domain.
func New() (*Airline, error) {
	fsys, err := fs.Sub(dataFS, "data")
	if err != nil {
		return nil, err
	}
	return load(fsys)
}

// NewFromDir loads an airline-shaped domain from a directory holding
// domain.toml and the data files it names. Date-shifted or edited variants
// of the embedded data can be run this way without recompiling.
func NewFromDir(dir string) (*Airline, error) {
	return load(os.DirFS(dir))
}

func load(fsys fs.FS) (*Airline, error) {
	manifest, err := config.LoadDomainManifest(fsys)
	if err != nil {
		return nil, fmt.Errorf("loading airline manifest: %w", err)
	}

	currentTime, err := time.Parse("2006-01-02T15:04:05", manifest.CurrentTime)
	if err != nil {
		return nil, fmt.Errorf("parsing current_time %q: %w", manifest.CurrentTime, err)
	}

	seed, err := fs.ReadFile(fsys, manifest.DBFile)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", manifest.DBFile, err)
	}
	// Fail at load time rather than on the first trial.
	var db DB
	if err := json.Unmarshal(seed, &db); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", manifest.DBFile, err)
	}

	taskData, err := fs.ReadFile(fsys, manifest.TasksFile)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", manifest.TasksFile, err)
	}
	var tasks []models.Task
	if err := json.Unmarshal(taskData, &tasks); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", manifest.TasksFile, err)
	}

	policy, err := fs.ReadFile(fsys, manifest.PolicyFile)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", manifest.PolicyFile, err)
	}

	return &Airline{
		name:   manifest.Name,
		seed:   seed,
		tasks:  tasks,
		tools:  toolset(currentTime, manifest.ToolDefaults),
		policy: string(policy),
	}, nil
}

func (a *Airline) Name() string { return a.name }

// NewState unmarshals a fresh DB from the seed bytes. Every trial gets its
// own deep copy; nothing is shared.
func (a *Airline) NewState(_ context.Context) (domain.State, error) {
	var db DB
	if err := json.Unmarshal(a.seed, &db); err != nil {
		return nil, fmt.Errorf("seeding airline state: %w", err)
	}
	return &db, nil
}

func (a *Airline) Tasks() []models.Task { return a.tasks }

func (a *Airline) Tools() []domain.Tool { return a.tools }

func (a *Airline) Policy() string { return a.policy }
