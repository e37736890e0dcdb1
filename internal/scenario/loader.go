// Package scenario loads dungeon definitions and turns them into initial
// state snapshots. Scenario files are authoring-time input only; once a
// session starts, the snapshot is canonical and the file is never consulted
// again.
package scenario

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"dungeond/internal/common/fsutil"
	"dungeond/pkg/types"
)

// Actor is one entity entry in a scenario file.
type Actor struct {
	ID       uint64 `yaml:"id"`
	Name     string `yaml:"name"`
	X        int    `yaml:"x"`
	Y        int    `yaml:"y"`
	HP       int    `yaml:"hp"`
	Strength int    `yaml:"strength"`
	// Provider kind in display form, e.g. "interactive/network" or "ai/wait".
	Provider string `yaml:"provider"`
}

// Scenario describes a dungeon and its starting actors.
type Scenario struct {
	Name   string  `yaml:"name"`
	Width  int     `yaml:"width"`
	Height int     `yaml:"height"`
	Seed   uint64  `yaml:"seed"`
	Actors []Actor `yaml:"actors"`
}

// Load reads and validates a single scenario file.
func Load(path string) (Scenario, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(b, &sc); err != nil {
		return Scenario{}, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if sc.Name == "" {
		sc.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if err := sc.validate(); err != nil {
		return Scenario{}, fmt.Errorf("scenario %s: %w", path, err)
	}
	return sc, nil
}

// LoadDir scans a directory for *.yaml/*.yml scenario files, sorted by name.
func LoadDir(dir string) ([]Scenario, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var out []Scenario
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		sc, err := Load(filepath.Join(abs, e.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (sc Scenario) validate() error {
	if sc.Width <= 0 || sc.Height <= 0 {
		return fmt.Errorf("invalid dimensions %dx%d", sc.Width, sc.Height)
	}
	if len(sc.Actors) == 0 {
		return fmt.Errorf("no actors")
	}
	seen := map[uint64]bool{}
	tiles := map[types.Position]bool{}
	for _, a := range sc.Actors {
		if a.ID == 0 {
			return fmt.Errorf("actor %q: id must be nonzero", a.Name)
		}
		if seen[a.ID] {
			return fmt.Errorf("duplicate actor id %d", a.ID)
		}
		seen[a.ID] = true
		p := types.Position{X: a.X, Y: a.Y}
		if a.X < 0 || a.X >= sc.Width || a.Y < 0 || a.Y >= sc.Height {
			return fmt.Errorf("actor %d out of bounds at (%d,%d)", a.ID, a.X, a.Y)
		}
		if tiles[p] {
			return fmt.Errorf("actor %d overlaps another actor at (%d,%d)", a.ID, a.X, a.Y)
		}
		tiles[p] = true
		if a.HP <= 0 {
			return fmt.Errorf("actor %d: hp must be positive", a.ID)
		}
		var kind types.ProviderKind
		if err := kind.UnmarshalText([]byte(a.Provider)); err != nil {
			return fmt.Errorf("actor %d: %w", a.ID, err)
		}
	}
	return nil
}

// Snapshot builds the initial state snapshot for a session.
func (sc Scenario) Snapshot(sessionID string) (types.StateSnapshot, error) {
	if err := sc.validate(); err != nil {
		return types.StateSnapshot{}, err
	}
	snap := types.StateSnapshot{
		SessionID: sessionID,
		Width:     sc.Width,
		Height:    sc.Height,
		RNG:       sc.Seed,
	}
	for _, a := range sc.Actors {
		var kind types.ProviderKind
		if err := kind.UnmarshalText([]byte(a.Provider)); err != nil {
			return types.StateSnapshot{}, err
		}
		strength := a.Strength
		if strength <= 0 {
			strength = 1
		}
		snap.Actors = append(snap.Actors, types.ActorState{
			ID:       types.EntityID(a.ID),
			Name:     a.Name,
			Pos:      types.Position{X: a.X, Y: a.Y},
			HP:       a.HP,
			MaxHP:    a.HP,
			Strength: strength,
			Provider: kind,
		})
	}
	snap.Normalize()
	return snap, nil
}

// Default returns the built-in two-actor scenario used when no scenario dir
// is configured: one externally driven hero and one wait-AI creature.
func Default() Scenario {
	return Scenario{
		Name:   "default",
		Width:  8,
		Height: 8,
		Seed:   1,
		Actors: []Actor{
			{ID: 1, Name: "hero", X: 1, Y: 1, HP: 20, Strength: 6, Provider: "interactive/network"},
			{ID: 2, Name: "gnawer", X: 6, Y: 6, HP: 12, Strength: 4, Provider: "ai/wait"},
		},
	}
}
