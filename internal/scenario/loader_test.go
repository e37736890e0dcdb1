package scenario

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dungeond/pkg/types"
)

const crypt = `
name: crypt
width: 10
height: 6
seed: 42
actors:
  - id: 1
    name: hero
    x: 0
    y: 0
    hp: 30
    strength: 7
    provider: interactive/network
  - id: 2
    name: wraith
    x: 9
    y: 5
    hp: 15
    strength: 5
    provider: ai/utility
`

func writeScenario(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeScenario(t, t.TempDir(), "crypt.yaml", crypt)
	sc, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if sc.Name != "crypt" || sc.Width != 10 || sc.Height != 6 || sc.Seed != 42 {
		t.Fatalf("scenario=%+v", sc)
	}
	if len(sc.Actors) != 2 || sc.Actors[1].Provider != "ai/utility" {
		t.Fatalf("actors=%+v", sc.Actors)
	}
}

func TestLoadNameDefaultsToFilename(t *testing.T) {
	contents := strings.Replace(crypt, "name: crypt\n", "", 1)
	path := writeScenario(t, t.TempDir(), "catacombs.yaml", contents)
	sc, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if sc.Name != "catacombs" {
		t.Fatalf("name=%q", sc.Name)
	}
}

func TestValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Scenario)
		want   string
	}{
		{"zero width", func(sc *Scenario) { sc.Width = 0 }, "invalid dimensions"},
		{"no actors", func(sc *Scenario) { sc.Actors = nil }, "no actors"},
		{"zero id", func(sc *Scenario) { sc.Actors[0].ID = 0 }, "id must be nonzero"},
		{"duplicate id", func(sc *Scenario) { sc.Actors[1].ID = sc.Actors[0].ID }, "duplicate actor id"},
		{"out of bounds", func(sc *Scenario) { sc.Actors[0].X = 99 }, "out of bounds"},
		{"overlap", func(sc *Scenario) {
			sc.Actors[1].X = sc.Actors[0].X
			sc.Actors[1].Y = sc.Actors[0].Y
		}, "overlaps"},
		{"zero hp", func(sc *Scenario) { sc.Actors[0].HP = 0 }, "hp must be positive"},
		{"bad provider", func(sc *Scenario) { sc.Actors[0].Provider = "interactive/telepathy" }, "provider kind"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sc := Default()
			tc.mutate(&sc)
			_, err := sc.Snapshot("s")
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("got %v, want substring %q", err, tc.want)
			}
		})
	}
}

func TestSnapshot(t *testing.T) {
	sc := Default()
	// Authoring order should not matter; the snapshot is normalized.
	sc.Actors[0], sc.Actors[1] = sc.Actors[1], sc.Actors[0]
	snap, err := sc.Snapshot("s1")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.SessionID != "s1" || snap.Nonce != 0 || snap.RNG != sc.Seed {
		t.Fatalf("snap=%+v", snap)
	}
	if len(snap.Actors) != 2 || snap.Actors[0].ID != 1 || snap.Actors[1].ID != 2 {
		t.Fatalf("actors not sorted: %+v", snap.Actors)
	}
	hero := snap.Actors[0]
	if hero.MaxHP != hero.HP || hero.Provider != types.Interactive(types.InteractiveNetwork) {
		t.Fatalf("hero=%+v", hero)
	}
}

func TestSnapshotDefaultsStrength(t *testing.T) {
	sc := Default()
	sc.Actors[0].Strength = 0
	snap, err := sc.Snapshot("s1")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.Actors[0].Strength != 1 {
		t.Fatalf("strength=%d", snap.Actors[0].Strength)
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "b.yaml", crypt)
	writeScenario(t, dir, "a.yml", strings.Replace(crypt, "name: crypt", "name: atrium", 1))
	writeScenario(t, dir, "notes.txt", "not a scenario")

	scs, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("loaddir: %v", err)
	}
	if len(scs) != 2 {
		t.Fatalf("got %d scenarios", len(scs))
	}
	if scs[0].Name != "atrium" || scs[1].Name != "crypt" {
		t.Fatalf("order=%s,%s", scs[0].Name, scs[1].Name)
	}
}

func TestLoadDirPropagatesInvalid(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "bad.yaml", strings.Replace(crypt, "hp: 30", "hp: 0", 1))
	if _, err := LoadDir(dir); err == nil {
		t.Fatal("invalid scenario in dir should fail the load")
	}
}
