// internal/storage/memory/export.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gunline/firecontrol/pkg/core"
)

// ExportVersion is bumped whenever SessionExport changes shape.
const ExportVersion = 1

// SessionExport is the root JSON document.
type SessionExport struct {
	Version  int                 `json:"version"`
	Session  core.Session        `json:"session"`
	Weapons  []WeaponStats       `json:"weapons"`
	Shots    []core.ShotEvent    `json:"shots"`
	Hits     []core.HitEvent     `json:"hits"`
	Kills    []core.KillEvent    `json:"kills"`
	DryFires []core.DryFireEvent `json:"dryFires"`
	Reloads  []core.ReloadEvent  `json:"reloads"`
}

// WeaponStats aggregates one weapon name over a session.
type WeaponStats struct {
	Weapon    string  `json:"weapon"`
	Shots     int     `json:"shots"`
	ShotsHit  int     `json:"shotsHit"`
	Accuracy  float64 `json:"accuracy"`
	Damage    float64 `json:"damage"`
	Headshots int     `json:"headshots"`
	Kills     int     `json:"kills"`
	DryFires  int     `json:"dryFires"`
	Reloads   int     `json:"reloads"`
}

func (b *Backend) weaponStats() []WeaponStats {
	byName := map[string]*WeaponStats{}
	get := func(name string) *WeaponStats {
		s, ok := byName[name]
		if !ok {
			s = &WeaponStats{Weapon: name}
			byName[name] = s
		}
		return s
	}

	for _, e := range b.shots {
		s := get(e.WeaponName)
		s.Shots++
		if e.Hit {
			s.ShotsHit++
		}
	}
	for _, e := range b.hits {
		s := get(e.WeaponName)
		s.Damage += e.Applied
		if e.Zone == core.ZoneHead.String() {
			s.Headshots++
		}
	}
	for _, e := range b.kills {
		get(e.WeaponName).Kills++
	}
	for _, e := range b.dryFires {
		get(e.WeaponName).DryFires++
	}
	for _, e := range b.reloads {
		get(e.WeaponName).Reloads++
	}

	out := make([]WeaponStats, 0, len(byName))
	for _, s := range byName {
		if s.Shots > 0 {
			s.Accuracy = float64(s.ShotsHit) / float64(s.Shots)
		}
		out = append(out, *s)
	}
	slices.SortFunc(out, func(a, b WeaponStats) int { return strings.Compare(a.Weapon, b.Weapon) })
	return out
}

func (b *Backend) buildExport() SessionExport {
	return SessionExport{
		Version:  ExportVersion,
		Session:  *b.session,
		Weapons:  b.weaponStats(),
		Shots:    nonNil(b.shots),
		Hits:     nonNil(b.hits),
		Kills:    nonNil(b.kills),
		DryFires: nonNil(b.dryFires),
		Reloads:  nonNil(b.reloads),
	}
}

// exportFileName is <name>_<YYYYMMDD_HHMMSS>.json[.gz] with spaces and
// colons replaced.
func exportFileName(s core.Session, compress bool) string {
	name := strings.NewReplacer(" ", "_", ":", "_", "/", "_").Replace(s.Name)
	if name == "" {
		name = s.ID
	}
	ext := ".json"
	if compress {
		ext = ".json.gz"
	}
	return fmt.Sprintf("%s_%s%s", name, s.StartTime.UTC().Format("20060102_150405"), ext)
}

// exportJSON writes the session to OutputDir. Caller holds b.mu.
func (b *Backend) exportJSON() error {
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(b.cfg.OutputDir, exportFileName(*b.session, b.cfg.CompressOutput))

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	if err := writeExport(f, b.buildExport(), b.cfg.CompressOutput); err != nil {
		return err
	}
	b.lastExportPath = path
	return nil
}

func writeExport(w io.Writer, data SessionExport, compress bool) error {
	if !compress {
		return json.NewEncoder(w).Encode(data)
	}
	gz := gzip.NewWriter(w)
	if err := json.NewEncoder(gz).Encode(data); err != nil {
		_ = gz.Close()
		return err
	}
	return gz.Close()
}

// ReadExport loads a file written by EndSession.
func ReadExport(path string) (SessionExport, error) {
	var out SessionExport
	f, err := os.Open(path)
	if err != nil {
		return out, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return out, fmt.Errorf("open gzip: %w", err)
		}
		defer gz.Close()
		r = gz
	}
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return out, fmt.Errorf("decode export: %w", err)
	}
	return out, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
