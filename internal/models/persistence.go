package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultSlot is the slot every mutation is written through to.
const DefaultSlot = "game_state"

const (
	snapshotExt = ".json"
	// Snapshots written by earlier builds. They are still loaded and listed.
	legacyExt = ".yaml"
)

var (
	// ErrCorruptSnapshot means a snapshot could not be parsed or lacks the
	// character and current_location keys.
	ErrCorruptSnapshot = errors.New("corrupt snapshot")
	// ErrSnapshotNotFound means no snapshot exists under the slot name.
	ErrSnapshotNotFound = errors.New("snapshot not found")
	// ErrInvalidSlotName means the slot name cannot be used as a file name.
	ErrInvalidSlotName = errors.New("invalid save slot name")
)

var slotPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// SaveSummary describes a save slot for display.
type SaveSummary struct {
	Slot     string    `json:"slot"`
	Name     string    `json:"name"`
	Class    string    `json:"class"`
	Level    int       `json:"level"`
	HP       int       `json:"hp"`
	MaxHP    int       `json:"max_hp"`
	Location string    `json:"location"`
	ModTime  time.Time `json:"mod_time"`
}

// Store keeps named snapshots as JSON documents in a directory.
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create save dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the directory backing the store.
func (s *Store) Dir() string {
	return s.dir
}

// SlotName turns a display name into a slot name. Spaces become underscores.
func SlotName(name string) (string, error) {
	slot := strings.ReplaceAll(strings.TrimSpace(name), " ", "_")
	slot = strings.TrimSuffix(strings.TrimSuffix(slot, snapshotExt), legacyExt)
	if !slotPattern.MatchString(slot) {
		return "", fmt.Errorf("%w: %q", ErrInvalidSlotName, name)
	}
	return slot, nil
}

func (s *Store) path(slot string) string {
	return filepath.Join(s.dir, slot+snapshotExt)
}

func (s *Store) legacyPath(slot string) string {
	return filepath.Join(s.dir, slot+legacyExt)
}

// encodeSnapshot renders state as indented JSON so every string is written
// quoted. yaml.v3 block scalars do not read back prose that starts with a
// blank line or leading spaces.
func encodeSnapshot(state *GameState) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(state); err != nil {
		return nil, err
	}
	return escapeForYAML(buf.Bytes()), nil
}

// escapeForYAML escapes the runes encoding/json leaves raw that a YAML
// reader rejects or reads as a line break. Outside strings a JSON document
// is plain ASCII, so only string contents change.
func escapeForYAML(data []byte) []byte {
	var out bytes.Buffer
	for _, r := range string(data) {
		if r == 0x7f || (r >= 0x80 && r <= 0x9f) || r == 0xfffe || r == 0xffff {
			fmt.Fprintf(&out, `\u%04x`, r)
			continue
		}
		out.WriteRune(r)
	}
	return out.Bytes()
}

// Save writes the full state under name, replacing any previous snapshot.
func (s *Store) Save(state *GameState, name string) error {
	slot, err := SlotName(name)
	if err != nil {
		return err
	}

	data, err := encodeSnapshot(state)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+slot+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(slot)); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	if err := os.Remove(s.legacyPath(slot)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove legacy snapshot: %w", err)
	}
	return nil
}

// Load reads and validates the snapshot stored under name.
func (s *Store) Load(name string) (*GameState, error) {
	slot, err := SlotName(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path(slot))
	if errors.Is(err, fs.ErrNotExist) {
		data, err = os.ReadFile(s.legacyPath(slot))
	}
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, slot)
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	state, err := DecodeSnapshot(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", slot, err)
	}
	return state, nil
}

// DecodeSnapshot parses a snapshot document. It reads through the YAML
// decoder, which takes both current JSON snapshots and legacy YAML ones.
func DecodeSnapshot(data []byte) (*GameState, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	_, hasCharacter := raw["character"]
	_, hasLocation := raw["current_location"]
	if !hasCharacter || !hasLocation {
		return nil, fmt.Errorf("%w: missing character or current_location", ErrCorruptSnapshot)
	}

	var state GameState
	if err := yaml.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	state.Normalize()
	return &state, nil
}

// List summarizes every loadable snapshot that holds a character. Files that
// do not parse are assumed to be unrelated and skipped.
func (s *Store) List() ([]SaveSummary, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []SaveSummary{}, nil
	}
	if err != nil {
		return nil, err
	}

	current := map[string]bool{}
	for _, entry := range entries {
		if name := entry.Name(); strings.HasSuffix(name, snapshotExt) {
			current[strings.TrimSuffix(name, snapshotExt)] = true
		}
	}

	saves := []SaveSummary{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		ext := filepath.Ext(name)
		slot := strings.TrimSuffix(name, ext)
		if ext != snapshotExt && (ext != legacyExt || current[slot]) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			continue
		}
		state, err := DecodeSnapshot(data)
		if err != nil || state.Character == nil {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}

		c := state.Character
		saves = append(saves, SaveSummary{
			Slot:     slot,
			Name:     c.Name,
			Class:    c.Class,
			Level:    c.Level,
			HP:       c.HP,
			MaxHP:    c.MaxHP,
			Location: state.CurrentLocationName(),
			ModTime:  info.ModTime(),
		})
	}

	sort.SliceStable(saves, func(i, j int) bool {
		if saves[i].ModTime.Equal(saves[j].ModTime) {
			return saves[i].Slot < saves[j].Slot
		}
		return saves[i].ModTime.After(saves[j].ModTime)
	})
	return saves, nil
}
