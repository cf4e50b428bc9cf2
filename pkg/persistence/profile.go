package persistence

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// ProfileVersion is the current version of the profile file format.
const ProfileVersion = 1

// Profile contains everything needed to reconnect to one instrument.
type Profile struct {
	// Version is the profile file format version.
	Version int `json:"version"`

	// SavedAt is when the profile was last saved.
	SavedAt time.Time `json:"saved_at"`

	// Identity as reported by the instrument.
	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`
	Serial       string `json:"serial"`

	// Address is the transport address ("host:port" or
	// "host:port/gpibN" for a GPIB bridge).
	Address string `json:"address"`

	// DefaultsFile is where the generated defaults for this instrument
	// type live. Empty if defaults were never generated.
	DefaultsFile string `json:"defaults_file,omitempty"`

	// Protocol format flags observed for this instrument.
	HeaderEcho bool `json:"header_echo,omitempty"`
	Verbose    bool `json:"verbose,omitempty"`
}

// ProfileStore manages persistence of instrument profiles in a
// directory, one JSON file per instrument.
type ProfileStore struct {
	mu  sync.Mutex
	dir string
}

// NewProfileStore creates a profile store rooted at dir. The directory
// is created on first save.
func NewProfileStore(dir string) *ProfileStore {
	return &ProfileStore{dir: dir}
}

// Save persists a profile to disk, keyed by model and serial.
func (s *ProfileStore) Save(p *Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return err
	}

	p.Version = ProfileVersion
	if p.SavedAt.IsZero() {
		p.SavedAt = time.Now()
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.path(p.Model, p.Serial), data, 0644)
}

// Load reads the profile for one instrument from disk.
// Returns nil, nil if no profile exists.
func (s *ProfileStore) Load(model, serial string) (*Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(model, serial))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	p := &Profile{}
	if err := json.Unmarshal(data, p); err != nil {
		return nil, err
	}

	return p, nil
}

// List returns every stored profile.
func (s *ProfileStore) List() ([]*Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var profiles []*Profile
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		p := &Profile{}
		if err := json.Unmarshal(data, p); err != nil {
			// Not a profile; other files may share the directory.
			continue
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

// Clear removes the profile for one instrument.
func (s *ProfileStore) Clear(model, serial string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path(model, serial))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// path maps an instrument identity to its profile file.
func (s *ProfileStore) path(model, serial string) string {
	return filepath.Join(s.dir, sanitize(model)+"-"+sanitize(serial)+".json")
}

// sanitize makes an identity component safe for use in a file name.
func sanitize(part string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '_'
		}
	}, part)
}
