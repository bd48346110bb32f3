package registry

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/quaylabs/syncgate/internal/infrastructure/logging"
)

// DocMember is the documentation for one fully-qualified action name.
type DocMember struct {
	Summary string            `yaml:"summary" json:"Summary,omitempty"`
	Returns string            `yaml:"returns" json:"Returns,omitempty"`
	Params  map[string]string `yaml:"params" json:"Params,omitempty"`
}

// docFile is the on-disk shape of the documentation index.
type docFile struct {
	Members map[string]DocMember `yaml:"members"`
}

// DocIndex resolves fully-qualified action names ("Group.Action") to
// documentation supplied as a YAML side file.
//
// The index is loaded at most once, on first lookup. A missing file means
// no documentation; a parse failure is logged once and the index is
// treated as absent thereafter. Neither is ever fatal to request handling.
type DocIndex struct {
	path   string
	logger *logging.Logger

	once    sync.Once
	members map[string]DocMember
}

// NewDocIndex creates a documentation index backed by the given file path.
// An empty path yields a permanently empty index.
func NewDocIndex(path string, logger *logging.Logger) *DocIndex {
	return &DocIndex{path: path, logger: logger}
}

// Lookup returns the documentation for a fully-qualified action name.
// Absence of a match is not an error; the second return is false.
func (d *DocIndex) Lookup(fullName string) (DocMember, bool) {
	d.once.Do(d.load)
	m, ok := d.members[fullName]
	return m, ok
}

func (d *DocIndex) load() {
	if d.path == "" {
		return
	}

	data, err := os.ReadFile(d.path)
	if err != nil {
		if !os.IsNotExist(err) {
			d.logger.Warn("documentation index unreadable", "path", d.path, "error", err)
		}
		return
	}

	var file docFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		d.logger.Warn("documentation index parse failed, continuing without documentation",
			"path", d.path, "error", err)
		return
	}

	d.members = file.Members
	d.logger.Debug("documentation index loaded", "path", d.path, "members", len(d.members))
}

// WriteDocIndex serialises a documentation index to YAML. It exists so host
// applications can generate the side file from their own sources.
func WriteDocIndex(path string, members map[string]DocMember) error {
	data, err := yaml.Marshal(docFile{Members: members})
	if err != nil {
		return fmt.Errorf("marshalling documentation index: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing documentation index: %w", err)
	}
	return nil
}
