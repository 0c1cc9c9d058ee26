package source

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dshills/taphold/internal/input/key"
)

// scriptFile is the YAML form of a recorded sequence.
//
//	name: rolling home-row mods
//	events:
//	  - +r1c3@0
//	  - +r1c4@40
//	  - -r1c3@90
//	  - -r1c4@120
type scriptFile struct {
	Name   string   `yaml:"name"`
	Events []string `yaml:"events"`
}

// LoadScript reads a sequence file. Files ending in .yaml or .yml use the
// YAML form; anything else is the plain token notation.
func LoadScript(path string) (*key.Sequence, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	seq, err := ParseScript(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return seq, nil
}

// ParseScript parses sequence data; ext selects the format as in LoadScript.
func ParseScript(data []byte, ext string) (*key.Sequence, error) {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		var file scriptFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("decoding script: %w", err)
		}
		seq := key.NewSequence()
		for i, tok := range file.Events {
			ev, err := key.ParseEventToken(strings.TrimSpace(tok))
			if err != nil {
				return nil, fmt.Errorf("event %d: %w", i, err)
			}
			seq.Add(ev)
		}
		if err := seq.Validate(); err != nil {
			return nil, err
		}
		return seq, nil
	default:
		return key.ParseSequence(string(data))
	}
}
