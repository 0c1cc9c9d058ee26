package keymap

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dshills/taphold/internal/input/key"
)

// ErrShape is returned when layer rows do not match the layout.
var ErrShape = errors.New("layer shape does not match layout")

// Format is a keymap file encoding.
type Format int

const (
	FormatYAML Format = iota
	FormatJSON
)

// FormatForPath picks the encoding from a file extension.
func FormatForPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// Loader loads keymaps from configuration files.
type Loader struct {
	// searchPaths are directories to search for keymap files.
	searchPaths []string
}

// NewLoader creates a new keymap loader.
func NewLoader() *Loader {
	return &Loader{
		searchPaths: make([]string, 0),
	}
}

// AddSearchPath adds a directory to search for keymap files.
func (l *Loader) AddSearchPath(path string) {
	l.searchPaths = append(l.searchPaths, path)
}

// LoadFile loads a keymap from a YAML or JSON file.
func (l *Loader) LoadFile(path string) (*Keymap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening keymap file: %w", err)
	}
	defer f.Close()

	km, err := l.LoadReader(f, FormatForPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return km, nil
}

// LoadReader loads a keymap from a reader.
func (l *Loader) LoadReader(r io.Reader, format Format) (*Keymap, error) {
	var file keymapFile
	switch format {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&file); err != nil {
			return nil, fmt.Errorf("decoding keymap: %w", err)
		}
	default:
		if err := yaml.NewDecoder(r).Decode(&file); err != nil {
			return nil, fmt.Errorf("decoding keymap: %w", err)
		}
	}
	return file.build()
}

// LoadAll loads all keymaps from the search paths. Files that fail to
// load are returned in the error alongside the keymaps that succeeded.
func (l *Loader) LoadAll() ([]*Keymap, error) {
	keymaps := make([]*Keymap, 0)
	var errs []error

	for _, dir := range l.searchPaths {
		for _, pattern := range []string{"*.yaml", "*.yml", "*.json"} {
			matches, err := filepath.Glob(filepath.Join(dir, pattern))
			if err != nil {
				continue
			}

			for _, path := range matches {
				km, err := l.LoadFile(path)
				if err != nil {
					errs = append(errs, err)
					continue
				}
				keymaps = append(keymaps, km)
			}
		}
	}

	return keymaps, errors.Join(errs...)
}

// LoadAndRegister loads all keymaps and registers them.
func (l *Loader) LoadAndRegister(registry *Registry) error {
	keymaps, loadErr := l.LoadAll()

	for _, km := range keymaps {
		if err := registry.Register(km); err != nil {
			return fmt.Errorf("registering keymap %q: %w", km.Name, err)
		}
	}

	return loadErr
}

// keymapFile is the on-disk structure for keymap files.
//
//	name: kyria
//	layout:
//	  - [0, 1, 2, 3, 4, 5, 10, 11, 12, 13, 14, 15]
//	layers:
//	  - name: base
//	    rows:
//	      - [XXX, q, w, f, p, g, j, l, u, y, ";", XXX]
type keymapFile struct {
	Name   string      `json:"name" yaml:"name"`
	Layout [][]int     `json:"layout" yaml:"layout"`
	Layers []layerFile `json:"layers" yaml:"layers"`
}

type layerFile struct {
	Name string     `json:"name" yaml:"name"`
	Rows [][]string `json:"rows" yaml:"rows"`
}

func (f *keymapFile) build() (*Keymap, error) {
	var positions []key.Position
	for r, cols := range f.Layout {
		for _, c := range cols {
			if c < 0 || c > 255 {
				return nil, fmt.Errorf("%w: row %d column %d", key.ErrInvalidPosition, r, c)
			}
			positions = append(positions, key.Pos(uint8(r), uint8(c)))
		}
	}

	km := NewKeymap(f.Name, positions)
	resolve := func(name string) (uint8, bool) {
		for i, lf := range f.Layers {
			if strings.EqualFold(lf.Name, name) {
				return uint8(i), true
			}
		}
		return 0, false
	}

	for li, lf := range f.Layers {
		if len(lf.Rows) != len(f.Layout) {
			return nil, fmt.Errorf("layer %q: %w: %d rows, layout has %d",
				lf.Name, ErrShape, len(lf.Rows), len(f.Layout))
		}
		layer := NewLayer(lf.Name)
		for r, row := range lf.Rows {
			cols := f.Layout[r]
			if len(row) != len(cols) {
				return nil, fmt.Errorf("layer %q row %d: %w: %d cells, layout has %d",
					lf.Name, r, ErrShape, len(row), len(cols))
			}
			for ci, spec := range row {
				b, err := ParseBinding(spec, resolve)
				if err != nil {
					return nil, fmt.Errorf("layer %d (%s) %s: %w", li, lf.Name, key.Pos(uint8(r), uint8(cols[ci])), err)
				}
				layer.Set(key.Pos(uint8(r), uint8(cols[ci])), b)
			}
		}
		km.AddLayer(layer)
	}

	if err := km.Validate(); err != nil {
		return nil, err
	}
	return km, nil
}

func (k *Keymap) toFile() keymapFile {
	file := keymapFile{Name: k.Name}

	rowIndex := make(map[uint8]int)
	var rowKeys []uint8
	for _, p := range k.Positions {
		if _, ok := rowIndex[p.Row]; !ok {
			rowIndex[p.Row] = len(rowKeys)
			rowKeys = append(rowKeys, p.Row)
			file.Layout = append(file.Layout, nil)
		}
		i := rowIndex[p.Row]
		file.Layout[i] = append(file.Layout[i], int(p.Col))
	}

	names := k.LayerNames()
	for _, l := range k.Layers {
		lf := layerFile{Name: l.Name, Rows: make([][]string, len(file.Layout))}
		for i, row := range rowKeys {
			for _, c := range file.Layout[i] {
				b, ok := l.Bindings[key.Pos(row, uint8(c))]
				if !ok {
					b = Single(Transparent())
				}
				lf.Rows[i] = append(lf.Rows[i], FormatBinding(b, names))
			}
		}
		file.Layers = append(file.Layers, lf)
	}
	return file
}

// MarshalJSON converts a keymap to JSON.
func (k *Keymap) MarshalJSON() ([]byte, error) {
	return json.MarshalIndent(k.toFile(), "", "  ")
}

// UnmarshalJSON parses a keymap from JSON.
func (k *Keymap) UnmarshalJSON(data []byte) error {
	var file keymapFile
	if err := json.Unmarshal(data, &file); err != nil {
		return err
	}
	built, err := file.build()
	if err != nil {
		return err
	}
	*k = *built
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (k *Keymap) MarshalYAML() (any, error) {
	return k.toFile(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (k *Keymap) UnmarshalYAML(node *yaml.Node) error {
	var file keymapFile
	if err := node.Decode(&file); err != nil {
		return err
	}
	built, err := file.build()
	if err != nil {
		return err
	}
	*k = *built
	return nil
}

// SaveFile saves a keymap, choosing the encoding from the extension.
func (k *Keymap) SaveFile(path string) error {
	var (
		data []byte
		err  error
	)
	switch FormatForPath(path) {
	case FormatJSON:
		data, err = k.MarshalJSON()
	default:
		data, err = yaml.Marshal(k)
	}
	if err != nil {
		return fmt.Errorf("marshaling keymap: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing keymap file: %w", err)
	}

	return nil
}
