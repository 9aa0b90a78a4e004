package gamedata

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/roomfurni/internal/game/furni"
)

// yamlFurniFile is the top-level YAML structure for furni data files.
type yamlFurniFile struct {
	Furni []yamlFurni `yaml:"furni"`
}

// yamlFurni is the YAML representation of a furni type.
type yamlFurni struct {
	Type       string            `yaml:"type"`
	ClassID    int               `yaml:"class_id"`
	Identifier string            `yaml:"identifier"`
	Name       string            `yaml:"name"`
	Variants   map[string]string `yaml:"variants"`
}

// LoadFromFile reads and validates a furni data YAML file.
//
// Precondition: path must point to a valid YAML furni data file.
// Postcondition: Returns a populated Manager or a non-nil error.
func LoadFromFile(path string) (*Manager, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading furni data %s: %w", path, err)
	}
	return LoadFromBytes(data)
}

// LoadFromBytes parses and validates furni data from YAML bytes.
//
// Precondition: data must be valid YAML conforming to the furni data schema.
// Postcondition: Returns a populated Manager or a non-nil error.
func LoadFromBytes(data []byte) (*Manager, error) {
	var file yamlFurniFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing furni data YAML: %w", err)
	}

	infos := make([]*FurniInfo, 0, len(file.Furni))
	for i, yf := range file.Furni {
		t, err := furni.ParseItemType(yf.Type)
		if err != nil {
			return nil, fmt.Errorf("furni entry %d: %w", i, err)
		}
		fi := &FurniInfo{
			Type:       t,
			ClassID:    yf.ClassID,
			Identifier: yf.Identifier,
			Name:       yf.Name,
			Variants:   yf.Variants,
		}
		if err := fi.Validate(); err != nil {
			return nil, fmt.Errorf("furni entry %d: %w", i, err)
		}
		infos = append(infos, fi)
	}
	return NewManager(infos)
}
