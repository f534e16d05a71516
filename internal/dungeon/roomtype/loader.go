package roomtype

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// yamlRegistryFile is the top-level YAML structure for room type catalogs.
type yamlRegistryFile struct {
	RoomTypes []yamlRoomType `yaml:"room_types"`
}

// yamlRoomType is the YAML representation of a room type.
type yamlRoomType struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	None        bool   `yaml:"none"`
	Entrance    bool   `yaml:"entrance"`
	BossRoom    bool   `yaml:"boss_room"`
	Corridor    bool   `yaml:"corridor"`
	Displayable bool   `yaml:"displayable"`
}

// LoadFromFile reads and validates a room type catalog YAML file.
//
// Precondition: path must point to a readable YAML file.
// Postcondition: Returns a validated Registry or a non-nil error.
func LoadFromFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading room type file %s: %w", path, err)
	}
	return LoadFromBytes(data)
}

// LoadFromBytes parses and validates a room type catalog from YAML bytes.
//
// Postcondition: Returns a validated Registry or a non-nil error.
func LoadFromBytes(data []byte) (*Registry, error) {
	var file yamlRegistryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing room type YAML: %w", err)
	}

	types := make([]*Descriptor, 0, len(file.RoomTypes))
	for _, yt := range file.RoomTypes {
		name := yt.Name
		if name == "" {
			name = yt.ID
		}
		types = append(types, &Descriptor{
			ID:          yt.ID,
			Name:        name,
			IsNone:      yt.None,
			IsEntrance:  yt.Entrance,
			IsBossRoom:  yt.BossRoom,
			IsCorridor:  yt.Corridor,
			Displayable: yt.Displayable,
		})
	}

	reg, err := NewRegistry(types)
	if err != nil {
		return nil, fmt.Errorf("validating room types: %w", err)
	}
	return reg, nil
}
