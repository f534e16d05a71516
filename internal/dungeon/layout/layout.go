// Package layout reads and writes room graphs as YAML layout files.
package layout

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/roomgraph/internal/dungeon/graph"
	"github.com/cory-johannsen/roomgraph/internal/dungeon/roomtype"
)

// yamlLayoutFile is the top-level YAML structure for layout files.
type yamlLayoutFile struct {
	Graph yamlGraph `yaml:"graph"`
}

// yamlGraph is the YAML representation of a room graph.
type yamlGraph struct {
	ID    string     `yaml:"id"`
	Name  string     `yaml:"name"`
	Nodes []yamlNode `yaml:"nodes"`
}

// yamlNode is the YAML representation of a room node.
type yamlNode struct {
	ID       string   `yaml:"id"`
	Type     string   `yaml:"type"`
	Rect     yamlRect `yaml:"rect"`
	Parents  []string `yaml:"parents,omitempty"`
	Children []string `yaml:"children,omitempty"`
}

// yamlRect is the YAML representation of a node rectangle.
type yamlRect struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	W float64 `yaml:"w"`
	H float64 `yaml:"h"`
}

// Marshal encodes g as a YAML layout document.
//
// Postcondition: Returns YAML bytes or a non-nil error.
func Marshal(g *graph.Graph) ([]byte, error) {
	snap := g.Snapshot()
	file := yamlLayoutFile{Graph: yamlGraph{ID: snap.ID, Name: snap.Name}}
	for _, rec := range snap.Nodes {
		file.Graph.Nodes = append(file.Graph.Nodes, yamlNode{
			ID:       rec.ID,
			Type:     rec.TypeID,
			Rect:     yamlRect{X: rec.Rect.X, Y: rec.Rect.Y, W: rec.Rect.W, H: rec.Rect.H},
			Parents:  rec.ParentIDs,
			Children: rec.ChildIDs,
		})
	}
	data, err := yaml.Marshal(&file)
	if err != nil {
		return nil, fmt.Errorf("encoding layout %q: %w", snap.ID, err)
	}
	return data, nil
}

// Unmarshal decodes a YAML layout document into a graph.
//
// Precondition: registry must contain every type the layout names.
// Postcondition: Returns a graph satisfying its structural invariants, or a non-nil error.
func Unmarshal(data []byte, registry *roomtype.Registry, opts ...graph.Option) (*graph.Graph, error) {
	var file yamlLayoutFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing layout YAML: %w", err)
	}
	g, err := graph.FromSnapshot(convertYAMLGraph(file.Graph), registry, opts...)
	if err != nil {
		return nil, fmt.Errorf("validating layout: %w", err)
	}
	return g, nil
}

// SaveFile writes g to path as YAML.
func SaveFile(path string, g *graph.Graph) error {
	data, err := Marshal(g)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing layout file %s: %w", path, err)
	}
	return nil
}

// LoadFile reads a YAML layout file.
//
// Postcondition: Returns a validated graph or a non-nil error.
func LoadFile(path string, registry *roomtype.Registry, opts ...graph.Option) (*graph.Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading layout file %s: %w", path, err)
	}
	return Unmarshal(data, registry, opts...)
}

func convertYAMLGraph(yg yamlGraph) graph.Snapshot {
	snap := graph.Snapshot{ID: yg.ID, Name: yg.Name, Nodes: make([]graph.NodeRecord, 0, len(yg.Nodes))}
	for _, yn := range yg.Nodes {
		snap.Nodes = append(snap.Nodes, graph.NodeRecord{
			ID:        yn.ID,
			TypeID:    yn.Type,
			Rect:      graph.Rect{X: yn.Rect.X, Y: yn.Rect.Y, W: yn.Rect.W, H: yn.Rect.H},
			ParentIDs: yn.Parents,
			ChildIDs:  yn.Children,
		})
	}
	return snap
}
