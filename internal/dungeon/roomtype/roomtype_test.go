package roomtype

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestDefault_Flags(t *testing.T) {
	reg := Default()
	assert.Equal(t, 10, reg.Len())

	none, ok := reg.None()
	require.True(t, ok)
	assert.Equal(t, "none", none.ID)

	entrance, ok := reg.Entrance()
	require.True(t, ok)
	assert.Equal(t, "entrance", entrance.ID)

	boss, ok := reg.FindByFlag(func(d *Descriptor) bool { return d.IsBossRoom })
	require.True(t, ok)
	assert.Equal(t, "boss_room", boss.ID)
}

func TestFindByFlag_FirstMatchInOrder(t *testing.T) {
	reg := Default()
	d, ok := reg.FindByFlag(func(d *Descriptor) bool { return d.IsCorridor })
	require.True(t, ok)
	assert.Equal(t, "corridor", d.ID)

	_, ok = reg.FindByFlag(func(d *Descriptor) bool { return false })
	assert.False(t, ok)
}

func TestDisplayableEntries(t *testing.T) {
	entries := Default().DisplayableEntries()
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []string{"none", "corridor", "small_room", "medium_room", "large_room", "chest_room", "boss_room"}, ids)
	assert.Equal(t, "Boss Room", entries[len(entries)-1].Name)
}

func TestNewRegistry_Errors(t *testing.T) {
	_, err := NewRegistry(nil)
	assert.Error(t, err)

	_, err = NewRegistry([]*Descriptor{{ID: ""}})
	assert.Error(t, err)

	_, err = NewRegistry([]*Descriptor{{ID: "a"}, {ID: "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")

	_, err = NewRegistry([]*Descriptor{nil})
	assert.Error(t, err)
}

func TestAll_ReturnsCopy(t *testing.T) {
	reg := Default()
	all := reg.All()
	all[0] = nil
	d, ok := reg.Lookup("none")
	require.True(t, ok)
	assert.Same(t, d, reg.All()[0])
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "types.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
room_types:
  - id: none
    none: true
  - id: hall
    name: Hall
    corridor: true
    displayable: true
`), 0o644))

	reg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Len())

	none, ok := reg.Lookup("none")
	require.True(t, ok)
	assert.Equal(t, "none", none.Name, "missing name falls back to id")

	hall, ok := reg.Lookup("hall")
	require.True(t, ok)
	assert.True(t, hall.IsCorridor)
	assert.True(t, hall.Displayable)
}

func TestLoadFromFile_Missing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadFromBytes_Invalid(t *testing.T) {
	_, err := LoadFromBytes([]byte("room_types: [unclosed"))
	assert.Error(t, err)

	_, err = LoadFromBytes([]byte("room_types: []"))
	assert.Error(t, err)
}

func TestLoadContentCatalog(t *testing.T) {
	reg, err := LoadFromFile(filepath.Join("..", "..", "..", "content", "room_types.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().All(), reg.All(), "built-in catalog drifted from content/room_types.yaml")
}

func TestPropertyDisplayableEntriesPreserveOrder(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 12).Draw(t, "n")
		types := make([]*Descriptor, n)
		for i := range types {
			types[i] = &Descriptor{
				ID:          rapid.StringMatching(`t[0-9]{3}`).Draw(t, "id") + "_" + string(rune('a'+i)),
				Displayable: rapid.Bool().Draw(t, "displayable"),
			}
		}
		reg, err := NewRegistry(types)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		entries := reg.DisplayableEntries()
		j := 0
		for _, d := range types {
			if !d.Displayable {
				continue
			}
			if j >= len(entries) || entries[j].ID != d.ID {
				t.Fatalf("entry %d: expected %q", j, d.ID)
			}
			j++
		}
		if j != len(entries) {
			t.Fatalf("expected %d entries, got %d", j, len(entries))
		}
	})
}
