package roomtype

// defaultCatalog mirrors content/room_types.yaml so tools and tests have a
// catalog without touching the filesystem.
const defaultCatalog = `
room_types:
  - {id: none, name: None, none: true, displayable: true}
  - {id: corridor, name: Corridor, corridor: true, displayable: true}
  - {id: corridor_ns, name: Corridor NS, corridor: true}
  - {id: corridor_ew, name: Corridor EW, corridor: true}
  - {id: entrance, name: Entrance, entrance: true}
  - {id: small_room, name: Small Room, displayable: true}
  - {id: medium_room, name: Medium Room, displayable: true}
  - {id: large_room, name: Large Room, displayable: true}
  - {id: chest_room, name: Chest Room, displayable: true}
  - {id: boss_room, name: Boss Room, boss_room: true, displayable: true}
`

// Default returns the built-in room type catalog.
//
// Postcondition: Returns a non-nil Registry; panics only if the embedded catalog is malformed.
func Default() *Registry {
	reg, err := LoadFromBytes([]byte(defaultCatalog))
	if err != nil {
		panic("roomtype: invalid built-in catalog: " + err.Error())
	}
	return reg
}
