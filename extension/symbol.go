package extension

// Symbol is one exported entry point: a name (or numeric id, when the image
// exports by id) bound to a concrete address.
type Symbol struct {
	Name string
	ID   uint32
	Addr uint64
}

// SymTable is a symbol table searched linearly, first match wins.
type SymTable []Symbol

func (t SymTable) Find(name string) (uint64, bool) {
	for i := range t {
		if t[i].Name == name {
			return t[i].Addr, true
		}
	}
	return 0, false
}

func (t SymTable) FindID(id uint32) (uint64, bool) {
	for i := range t {
		if t[i].ID == id {
			return t[i].Addr, true
		}
	}
	return 0, false
}
