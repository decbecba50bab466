package rowstore

// Identified is implemented by row values. Types satisfy it by embedding
// Identity; the ID is owned by the table and assigned on insert and load.
type Identified interface {
	// ID returns the row ID and whether one was assigned.
	ID() (int64, bool)
	// IsPersisted reports whether the value was inserted or loaded.
	IsPersisted() bool

	assignID(id int64)
}

// Identity carries the row ID of a value. Embed it in row types. It has no
// persisted fields: the ID of a stored row is its file name.
type Identity struct {
	id int64
}

// ID implements Identified.
func (i *Identity) ID() (int64, bool) {
	return i.id, i.id > 0
}

// IsPersisted implements Identified.
func (i *Identity) IsPersisted() bool {
	return i.id > 0
}

func (i *Identity) assignID(id int64) {
	i.id = id
}
