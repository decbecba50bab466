// Package rowstore is a file-backed object store for small datasets.
//
// Values of a struct type live in a table: a directory named after the
// type, holding one XML document per row, named by the row's ID. IDs come
// from a counter file guarded by an exclusive file lock, so they strictly
// increase over the life of a table and are never reused, even across
// processes sharing the directory.
//
// A row type embeds Identity and is used through a pointer:
//
//	type Task struct {
//		rowstore.Identity
//		Title string
//		Tags  []string
//	}
//
//	s, err := rowstore.Open(root)
//	tasks, err := rowstore.NewTable[*Task](s)
//	id, err := tasks.Insert(&Task{Title: "write docs"})
//	task, err := tasks.SelectByID(id)
//
// Exported fields are persisted in declaration order, followed by the
// fields of embedded structs. Fields tagged `rowstore:"-"` are skipped.
// Scalars are written through the converters of a convert.Registry;
// slices, maps and map[K]struct{} sets are written as containers recording
// the runtime type of their elements.
//
// There is no query language, no index beyond the ID, no transaction
// spanning rows and no schema migration.
package rowstore
