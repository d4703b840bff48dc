package catalog

import "errors"

var (
	// ErrStoreNotFound indicates the catalogue file does not exist.
	ErrStoreNotFound = errors.New("catalogue not found")
	// ErrStoreBusy indicates a write could not acquire the database lock
	// within the retry budget.
	ErrStoreBusy = errors.New("catalogue busy")
	// ErrStoreLocked indicates another process holds the catalogue write lock.
	ErrStoreLocked = errors.New("catalogue locked by another writer")
	// ErrRecordNotUnique indicates an insert violated the (source, path, name)
	// uniqueness of the files table.
	ErrRecordNotUnique = errors.New("file record not unique")
	// ErrSchemaUnsupported indicates the file is not a catalogue this version understands.
	ErrSchemaUnsupported = errors.New("unsupported catalogue schema")
	// ErrReadOnlySchema indicates a write against a catalogue that cannot be
	// modified (version 1 layout or a read-only handle).
	ErrReadOnlySchema = errors.New("catalogue is read-only")
)
