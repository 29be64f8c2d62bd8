package datastore

import "errors"

// Sentinel errors for data-store operations.
var (
	// ErrRowOutOfRange indicates an entity/row index beyond NumInsertedEntities.
	ErrRowOutOfRange = errors.New("datastore: row index out of range")

	// ErrNoLabelsOrEntities indicates AddLabels was called with an empty
	// label list or zero entities to build from.
	ErrNoLabelsOrEntities = errors.New("datastore: no labels or no entities to build from")

	// ErrLabelStillInUse describes a column at least one entity still
	// carries a value for. No function in this package returns it;
	// RemoveUnusedLabels simply leaves such columns in place.
	ErrLabelStillInUse = errors.New("datastore: label is still in use by at least one entity")
)
