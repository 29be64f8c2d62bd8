package column

import "errors"

// Sentinel errors for column operations.
var (
	// ErrRowOutOfRange indicates a row index beyond the column's current
	// length was used for an update or removal.
	ErrRowOutOfRange = errors.New("column: row index out of range")

	// ErrUnknownValueType indicates a query was given a svalue.Type the
	// column has no index for (e.g. requesting a range over Code values).
	ErrUnknownValueType = errors.New("column: unsupported value type for this query")
)
