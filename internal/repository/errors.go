package repository

import "errors"

var (
	// ErrTransitionConflict means another writer held or won the report row.
	ErrTransitionConflict = errors.New("concurrent transition on report")
	// ErrForeignReference means an insert pointed at a row that does not exist.
	ErrForeignReference = errors.New("referenced row does not exist")
)
