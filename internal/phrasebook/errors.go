// ABOUTME: Sentinel errors for dictionary and rotation operations
// ABOUTME: Callers match with errors.Is; messages are wrapped with the offending name

package phrasebook

import "errors"

var (
	// ErrInvalidName is returned for empty dictionary names or names containing whitespace.
	ErrInvalidName = errors.New("invalid dictionary name")

	// ErrAlreadyExists is returned when creating a dictionary whose name is taken.
	ErrAlreadyExists = errors.New("dictionary already exists")

	// ErrNotFound is returned when a named dictionary does not exist.
	ErrNotFound = errors.New("dictionary not found")

	// ErrEmptyPhrase is returned when appending an empty phrase.
	ErrEmptyPhrase = errors.New("phrase is empty")

	// ErrEmptySequence is returned by NextPhrase for a zero-length snapshot.
	ErrEmptySequence = errors.New("phrase sequence is empty")

	// ErrInvalidState is returned by Decode when a blob breaks the state invariants.
	ErrInvalidState = errors.New("invalid conversation state")

	// ErrInvalidInterval is returned for non-positive or non-finite intervals.
	ErrInvalidInterval = errors.New("invalid interval")
)
