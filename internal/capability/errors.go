// Package capability implements the assistant skills: dice, characters, encounters and lore.
package capability

import "fmt"

// UserInputError is an expected mistake in user input, answered with a friendly message.
type UserInputError struct {
	Message string
}

func (e *UserInputError) Error() string {
	return e.Message
}

// GenerationParseError reports model output that does not fit the requested schema.
// Raw holds the backend output for diagnostics.
type GenerationParseError struct {
	Artifact string
	Raw      string
	Err      error
}

func (e *GenerationParseError) Error() string {
	return fmt.Sprintf("parse generated %s: %v", e.Artifact, e.Err)
}

func (e *GenerationParseError) Unwrap() error {
	return e.Err
}
