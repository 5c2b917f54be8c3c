// Package assets embeds static server resources.
package assets

import _ "embed"

// SystemInstruction is the system prompt of the tool-calling Game Master assistant.
//
//go:embed system_instruction.md
var SystemInstruction string
