// Package history prepares stored transcripts for replay to the inference backend.
package history

import "github.com/akwn2/dnd-ai-tutorial/internal/model"

// Filter returns the replay-safe subset of messages.
//
// Text and tool-result parts are kept, tool-call parts are dropped, and any
// message left without parts is omitted. The input is not modified.
func Filter(messages []model.Message) []model.Message {
	safe := make([]model.Message, 0, len(messages))
	for _, msg := range messages {
		parts := make([]model.Part, 0, len(msg.Parts))
		for _, p := range msg.Parts {
			switch p.Kind() {
			case model.PartText:
				parts = append(parts, model.Part{Text: p.Text})
			case model.PartToolResult:
				parts = append(parts, model.Part{Text: p.Text, ToolResult: p.ToolResult})
			}
		}
		if len(parts) == 0 {
			continue
		}

		filtered := msg
		filtered.Parts = parts
		safe = append(safe, filtered)
	}
	return safe
}
