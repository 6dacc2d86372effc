package service

import (
	"madlen-ai-be/internal/entity"
	"madlen-ai-be/pkg/openrouter"
)

// assembleMessages converts stored history into the upstream wire shape.
// User turns carrying an image become multimodal content; everything else
// is plain text. Assistant turns never carry images.
func assembleMessages(history []*entity.ChatMessage) []openrouter.Message {
	out := make([]openrouter.Message, 0, len(history))
	for _, msg := range history {
		if msg.Role == entity.ChatMessageRoleUser && msg.ImageURL != nil && *msg.ImageURL != "" {
			out = append(out, openrouter.MultimodalMessage(msg.Role, msg.Content, *msg.ImageURL))
			continue
		}
		out = append(out, openrouter.TextMessage(msg.Role, msg.Content))
	}
	return out
}

// truncateRunes shortens s to at most n runes without splitting a
// multi-byte character.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
