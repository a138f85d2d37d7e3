package ai

import "github.com/sashabaranov/go-openai"

// SystemMessage creates a system prompt message.
func SystemMessage(content string) openai.ChatCompletionMessage {
	return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: content}
}

// UserMessage creates a user message.
func UserMessage(content string) openai.ChatCompletionMessage {
	return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: content}
}

// AssistantMessage creates an assistant message.
func AssistantMessage(content string) openai.ChatCompletionMessage {
	return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content}
}

// FormatMessages assembles a prompt: system prompt first, then history,
// then the current user content.
func FormatMessages(systemPrompt string, userContent string, history []openai.ChatCompletionMessage) []openai.ChatCompletionMessage {
	messages := []openai.ChatCompletionMessage{}
	if systemPrompt != "" {
		messages = append(messages, SystemMessage(systemPrompt))
	}
	messages = append(messages, history...)
	messages = append(messages, UserMessage(userContent))
	return messages
}
