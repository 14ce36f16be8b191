package ai

import (
	"context"
	"fmt"
	"log"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/redmoonthebest/morozhenka/backend/internal/config"
	"github.com/redmoonthebest/morozhenka/backend/internal/model/conversation"
)

const defaultHistoryLimit = 10

// Service runs delivery-detail extraction and reply generation on top of a
// single compiled prompt chain. Both operations share the chain and differ
// only in the system prompt fed into it.
type Service struct {
	chain        compose.Runnable[map[string]any, *schema.Message]
	historyLimit int
}

// NewService creates the chat model from configuration and compiles the chain.
func NewService(ctx context.Context, cfg config.AIConfig) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	limit := cfg.HistoryLimit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	return &Service{chain: runnable, historyLimit: limit}, nil
}

// ExtractFields asks the model for tagged delivery details present in the
// newest user turn or the surrounding context. The last history entry is the
// turn under analysis.
func (s *Service) ExtractFields(ctx context.Context, history []conversation.Message, known map[conversation.FieldKey]string) (map[conversation.FieldKey]string, error) {
	window, query := s.splitWindow(history)

	response, err := s.chain.Invoke(ctx, map[string]any{
		"system":  extractionSystemPrompt(known),
		"history": window,
		"query":   query,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to run extraction chain: %w", err)
	}

	fields := ParseFields(response.Content)
	log.Printf("[ai] extracted %d field(s)", len(fields))
	return fields, nil
}

// ComposeReply generates the next conversational reply, steering the dialog
// toward the delivery details that are still missing.
func (s *Service) ComposeReply(ctx context.Context, history []conversation.Message, missing []conversation.FieldKey, known map[conversation.FieldKey]string) (string, error) {
	window, query := s.splitWindow(history)

	response, err := s.chain.Invoke(ctx, map[string]any{
		"system":  responderSystemPrompt(missing, known),
		"history": window,
		"query":   query,
	})
	if err != nil {
		return "", fmt.Errorf("failed to run responder chain: %w", err)
	}
	if response.Content == "" {
		return "", fmt.Errorf("model returned an empty reply")
	}

	log.Printf("[ai] composed reply, length=%d", len(response.Content))
	return response.Content, nil
}

// splitWindow separates the newest user turn from the preceding context so
// the chain sees it exactly once, in the {query} slot. Earlier turns become
// chat messages, capped at the configured history limit.
func (s *Service) splitWindow(history []conversation.Message) ([]*schema.Message, string) {
	if len(history) == 0 {
		return nil, ""
	}

	query := history[len(history)-1].Text
	prior := history[:len(history)-1]

	startIdx := 0
	if len(prior) > s.historyLimit {
		startIdx = len(prior) - s.historyLimit
	}

	window := make([]*schema.Message, 0, len(prior)-startIdx)
	for _, msg := range prior[startIdx:] {
		switch msg.Origin {
		case conversation.OriginUser:
			window = append(window, schema.UserMessage(msg.Text))
		case conversation.OriginSystem:
			window = append(window, schema.AssistantMessage(msg.Text, nil))
		}
	}

	return window, query
}
