package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/coursepilot/backend/internal/ai"
	"github.com/coursepilot/backend/internal/model"
	"github.com/coursepilot/backend/internal/rag"
)

const (
	// contextWindow bounds how many raw messages the prompt may carry; older
	// history only survives through the rolling summary.
	contextWindow = 5
	// summaryEvery: the rolling summary is refreshed whenever the message
	// count hits a multiple of this.
	summaryEvery = 4
	// summaryTail is how many recent messages feed one summary refresh.
	summaryTail = 4
	// summaryMsgLimit truncates each message fed to the summarizer.
	summaryMsgLimit = 300
	titleMaxLen     = 80

	defaultConversationTitle = "New Chat"
)

type ConversationStore interface {
	Create(ctx context.Context, conv *model.Conversation) error
	GetByID(ctx context.Context, userID, convID string) (*model.Conversation, error)
	ListByUser(ctx context.Context, userID string, limit uint) ([]model.Conversation, error)
	IncrementMessageCount(ctx context.Context, convID string, delta int, mtime int64) (int, error)
	UpdateTitle(ctx context.Context, convID, title string, mtime int64) error
	UpdateSummary(ctx context.Context, convID, summary string, mtime int64) error
	Delete(ctx context.Context, userID, convID string) error
}

type MessageStore interface {
	Create(ctx context.Context, msg *model.ChatMessage) error
	ListByConversation(ctx context.Context, convID string, limit int) ([]model.ChatMessage, error)
	ListRecent(ctx context.Context, convID string, n int) ([]model.ChatMessage, error)
}

// Asker is the grounding retrieval surface the chat turn depends on.
type Asker interface {
	Ask(ctx context.Context, question string, limit int, category *string, week *int) (*AskResponse, error)
}

// ChatService orchestrates conversational turns: memory, intent, grounding,
// generation and persistence.
type ChatService struct {
	convs      ConversationStore
	msgs       MessageStore
	asker      Asker
	generator  ai.IGenerator
	summarizer ai.IGenerator
	askLimit   int
}

func NewChatService(convs ConversationStore, msgs MessageStore, asker Asker, generator, summarizer ai.IGenerator, askLimit int) *ChatService {
	if askLimit <= 0 {
		askLimit = 5
	}
	return &ChatService{convs: convs, msgs: msgs, asker: asker, generator: generator, summarizer: summarizer, askLimit: askLimit}
}

func (s *ChatService) CreateConversation(ctx context.Context, userID, title string) (*model.Conversation, error) {
	if strings.TrimSpace(title) == "" {
		title = defaultConversationTitle
	}
	now := time.Now().Unix()
	conv := &model.Conversation{
		ID:             newID(),
		UserID:         userID,
		Title:          title,
		RollingSummary: "",
		MessageCount:   0,
		Ctime:          now,
		Mtime:          now,
	}
	if err := s.convs.Create(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

func (s *ChatService) GetConversation(ctx context.Context, userID, convID string) (*model.Conversation, error) {
	return s.convs.GetByID(ctx, userID, convID)
}

func (s *ChatService) ListConversations(ctx context.Context, userID string, limit uint) ([]model.Conversation, error) {
	if limit == 0 {
		limit = 20
	}
	return s.convs.ListByUser(ctx, userID, limit)
}

// GetMessages returns the transcript after an ownership check.
func (s *ChatService) GetMessages(ctx context.Context, userID, convID string) ([]model.ChatMessage, error) {
	if _, err := s.convs.GetByID(ctx, userID, convID); err != nil {
		return nil, err
	}
	return s.msgs.ListByConversation(ctx, convID, 0)
}

func (s *ChatService) DeleteConversation(ctx context.Context, userID, convID string) error {
	return s.convs.Delete(ctx, userID, convID)
}

// ChatResult is one completed turn.
type ChatResult struct {
	ConversationID string                 `json:"conversation_id"`
	Message        *model.ChatMessage     `json:"message"`
	Sources        []model.SourceCitation `json:"sources"`
	Intent         rag.Intent             `json:"intent"`
}

// Chat runs one conversational turn. Once the user message is persisted the
// turn always completes with a persisted assistant message; grounding or
// generation failures degrade to an in-band apology instead of aborting.
func (s *ChatService) Chat(ctx context.Context, userID, convID, userMessage string) (*ChatResult, error) {
	conv, err := s.convs.GetByID(ctx, userID, convID)
	if err != nil {
		return nil, err
	}
	preCount := conv.MessageCount
	now := time.Now().Unix()

	userMsg := &model.ChatMessage{
		ID:             newID(),
		ConversationID: convID,
		Role:           model.RoleUser,
		Content:        userMessage,
		Sources:        []model.SourceCitation{},
		Ctime:          now,
	}
	if err := s.msgs.Create(ctx, userMsg); err != nil {
		return nil, err
	}
	if _, err := s.convs.IncrementMessageCount(ctx, convID, 1, now); err != nil {
		return nil, err
	}

	// the window query sees the message persisted above, so the current
	// question reaches the prompt through the context itself
	conversationContext, hasHistory := s.buildContext(ctx, conv)
	intent := rag.Classify(userMessage, hasHistory)

	var sources []model.SourceCitation
	var content string
	askResp, askErr := s.asker.Ask(ctx, userMessage, s.askLimit, nil, nil)
	if askErr != nil {
		logutil.GetLogger(ctx).Warn("grounding retrieval failed",
			zap.String("conversation_id", convID), zap.Error(askErr))
		content = apologyFor(askErr)
		sources = []model.SourceCitation{}
	} else {
		sources = askResp.Sources
		prompt := rag.BuildChatPrompt(
			rag.BuildSystemPrompt(intent),
			conversationContext,
			rag.BuildMaterialsContext(sources),
			userMessage,
		)
		content, err = s.generator.Generate(ctx, prompt)
		if err != nil {
			logutil.GetLogger(ctx).Warn("chat generation failed",
				zap.String("conversation_id", convID), zap.Error(err))
			content = apologyFor(err)
		}
	}

	assistantMsg := &model.ChatMessage{
		ID:             newID(),
		ConversationID: convID,
		Role:           model.RoleAssistant,
		Content:        content,
		Sources:        sources,
		Ctime:          time.Now().Unix(),
	}
	if err := s.msgs.Create(ctx, assistantMsg); err != nil {
		return nil, err
	}
	newCount, err := s.convs.IncrementMessageCount(ctx, convID, 1, assistantMsg.Ctime)
	if err != nil {
		return nil, err
	}

	if newCount%summaryEvery == 0 {
		s.refreshSummary(ctx, conv)
	}
	if preCount == 0 {
		s.generateTitle(ctx, convID, userMessage)
	}

	return &ChatResult{
		ConversationID: convID,
		Message:        assistantMsg,
		Sources:        sources,
		Intent:         intent,
	}, nil
}

func apologyFor(err error) string {
	return fmt.Sprintf("I apologize, but I encountered an error processing your request: %v", err)
}

// buildContext assembles the rolling summary plus the strict last-5 window.
func (s *ChatService) buildContext(ctx context.Context, conv *model.Conversation) (string, bool) {
	recent, err := s.msgs.ListRecent(ctx, conv.ID, contextWindow)
	if err != nil {
		logutil.GetLogger(ctx).Warn("load recent messages failed",
			zap.String("conversation_id", conv.ID), zap.Error(err))
		recent = nil
	}
	hasHistory := len(recent) > 0

	var parts []string
	if conv.RollingSummary != "" {
		parts = append(parts, "[Previous Conversation Summary]\n"+conv.RollingSummary)
	}
	if len(recent) > 0 {
		lines := make([]string, 0, len(recent))
		for _, msg := range recent {
			lines = append(lines, strings.ToUpper(msg.Role)+": "+msg.Content)
		}
		parts = append(parts, "[Recent Conversation (Last 5 messages)]\n"+strings.Join(lines, "\n"))
	}
	return strings.Join(parts, "\n\n"), hasHistory
}

// refreshSummary compresses the existing summary plus the last few messages
// into a fresh rolling summary. Near-empty history is skipped, and failures
// keep the old summary.
func (s *ChatService) refreshSummary(ctx context.Context, conv *model.Conversation) {
	recent, err := s.msgs.ListRecent(ctx, conv.ID, contextWindow)
	if err != nil || len(recent) == 0 {
		return
	}
	if conv.RollingSummary == "" && len(recent) < 3 {
		return
	}
	tail := recent
	if len(tail) > summaryTail {
		tail = tail[len(tail)-summaryTail:]
	}
	lines := make([]string, 0, len(tail))
	for _, msg := range tail {
		content := msg.Content
		if runes := []rune(content); len(runes) > summaryMsgLimit {
			content = string(runes[:summaryMsgLimit])
		}
		lines = append(lines, strings.ToUpper(msg.Role)+": "+content)
	}
	prompt := rag.BuildSummaryPrompt(conv.RollingSummary, strings.Join(lines, "\n"))
	summary, err := s.summarizer.Generate(ctx, prompt)
	if err != nil {
		logutil.GetLogger(ctx).Warn("summary generation failed",
			zap.String("conversation_id", conv.ID), zap.Error(err))
		return
	}
	if err := s.convs.UpdateSummary(ctx, conv.ID, strings.TrimSpace(summary), time.Now().Unix()); err != nil {
		logutil.GetLogger(ctx).Warn("summary update failed",
			zap.String("conversation_id", conv.ID), zap.Error(err))
	}
}

// generateTitle derives a short title from the opening message. Failure is
// logged and otherwise ignored.
func (s *ChatService) generateTitle(ctx context.Context, convID, firstMessage string) {
	title, err := s.summarizer.Generate(ctx, rag.BuildTitlePrompt(firstMessage))
	if err != nil {
		logutil.GetLogger(ctx).Warn("title generation failed",
			zap.String("conversation_id", convID), zap.Error(err))
		return
	}
	title = strings.Trim(strings.TrimSpace(title), `"'`)
	if runes := []rune(title); len(runes) > titleMaxLen {
		title = string(runes[:titleMaxLen])
	}
	if title == "" {
		return
	}
	if err := s.convs.UpdateTitle(ctx, convID, title, time.Now().Unix()); err != nil {
		logutil.GetLogger(ctx).Warn("title update failed",
			zap.String("conversation_id", convID), zap.Error(err))
	}
}
