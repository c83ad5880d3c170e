package repo_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/coursepilot/backend/internal/model"
	appErr "github.com/coursepilot/backend/internal/pkg/errors"
	"github.com/coursepilot/backend/internal/repo"
	"github.com/coursepilot/backend/test/testutil"
)

func createTestConversation(t *testing.T, convs *repo.ConversationRepo, userID string) *model.Conversation {
	t.Helper()
	now := time.Now().Unix()
	conv := &model.Conversation{
		ID:     newTestID(),
		UserID: userID,
		Title:  "New Chat",
		Ctime:  now,
		Mtime:  now,
	}
	require.NoError(t, convs.Create(context.Background(), conv))
	return conv
}

func TestConversationRepoOwnershipIsolation(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	convs := repo.NewConversationRepo(db)
	owner := newTestID()
	conv := createTestConversation(t, convs, owner)
	defer func() { _ = convs.Delete(context.Background(), owner, conv.ID) }()

	fetched, err := convs.GetByID(context.Background(), owner, conv.ID)
	require.NoError(t, err)
	require.Equal(t, "New Chat", fetched.Title)

	_, err = convs.GetByID(context.Background(), newTestID(), conv.ID)
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestConversationRepoIncrementMessageCount(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	convs := repo.NewConversationRepo(db)
	owner := newTestID()
	conv := createTestConversation(t, convs, owner)
	defer func() { _ = convs.Delete(context.Background(), owner, conv.ID) }()

	count, err := convs.IncrementMessageCount(context.Background(), conv.ID, 1, time.Now().Unix())
	require.NoError(t, err)
	require.Equal(t, 1, count)

	count, err = convs.IncrementMessageCount(context.Background(), conv.ID, 1, time.Now().Unix())
	require.NoError(t, err)
	require.Equal(t, 2, count)

	_, err = convs.IncrementMessageCount(context.Background(), newTestID(), 1, time.Now().Unix())
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestConversationRepoUpdateTitleAndSummary(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	convs := repo.NewConversationRepo(db)
	owner := newTestID()
	conv := createTestConversation(t, convs, owner)
	defer func() { _ = convs.Delete(context.Background(), owner, conv.ID) }()

	require.NoError(t, convs.UpdateTitle(context.Background(), conv.ID, "Sorting Questions", time.Now().Unix()))
	require.NoError(t, convs.UpdateSummary(context.Background(), conv.ID, "Discussed merge sort.", time.Now().Unix()))

	fetched, err := convs.GetByID(context.Background(), owner, conv.ID)
	require.NoError(t, err)
	require.Equal(t, "Sorting Questions", fetched.Title)
	require.Equal(t, "Discussed merge sort.", fetched.RollingSummary)
}

func TestMessageRepoSourcesRoundtripAndOrdering(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	convs := repo.NewConversationRepo(db)
	msgs := repo.NewMessageRepo(db)
	owner := newTestID()
	conv := createTestConversation(t, convs, owner)
	defer func() { _ = convs.Delete(context.Background(), owner, conv.ID) }()

	page := 4
	now := time.Now().Unix()
	userMsg := &model.ChatMessage{
		ID:             newTestID(),
		ConversationID: conv.ID,
		Role:           model.RoleUser,
		Content:        "what is a heap?",
		Ctime:          now,
	}
	assistantMsg := &model.ChatMessage{
		ID:             newTestID(),
		ConversationID: conv.ID,
		Role:           model.RoleAssistant,
		Content:        "A heap is a tree-shaped priority structure (Source: trees.pdf, Page 4).",
		Sources: []model.SourceCitation{
			{FileName: "trees.pdf", PageNumber: &page, Excerpt: "heap excerpt", Similarity: 0.91, MaterialID: newTestID()},
		},
		Ctime: now,
	}
	require.NoError(t, msgs.Create(context.Background(), userMsg))
	require.NoError(t, msgs.Create(context.Background(), assistantMsg))

	all, err := msgs.ListByConversation(context.Background(), conv.ID, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, model.RoleUser, all[0].Role)
	require.Equal(t, model.RoleAssistant, all[1].Role)
	require.Empty(t, all[0].Sources)
	require.Len(t, all[1].Sources, 1)
	require.Equal(t, "trees.pdf", all[1].Sources[0].FileName)
	require.Equal(t, 4, *all[1].Sources[0].PageNumber)
	require.Equal(t, float32(0.91), all[1].Sources[0].Similarity)

	recent, err := msgs.ListRecent(context.Background(), conv.ID, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	require.Equal(t, model.RoleAssistant, recent[0].Role, "recent window keeps the newest message")
}
