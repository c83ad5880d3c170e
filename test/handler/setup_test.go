package handler_test

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/xxxsen/common/webapi"

	"github.com/coursepilot/backend/internal/ai"
	"github.com/coursepilot/backend/internal/config"
	"github.com/coursepilot/backend/internal/filestore"
	"github.com/coursepilot/backend/internal/handler"
	"github.com/coursepilot/backend/internal/middleware"
	"github.com/coursepilot/backend/internal/repo"
	"github.com/coursepilot/backend/internal/service"
	"github.com/coursepilot/backend/test/testutil"
)

// stubProvider answers every AI call deterministically so router tests can
// exercise upload/index/ask flows without a live model.
type stubProvider struct{}

func (stubProvider) Name() string { return "stub" }

func (stubProvider) Generate(ctx context.Context, model string, prompt string) (string, error) {
	return "Stub answer (Source: stub.pdf, Page 1).", nil
}

func (stubProvider) Embed(ctx context.Context, model string, text string, taskType string) ([]float32, error) {
	return stubVec(), nil
}

func (stubProvider) EmbedBatch(ctx context.Context, model string, texts []string, taskType string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = stubVec()
	}
	return out, nil
}

func stubVec() []float32 {
	vec := make([]float32, 768)
	vec[0] = 1
	return vec
}

func newTestID() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setupRouter(t *testing.T) (http.Handler, *service.AuthService, func()) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, cleanup := testutil.OpenTestDB(t)
	userRepo := repo.NewUserRepo(db)
	materialRepo := repo.NewMaterialRepo(db)
	chunkRepo := repo.NewChunkRepo(db)
	convRepo := repo.NewConversationRepo(db)
	msgRepo := repo.NewMessageRepo(db)

	tmpDir, err := os.MkdirTemp("", "coursepilot-upload-*")
	require.NoError(t, err)
	store, err := filestore.New(config.FileStoreConfig{
		Type: "local",
		Data: map[string]interface{}{
			"dir": tmpDir,
		},
	})
	require.NoError(t, err)

	generator := ai.NewGenerator(stubProvider{}, "stub-model", time.Second)
	embedder := ai.NewEmbedder(stubProvider{}, "stub-embed")

	jwtSecret := []byte("test-secret")
	ragCfg := config.RAGConfig{ChunkSize: 1000, ChunkOverlap: 200, SearchThreshold: 0.5, AskThreshold: 0.4, AskLimit: 5}
	authService := service.NewAuthService(userRepo, jwtSecret, time.Hour)
	ragService := service.NewRAGService(chunkRepo, materialRepo, embedder, generator, ragCfg)
	materialService := service.NewMaterialService(materialRepo, chunkRepo, store, ragService, 50)
	chatService := service.NewChatService(convRepo, msgRepo, ragService, generator, generator, 5)
	generateService := service.NewGenerateService(ragService, generator)

	deps := handler.RouterDeps{
		Auth:      handler.NewAuthHandler(authService),
		Materials: handler.NewMaterialHandler(materialService),
		Files:     handler.NewFileHandler(materialService),
		Search:    handler.NewSearchHandler(ragService),
		Chat:      handler.NewChatHandler(chatService),
		Generate:  handler.NewGenerateHandler(generateService),
		JWTSecret: jwtSecret,
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		"",
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(nil),
		),
	)
	require.NoError(t, err)

	return engine, authService, func() {
		cleanup()
		_ = os.RemoveAll(tmpDir)
	}
}

// seedUser provisions a user and logs in for a token. Students go through
// the public register route; admins are seeded the way startup does it.
func seedUser(t *testing.T, router http.Handler, auth *service.AuthService, role string) (string, string) {
	t.Helper()
	email := fmt.Sprintf("%s@example.com", newTestID())
	if role == "admin" {
		require.NoError(t, auth.EnsureAdmin(context.Background(), email, "longenough"))
	} else {
		resp := doJSON(t, router, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
			"email": email, "password": "longenough",
		})
		require.Equal(t, http.StatusOK, resp.Code)
	}
	resp := doJSON(t, router, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": email, "password": "longenough",
	})
	require.Equal(t, http.StatusOK, resp.Code)

	var envelope struct {
		Data struct {
			Token string `json:"token"`
			User  struct {
				ID string `json:"id"`
			} `json:"user"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	require.NotEmpty(t, envelope.Data.Token)
	return envelope.Data.Token, envelope.Data.User.ID
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}
