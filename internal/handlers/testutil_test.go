package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/zenithtrust/docuvault/internal/config"
	"github.com/zenithtrust/docuvault/internal/middleware"
	"github.com/zenithtrust/docuvault/internal/models"
	"github.com/zenithtrust/docuvault/internal/services"
	"github.com/zenithtrust/docuvault/internal/session"
	"github.com/zenithtrust/docuvault/internal/storage"
	"github.com/zenithtrust/docuvault/pkg/logger"
	"gorm.io/gorm"
)

const testUploadLimit = 1 << 20 // 1 MiB keeps oversize fixtures small

type testEnv struct {
	app      *fiber.App
	db       *gorm.DB
	sessions session.Store
	store    *memStore

	// assistFn is swappable per test; the default returns a fixed text.
	mu       sync.Mutex
	assistFn func(w http.ResponseWriter, r *http.Request)
}

func (e *testEnv) setAssist(fn func(w http.ResponseWriter, r *http.Request)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.assistFn = fn
}

func (e *testEnv) serveAssist(w http.ResponseWriter, r *http.Request) {
	e.mu.Lock()
	fn := e.assistFn
	e.mu.Unlock()
	fn(w, r)
}

// memStore is the in-memory ObjectStore used instead of MinIO in tests.
type memObject struct {
	data        []byte
	contentType string
}

type memStore struct {
	mu      sync.Mutex
	objects map[string]memObject
}

func newMemStore() *memStore {
	return &memStore{objects: map[string]memObject{}}
}

func (s *memStore) Upload(_ context.Context, objectName string, reader io.Reader, _ int64, contentType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[objectName] = memObject{data: data, contentType: contentType}
	return nil
}

func (s *memStore) Download(_ context.Context, objectName string) (io.ReadCloser, storage.ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[objectName]
	if !ok {
		return nil, storage.ObjectInfo{}, storage.ErrObjectNotFound
	}
	info := storage.ObjectInfo{Size: int64(len(obj.data)), ContentType: obj.contentType}
	return io.NopCloser(bytes.NewReader(obj.data)), info, nil
}

func (s *memStore) Delete(_ context.Context, objectName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, objectName)
	return nil
}

func (s *memStore) has(objectName string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[objectName]
	return ok
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

var testSetupOnce sync.Once

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	testSetupOnce.Do(func() {
		logger.Init()
	})

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed opening in-memory sqlite database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed getting sql.DB from gorm: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	err = db.AutoMigrate(
		&models.User{},
		&models.Folder{},
		&models.Document{},
		&models.DocumentShare{},
		&models.DocumentSequence{},
		&models.ActivityLog{},
		&models.ActivityExportCursor{},
	)
	if err != nil {
		t.Fatalf("failed automigrating models: %v", err)
	}

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = redisClient.Close()
	})

	env := &testEnv{
		db:    db,
		store: newMemStore(),
		assistFn: func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"text":"generated text"}`))
		},
	}

	assistServer := httptest.NewServer(http.HandlerFunc(env.serveAssist))
	t.Cleanup(assistServer.Close)

	env.sessions = session.NewRedisStore(redisClient, "test-secret", time.Hour)

	codes := services.NewCodeService(db)
	ledger := services.NewLedger(db, env.store)
	assist := services.NewAssistService(config.AssistConfig{
		BaseURL: assistServer.URL,
		APIKey:  "test-key",
		Timeout: 5 * time.Second,
	})

	authHandler := NewAuthHandler(db, env.sessions, codes, ledger, time.Hour)
	foldersHandler := NewFoldersHandler(db, env.sessions, ledger)
	documentsHandler := NewDocumentsHandler(db, env.store, codes, ledger, services.TextRenderer{}, testUploadLimit)
	sharesHandler := NewSharesHandler(db, ledger)
	aiHandler := NewAIHandler(assist, ledger)
	adminHandler := NewAdminHandler(db, ledger)

	authMiddleware := middleware.NewAuthMiddleware(db, env.sessions)

	app := fiber.New(fiber.Config{BodyLimit: 2 * testUploadLimit})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS("http://localhost:3001"))

	api := app.Group("/api")

	api.Post("/login", authHandler.Login)
	api.Post("/logout", authMiddleware.RequireAuth, authHandler.Logout)
	api.Get("/user", authMiddleware.RequireAuth, authHandler.Me)
	api.Post("/register", authMiddleware.RequireAuth, middleware.SuperAdminOnly, authHandler.Register)

	folderRoutes := api.Group("/folders", authMiddleware.RequireAuth)
	folderRoutes.Post("/", foldersHandler.Create)
	folderRoutes.Get("/", foldersHandler.List)
	folderRoutes.Get("/:id", foldersHandler.Get)
	folderRoutes.Post("/:id/verify-access", foldersHandler.VerifyAccess)
	folderRoutes.Get("/:id/documents", foldersHandler.ListDocuments)

	documentRoutes := api.Group("/documents", authMiddleware.RequireAuth)
	documentRoutes.Post("/upload", documentsHandler.Upload)
	documentRoutes.Post("/create", documentsHandler.CreateFromTemplate)
	documentRoutes.Get("/", documentsHandler.List)
	documentRoutes.Get("/stats", documentsHandler.Stats)
	documentRoutes.Get("/shared/with-me", sharesHandler.SharedWithMe)
	documentRoutes.Get("/:id/download/pdf", documentsHandler.DownloadPDF)
	documentRoutes.Get("/:id/download", documentsHandler.Download)
	documentRoutes.Post("/:id/export-pdf", documentsHandler.ExportPDF)
	documentRoutes.Post("/:id/share", sharesHandler.Share)
	documentRoutes.Put("/:id/update", documentsHandler.UpdateFile)
	documentRoutes.Put("/:id/content", documentsHandler.UpdateContent)
	documentRoutes.Get("/:id", documentsHandler.Get)
	documentRoutes.Delete("/:id", documentsHandler.Delete)

	api.Delete("/shares/:id", authMiddleware.RequireAuth, sharesHandler.Revoke)

	aiRoutes := api.Group("/ai", authMiddleware.RequireAuth)
	aiRoutes.Post("/generate-template", aiHandler.GenerateTemplate)
	aiRoutes.Post("/research", aiHandler.Research)
	aiRoutes.Post("/improve-content", aiHandler.ImproveContent)

	adminRoutes := api.Group("/admin", authMiddleware.RequireAuth, middleware.SuperAdminOnly)
	adminRoutes.Get("/users", adminHandler.ListUsers)
	adminRoutes.Patch("/users/:id", adminHandler.UpdateUser)
	adminRoutes.Get("/activity-logs", adminHandler.ActivityLogs)

	env.app = app
	return env
}

var testCodeCounter int64

func nextTestLoginCode() string {
	testCodeCounter++
	return fmt.Sprintf("ZT-T%02d-%s", testCodeCounter%100, strings.ToUpper(uuid.NewString()[:3]))
}

func createTestUser(t *testing.T, env *testEnv, name string, role models.UserRole) (*models.User, string) {
	t.Helper()

	user := &models.User{
		Name:      name,
		LoginCode: nextTestLoginCode(),
		Role:      role,
		IsActive:  true,
	}
	if err := env.db.Create(user).Error; err != nil {
		t.Fatalf("failed creating test user: %v", err)
	}

	token, err := env.sessions.Create(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("failed creating session: %v", err)
	}

	return user, token
}

func authHeaders(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func performRequest(t *testing.T, app *fiber.App, method, path string, body io.Reader, headers map[string]string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(method, path, body)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := app.Test(req, int((10 * time.Second).Milliseconds()))
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}

	return resp
}

func performJSONRequest(t *testing.T, app *fiber.App, method, path string, payload any, headers map[string]string) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
		body = bytes.NewReader(encoded)
	}

	requestHeaders := map[string]string{}
	for key, value := range headers {
		requestHeaders[key] = value
	}
	if payload != nil {
		requestHeaders["Content-Type"] = "application/json"
	}

	return performRequest(t, app, method, path, body, requestHeaders)
}

// performUpload builds a multipart body with the given form fields and one
// file part named "file".
func performUpload(t *testing.T, app *fiber.App, method, path string, fields map[string]string, filename, contentType string, content []byte, headers map[string]string) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("failed writing form field %q: %v", key, err)
		}
	}

	partHeader := make(map[string][]string)
	partHeader["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name="file"; filename=%q`, filename)}
	partHeader["Content-Type"] = []string{contentType}
	part, err := writer.CreatePart(partHeader)
	if err != nil {
		t.Fatalf("failed creating file part: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("failed writing file content: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed closing multipart writer: %v", err)
	}

	requestHeaders := map[string]string{"Content-Type": writer.FormDataContentType()}
	for key, value := range headers {
		requestHeaders[key] = value
	}

	return performRequest(t, app, method, path, &buf, requestHeaders)
}

func decodeJSONMap(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed reading response body: %v", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("failed decoding JSON response: %v body=%q", err, string(raw))
	}

	return payload
}

func decodeJSONList(t *testing.T, resp *http.Response) []map[string]any {
	t.Helper()
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed reading response body: %v", err)
	}

	var payload []map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("failed decoding JSON list: %v body=%q", err, string(raw))
	}

	return payload
}

func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Fatalf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

func assertMessage(t *testing.T, body map[string]any, expected string) {
	t.Helper()
	message, _ := body["message"].(string)
	if message != expected {
		t.Fatalf("expected message %q, got %q", expected, message)
	}
}

// waitForLogs polls for asynchronously written ledger rows.
func waitForLogs(t *testing.T, db *gorm.DB, action models.ActivityAction, expected int64) []models.ActivityLog {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for {
		var count int64
		if err := db.Model(&models.ActivityLog{}).Where("action = ?", action).Count(&count).Error; err != nil {
			t.Fatalf("failed counting activity logs: %v", err)
		}
		if count >= expected {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected %d %q activity logs, found %d", expected, action, count)
		}
		time.Sleep(10 * time.Millisecond)
	}

	var logs []models.ActivityLog
	if err := db.Where("action = ?", action).Order("created_at DESC").Find(&logs).Error; err != nil {
		t.Fatalf("failed loading activity logs: %v", err)
	}
	return logs
}
