package handlers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/zenithtrust/docuvault/internal/models"
)

func uploadDocument(t *testing.T, env *testEnv, token, filename, contentType, category string, content []byte) map[string]any {
	t.Helper()

	resp := performUpload(t, env.app, http.MethodPost, "/api/documents/upload",
		map[string]string{"category": category}, filename, contentType, content, authHeaders(token))
	assertStatus(t, resp, http.StatusCreated)
	return decodeJSONMap(t, resp)
}

func TestUploadAssignsDocumentCodeAndStoresBytes(t *testing.T) {
	env := setupTestEnv(t)
	user, token := createTestUser(t, env, "Alice", models.UserRoleUser)

	doc := uploadDocument(t, env, token, "q3-review.pdf", "application/pdf", "memo", []byte("%PDF-1.7 fake"))

	expectedCode := fmt.Sprintf("MEMO-%d-001", time.Now().Year())
	if doc["documentCode"] != expectedCode {
		t.Fatalf("expected document code %s, got %v", expectedCode, doc["documentCode"])
	}
	if doc["fileType"] != "pdf" {
		t.Fatalf("expected file type pdf, got %v", doc["fileType"])
	}
	if doc["originalName"] != "q3-review.pdf" {
		t.Fatalf("expected original name preserved, got %v", doc["originalName"])
	}

	filePath, _ := doc["filePath"].(string)
	if !strings.HasPrefix(filePath, "uploads/") {
		t.Fatalf("unexpected object name %q", filePath)
	}
	if !env.store.has(filePath) {
		t.Fatalf("uploaded bytes missing from storage")
	}

	logs := waitForLogs(t, env.db, models.ActionUpload, 1)
	if logs[0].UserID != user.ID {
		t.Fatalf("upload log attributed to wrong user")
	}
	if logs[0].Details["documentName"] != "q3-review.pdf" {
		t.Fatalf("upload log missing document name: %v", logs[0].Details)
	}
}

func TestUploadRejectsDisallowedMimeType(t *testing.T) {
	env := setupTestEnv(t)
	_, token := createTestUser(t, env, "Alice", models.UserRoleUser)

	resp := performUpload(t, env.app, http.MethodPost, "/api/documents/upload",
		map[string]string{"category": "memo"}, "notes.txt", "text/plain", []byte("plain text"), authHeaders(token))
	assertStatus(t, resp, http.StatusBadRequest)

	if env.store.count() != 0 {
		t.Fatalf("rejected upload must not reach storage")
	}
}

func TestUploadRejectsOversizeFile(t *testing.T) {
	env := setupTestEnv(t)
	_, token := createTestUser(t, env, "Alice", models.UserRoleUser)

	oversize := bytes.Repeat([]byte("a"), testUploadLimit+1)
	resp := performUpload(t, env.app, http.MethodPost, "/api/documents/upload",
		map[string]string{"category": "memo"}, "big.pdf", "application/pdf", oversize, authHeaders(token))
	assertStatus(t, resp, http.StatusBadRequest)

	if env.store.count() != 0 {
		t.Fatalf("oversize upload must not reach storage")
	}
}

func TestUploadRequiresValidCategory(t *testing.T) {
	env := setupTestEnv(t)
	_, token := createTestUser(t, env, "Alice", models.UserRoleUser)

	resp := performUpload(t, env.app, http.MethodPost, "/api/documents/upload",
		map[string]string{"category": "gossip"}, "a.pdf", "application/pdf", []byte("x"), authHeaders(token))
	assertStatus(t, resp, http.StatusBadRequest)
}

func TestDocumentCodesAreSequentialPerCategory(t *testing.T) {
	env := setupTestEnv(t)
	_, token := createTestUser(t, env, "Alice", models.UserRoleUser)

	year := time.Now().Year()
	first := uploadDocument(t, env, token, "a.pdf", "application/pdf", "memo", []byte("a"))
	second := uploadDocument(t, env, token, "b.pdf", "application/pdf", "memo", []byte("b"))
	other := uploadDocument(t, env, token, "c.pdf", "application/pdf", "contracts", []byte("c"))

	if first["documentCode"] != fmt.Sprintf("MEMO-%d-001", year) {
		t.Fatalf("unexpected first code %v", first["documentCode"])
	}
	if second["documentCode"] != fmt.Sprintf("MEMO-%d-002", year) {
		t.Fatalf("unexpected second code %v", second["documentCode"])
	}
	// Categories count independently.
	if other["documentCode"] != fmt.Sprintf("CONTRACTS-%d-001", year) {
		t.Fatalf("unexpected contracts code %v", other["documentCode"])
	}
}

func TestListDocumentsFiltersByCategoryAndSearch(t *testing.T) {
	env := setupTestEnv(t)
	_, token := createTestUser(t, env, "Alice", models.UserRoleUser)

	uploadDocument(t, env, token, "board-minutes.pdf", "application/pdf", "minutes", []byte("m"))
	uploadDocument(t, env, token, "vendor-contract.pdf", "application/pdf", "contracts", []byte("c"))

	resp := performRequest(t, env.app, http.MethodGet, "/api/documents/?category=minutes", nil, authHeaders(token))
	assertStatus(t, resp, http.StatusOK)
	list := decodeJSONList(t, resp)
	if len(list) != 1 || list[0]["name"] != "board-minutes.pdf" {
		t.Fatalf("category filter failed: %v", list)
	}

	resp = performRequest(t, env.app, http.MethodGet, "/api/documents/?search=VENDOR", nil, authHeaders(token))
	assertStatus(t, resp, http.StatusOK)
	list = decodeJSONList(t, resp)
	if len(list) != 1 || list[0]["name"] != "vendor-contract.pdf" {
		t.Fatalf("case-insensitive search failed: %v", list)
	}
}

func TestDownloadReturnsUploadedBytes(t *testing.T) {
	env := setupTestEnv(t)
	_, token := createTestUser(t, env, "Alice", models.UserRoleUser)

	content := []byte("%PDF-1.7 original bytes")
	doc := uploadDocument(t, env, token, "report.pdf", "application/pdf", "report", content)
	docID, _ := doc["id"].(string)

	resp := performRequest(t, env.app, http.MethodGet, "/api/documents/"+docID+"/download", nil, authHeaders(token))
	assertStatus(t, resp, http.StatusOK)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed reading download body: %v", err)
	}
	if !bytes.Equal(body, content) {
		t.Fatalf("downloaded bytes differ from upload")
	}
	if disposition := resp.Header.Get("Content-Disposition"); !strings.Contains(disposition, "report.pdf") {
		t.Fatalf("expected attachment filename, got %q", disposition)
	}

	waitForLogs(t, env.db, models.ActionDownload, 1)
}

func TestDownloadMissingObjectIs404(t *testing.T) {
	env := setupTestEnv(t)
	_, token := createTestUser(t, env, "Alice", models.UserRoleUser)

	doc := uploadDocument(t, env, token, "gone.pdf", "application/pdf", "memo", []byte("x"))
	docID, _ := doc["id"].(string)
	filePath, _ := doc["filePath"].(string)
	if err := env.store.Delete(context.Background(), filePath); err != nil {
		t.Fatalf("failed removing object: %v", err)
	}

	resp := performRequest(t, env.app, http.MethodGet, "/api/documents/"+docID+"/download", nil, authHeaders(token))
	assertStatus(t, resp, http.StatusNotFound)
	assertMessage(t, decodeJSONMap(t, resp), "file not found in storage")
}

func TestUnknownDocumentIs404(t *testing.T) {
	env := setupTestEnv(t)
	_, token := createTestUser(t, env, "Alice", models.UserRoleUser)

	unknownID := uuid.NewString()

	resp := performRequest(t, env.app, http.MethodGet, "/api/documents/"+unknownID, nil, authHeaders(token))
	assertStatus(t, resp, http.StatusNotFound)
	assertMessage(t, decodeJSONMap(t, resp), "document not found")

	resp = performRequest(t, env.app, http.MethodGet, "/api/documents/"+unknownID+"/download", nil, authHeaders(token))
	assertStatus(t, resp, http.StatusNotFound)
	assertMessage(t, decodeJSONMap(t, resp), "document not found")

	resp = performUpload(t, env.app, http.MethodPut, "/api/documents/"+unknownID+"/update",
		nil, "v2.pdf", "application/pdf", []byte("v2"), authHeaders(token))
	assertStatus(t, resp, http.StatusNotFound)
	assertMessage(t, decodeJSONMap(t, resp), "document not found")
}

func TestMalformedDocumentIDIs400(t *testing.T) {
	env := setupTestEnv(t)
	_, token := createTestUser(t, env, "Alice", models.UserRoleUser)

	resp := performRequest(t, env.app, http.MethodGet, "/api/documents/not-a-uuid", nil, authHeaders(token))
	assertStatus(t, resp, http.StatusBadRequest)
	assertMessage(t, decodeJSONMap(t, resp), "invalid document id")

	resp = performRequest(t, env.app, http.MethodGet, "/api/documents/not-a-uuid/download", nil, authHeaders(token))
	assertStatus(t, resp, http.StatusBadRequest)
	assertMessage(t, decodeJSONMap(t, resp), "invalid document id")
}

func TestGetDocumentRecordsView(t *testing.T) {
	env := setupTestEnv(t)
	_, token := createTestUser(t, env, "Alice", models.UserRoleUser)

	doc := uploadDocument(t, env, token, "policy.pdf", "application/pdf", "policy", []byte("p"))
	docID, _ := doc["id"].(string)

	resp := performRequest(t, env.app, http.MethodGet, "/api/documents/"+docID, nil, authHeaders(token))
	assertStatus(t, resp, http.StatusOK)

	waitForLogs(t, env.db, models.ActionView, 1)
}

func TestCreateFromTemplateBuildsWordContent(t *testing.T) {
	env := setupTestEnv(t)
	_, token := createTestUser(t, env, "Alice", models.UserRoleUser)

	resp := performJSONRequest(t, env.app, http.MethodPost, "/api/documents/create",
		map[string]any{
			"documentType":  "letter",
			"title":         "Offer Letter",
			"fileType":      "word",
			"recipientName": "Jordan Mokoena",
		}, authHeaders(token))
	assertStatus(t, resp, http.StatusCreated)

	doc := decodeJSONMap(t, resp)
	code, _ := doc["documentCode"].(string)
	if !strings.HasPrefix(code, fmt.Sprintf("LETTER-%d-", time.Now().Year())) {
		t.Fatalf("unexpected document code %q", code)
	}
	if doc["isTemplate"] != true {
		t.Fatalf("expected template document, got %v", doc["isTemplate"])
	}
	if doc["filePath"] != models.TemplatePathPrefix+code {
		t.Fatalf("expected sentinel path, got %v", doc["filePath"])
	}
	if doc["fileSize"] != float64(0) {
		t.Fatalf("template documents carry no stored bytes, got size %v", doc["fileSize"])
	}

	content, _ := doc["content"].(map[string]any)
	if content["title"] != "Offer Letter" {
		t.Fatalf("expected generated title, got %v", content)
	}
	body, _ := content["body"].(string)
	if !strings.Contains(body, "Jordan Mokoena") {
		t.Fatalf("expected recipient in body, got %q", body)
	}

	waitForLogs(t, env.db, models.ActionCreateDocument, 1)
}

func TestCreateFromTemplateRejectsBadFileType(t *testing.T) {
	env := setupTestEnv(t)
	_, token := createTestUser(t, env, "Alice", models.UserRoleUser)

	resp := performJSONRequest(t, env.app, http.MethodPost, "/api/documents/create",
		map[string]any{"documentType": "memo", "title": "X", "fileType": "pdf"}, authHeaders(token))
	assertStatus(t, resp, http.StatusBadRequest)
}

func TestTemplateDownloadSynthesizesText(t *testing.T) {
	env := setupTestEnv(t)
	_, token := createTestUser(t, env, "Alice", models.UserRoleUser)

	resp := performJSONRequest(t, env.app, http.MethodPost, "/api/documents/create",
		map[string]any{"documentType": "memo", "title": "Staff Update", "fileType": "word"}, authHeaders(token))
	assertStatus(t, resp, http.StatusCreated)
	doc := decodeJSONMap(t, resp)
	docID, _ := doc["id"].(string)

	resp = performRequest(t, env.app, http.MethodGet, "/api/documents/"+docID+"/download", nil, authHeaders(token))
	assertStatus(t, resp, http.StatusOK)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed reading body: %v", err)
	}
	text := string(body)
	if !strings.Contains(text, "ZENITH TRUST") {
		t.Fatalf("expected company header in rendered text: %q", text)
	}
	if !strings.Contains(text, "Staff Update") {
		t.Fatalf("expected title in rendered text: %q", text)
	}
	if disposition := resp.Header.Get("Content-Disposition"); !strings.Contains(disposition, ".doc") {
		t.Fatalf("expected word extension on synthesized download, got %q", disposition)
	}
}

func TestDownloadPDFRendersDocument(t *testing.T) {
	env := setupTestEnv(t)
	_, token := createTestUser(t, env, "Alice", models.UserRoleUser)

	doc := uploadDocument(t, env, token, "report.pdf", "application/pdf", "report", []byte("r"))
	docID, _ := doc["id"].(string)

	resp := performRequest(t, env.app, http.MethodGet, "/api/documents/"+docID+"/download/pdf", nil, authHeaders(token))
	assertStatus(t, resp, http.StatusOK)
	if ct := resp.Header.Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("expected application/pdf, got %q", ct)
	}
	resp.Body.Close()

	waitForLogs(t, env.db, models.ActionDownloadPDF, 1)
}

func TestExportPDFRecordsDistinctAction(t *testing.T) {
	env := setupTestEnv(t)
	_, token := createTestUser(t, env, "Alice", models.UserRoleUser)

	doc := uploadDocument(t, env, token, "report.pdf", "application/pdf", "report", []byte("r"))
	docID, _ := doc["id"].(string)

	resp := performJSONRequest(t, env.app, http.MethodPost, "/api/documents/"+docID+"/export-pdf", nil, authHeaders(token))
	assertStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	waitForLogs(t, env.db, models.ActionExportPDF, 1)
}

func TestUpdateFilePreservesIdentity(t *testing.T) {
	env := setupTestEnv(t)
	_, token := createTestUser(t, env, "Alice", models.UserRoleUser)

	doc := uploadDocument(t, env, token, "v1.pdf", "application/pdf", "report", []byte("version one"))
	docID, _ := doc["id"].(string)
	originalCode, _ := doc["documentCode"].(string)
	originalPath, _ := doc["filePath"].(string)

	resp := performUpload(t, env.app, http.MethodPut, "/api/documents/"+docID+"/update",
		nil, "v2.pdf", "application/pdf", []byte("version two, longer"), authHeaders(token))
	assertStatus(t, resp, http.StatusOK)
	updated := decodeJSONMap(t, resp)

	if updated["id"] != docID {
		t.Fatalf("update must keep the document id")
	}
	if updated["documentCode"] != originalCode {
		t.Fatalf("update must keep the document code, got %v", updated["documentCode"])
	}
	if updated["category"] != "report" {
		t.Fatalf("category must survive a plain file update, got %v", updated["category"])
	}
	if updated["originalName"] != "v2.pdf" {
		t.Fatalf("expected swapped original name, got %v", updated["originalName"])
	}
	if updated["fileSize"] != float64(len("version two, longer")) {
		t.Fatalf("expected swapped file size, got %v", updated["fileSize"])
	}

	newPath, _ := updated["filePath"].(string)
	if newPath == originalPath {
		t.Fatalf("expected a fresh object name")
	}
	if env.store.has(originalPath) {
		t.Fatalf("old object should be deleted after update")
	}
	if !env.store.has(newPath) {
		t.Fatalf("new object missing from storage")
	}

	waitForLogs(t, env.db, models.ActionUpdate, 1)
}

func TestUpdateContentOnTemplate(t *testing.T) {
	env := setupTestEnv(t)
	_, token := createTestUser(t, env, "Alice", models.UserRoleUser)

	resp := performJSONRequest(t, env.app, http.MethodPost, "/api/documents/create",
		map[string]any{"documentType": "memo", "title": "Draft", "fileType": "word"}, authHeaders(token))
	assertStatus(t, resp, http.StatusCreated)
	doc := decodeJSONMap(t, resp)
	docID, _ := doc["id"].(string)

	resp = performJSONRequest(t, env.app, http.MethodPut, "/api/documents/"+docID+"/content",
		map[string]any{"content": map[string]any{"title": "Draft", "body": "Rewritten body."}}, authHeaders(token))
	assertStatus(t, resp, http.StatusOK)

	updated := decodeJSONMap(t, resp)
	content, _ := updated["content"].(map[string]any)
	if content["body"] != "Rewritten body." {
		t.Fatalf("expected updated body, got %v", content)
	}

	waitForLogs(t, env.db, models.ActionEditDocument, 1)
}

func TestDeleteRemovesRowSharesAndObject(t *testing.T) {
	env := setupTestEnv(t)
	alice, token := createTestUser(t, env, "Alice", models.UserRoleUser)
	bob, _ := createTestUser(t, env, "Bob", models.UserRoleUser)

	doc := uploadDocument(t, env, token, "doomed.pdf", "application/pdf", "memo", []byte("d"))
	docID, _ := doc["id"].(string)
	filePath, _ := doc["filePath"].(string)

	resp := performJSONRequest(t, env.app, http.MethodPost, "/api/documents/"+docID+"/share",
		map[string]string{"sharedWith": bob.ID.String(), "permission": "view"}, authHeaders(token))
	assertStatus(t, resp, http.StatusCreated)

	resp = performRequest(t, env.app, http.MethodDelete, "/api/documents/"+docID, nil, authHeaders(token))
	assertStatus(t, resp, http.StatusOK)

	var docCount, shareCount int64
	env.db.Model(&models.Document{}).Count(&docCount)
	env.db.Model(&models.DocumentShare{}).Count(&shareCount)
	if docCount != 0 || shareCount != 0 {
		t.Fatalf("expected document and shares gone, have %d docs %d shares", docCount, shareCount)
	}
	if env.store.has(filePath) {
		t.Fatalf("object should be deleted with the document")
	}

	logs := waitForLogs(t, env.db, models.ActionDelete, 1)
	if logs[0].UserID != alice.ID {
		t.Fatalf("delete log attributed to wrong user")
	}
}

func TestStatsAggregateCorpus(t *testing.T) {
	env := setupTestEnv(t)
	_, token := createTestUser(t, env, "Alice", models.UserRoleUser)

	uploadDocument(t, env, token, "a.pdf", "application/pdf", "memo", []byte("aaaa"))
	uploadDocument(t, env, token, "b.pdf", "application/pdf", "report", []byte("bb"))

	resp := performJSONRequest(t, env.app, http.MethodPost, "/api/documents/create",
		map[string]any{"documentType": "memo", "title": "T", "fileType": "word"}, authHeaders(token))
	assertStatus(t, resp, http.StatusCreated)

	resp = performRequest(t, env.app, http.MethodGet, "/api/documents/stats", nil, authHeaders(token))
	assertStatus(t, resp, http.StatusOK)
	stats := decodeJSONMap(t, resp)

	if stats["totalDocuments"] != float64(3) {
		t.Fatalf("expected 3 documents, got %v", stats["totalDocuments"])
	}
	if stats["totalSize"] != float64(6) {
		t.Fatalf("expected total size 6, got %v", stats["totalSize"])
	}
	if stats["templates"] != float64(1) {
		t.Fatalf("expected 1 template, got %v", stats["templates"])
	}

	byCategory, _ := stats["byCategory"].(map[string]any)
	if byCategory["memo"] != float64(2) {
		t.Fatalf("expected 2 memos, got %v", byCategory)
	}
}
