package cvimport

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"anoud-backend/internal/shared/server/middleware"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc, _ := newTestService(t)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		middleware.SetAdmin(c, superadmin)
		c.Next()
	})
	NewHandler(svc).RegisterSuperadminRoutes(r.Group("/api/v1"))
	return r
}

func uploadRequest(t *testing.T, fileName string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	if _, err := fw.Write(data); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cv-import/parse", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestParseRoute(t *testing.T) {
	r := newTestRouter(t)
	data := buildZip(t, zipEntry{name: "Omar_CV.txt", body: "omar@example.com\nSkills: Excel"})

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, uploadRequest(t, "batch.zip", data))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var m Manifest
	if err := json.Unmarshal(resp.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if m.Succeeded != 1 || m.Files[0].Profile.Name != "Omar" {
		t.Fatalf("unexpected manifest %+v", m)
	}

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, uploadRequest(t, "batch.rar", data))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-zip, got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, uploadRequest(t, "batch.zip", []byte("garbage")))
	if resp.Code != http.StatusBadRequest || !strings.Contains(resp.Body.String(), "invalid_archive") {
		t.Fatalf("expected invalid_archive, got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestCreateUsersRoute(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cv-import/create-users",
		strings.NewReader(`{"profiles":[{"name":"Lina","email":"lina@example.com","skills":["SQL"]}]}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), `"email":"lina@example.com"`) {
		t.Fatalf("unexpected response %d: %s", resp.Code, resp.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/cv-import/create-users", strings.NewReader(`{"profiles":[]}`))
	req.Header.Set("Content-Type", "application/json")
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty profiles, got %d", resp.Code)
	}
}
