package bootstrap

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"anoud-backend/internal/shared/auth"
	"anoud-backend/internal/shared/config"
)

func buildMemoryApp(t *testing.T) *App {
	t.Helper()
	gin.SetMode(gin.TestMode)
	app, err := Build(config.Config{
		Env:              "dev",
		ObjectStoreType:  "local",
		LocalStoreDir:    t.TempDir(),
		UploadTmpDir:     t.TempDir(),
		SubmitRatePerMin: 10,
		SuperadminEmail:  "root@anoud.sa",
		SuperadminName:   "Root",
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return app
}

func serve(app *App, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)
	return resp
}

func TestBuildWiresMemoryApp(t *testing.T) {
	app := buildMemoryApp(t)
	if app.DB != nil {
		t.Fatal("expected memory repositories without DATABASE_URL")
	}

	resp := serve(app, http.MethodGet, "/api/v1/health", "", "")
	if resp.Code != http.StatusOK || !strings.Contains(resp.Body.String(), `"database":"memory"`) {
		t.Fatalf("unexpected health %d: %s", resp.Code, resp.Body.String())
	}
	if resp := serve(app, http.MethodGet, "/api/v1/metrics", "", ""); resp.Code != http.StatusOK {
		t.Fatalf("metrics status %d", resp.Code)
	}
	if resp := serve(app, http.MethodGet, "/api/v1/jobs", "", ""); resp.Code != http.StatusOK {
		t.Fatalf("public jobs status %d", resp.Code)
	}
}

func TestBuildSeedsSuperadminAndGuardsRoutes(t *testing.T) {
	app := buildMemoryApp(t)

	root, err := app.UsersService.GetByEmail(t.Context(), "root@anoud.sa")
	if err != nil || root.Role != auth.RoleSuperadmin {
		t.Fatalf("superadmin not seeded: %+v %v", root, err)
	}
	superToken, err := auth.TokenFor(root.Admin())
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	adminToken, err := auth.TokenFor(auth.Admin{ID: "admin-1", Email: "a@anoud.sa", Role: auth.RoleAdmin})
	if err != nil {
		t.Fatalf("token: %v", err)
	}

	if resp := serve(app, http.MethodGet, "/api/v1/leads", "", ""); resp.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous leads expected 401, got %d", resp.Code)
	}
	if resp := serve(app, http.MethodGet, "/api/v1/leads", adminToken, ""); resp.Code != http.StatusOK {
		t.Fatalf("admin leads expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if resp := serve(app, http.MethodGet, "/api/v1/users", adminToken, ""); resp.Code != http.StatusForbidden {
		t.Fatalf("admin users expected 403, got %d", resp.Code)
	}
	if resp := serve(app, http.MethodGet, "/api/v1/users", superToken, ""); resp.Code != http.StatusOK {
		t.Fatalf("superadmin users expected 200, got %d", resp.Code)
	}

	job := serve(app, http.MethodPost, "/api/v1/jobs", adminToken, `{"title":"Analyst","company":"Anoud","description":"Data"}`)
	if job.Code != http.StatusCreated {
		t.Fatalf("create job expected 201, got %d: %s", job.Code, job.Body.String())
	}
}
