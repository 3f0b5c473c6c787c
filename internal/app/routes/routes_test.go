package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	appauth "github.com/yigit/thesisflow/internal/app/auth"
	"github.com/yigit/thesisflow/internal/app/controllers"
	"github.com/yigit/thesisflow/internal/app/honorarium"
	"github.com/yigit/thesisflow/internal/app/models"
	"github.com/yigit/thesisflow/internal/app/repositories/memory"
	"github.com/yigit/thesisflow/internal/app/services"
	"github.com/yigit/thesisflow/internal/middleware"
	pkgauth "github.com/yigit/thesisflow/internal/pkg/auth"
	"github.com/yigit/thesisflow/internal/pkg/filestorage"
	"github.com/yigit/thesisflow/internal/pkg/notify"
	"github.com/yigit/thesisflow/internal/pkg/websocket"
)

type apiEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code  string `json:"code"`
		Field string `json:"field"`
	} `json:"error"`
}

type testAPI struct {
	t      *testing.T
	router *gin.Engine
	jwt    *pkgauth.JWTService
	events *notify.Recorder
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	store := memory.New()
	nop := zerolog.Nop()
	events := &notify.Recorder{}

	directory := services.NewDirectoryService(store.Faculty())
	for _, name := range []string{"Dr. Jose Rizal", "Dr. Andres Bonifacio", "Dr. Emilio Aguinaldo", "Dr. Apolinario Mabini"} {
		if err := directory.Upsert(ctx, &models.Faculty{FullName: name, Active: true}); err != nil {
			t.Fatalf("seed %s: %v", name, err)
		}
	}

	opts := services.WorkflowOptions{Location: time.UTC}
	requests := services.NewDefenseRequestService(store, directory, events, opts, nop)
	sync := services.NewSyncService(store, honorarium.NewTable(nil), events, opts, nop)
	verifications := services.NewVerificationService(store, sync, opts, nop)
	sweeper := services.NewSweeperService(store, requests, opts, nop)

	storage, err := filestorage.NewLocalStorage(t.TempDir(), filestorage.DefaultMaxSize)
	if err != nil {
		t.Fatalf("storage: %v", err)
	}
	jwtService := pkgauth.NewJWTService(pkgauth.JWTConfig{SecretKey: "routes-test", AccessTokenExp: time.Hour, TokenIssuer: "thesisflow"})
	authz := appauth.NewAuthorizationService(requests)

	router := gin.New()
	SetupRouter(router, Controllers{
		DefenseRequests: controllers.NewDefenseRequestController(requests, authz),
		Verifications:   controllers.NewVerificationController(verifications, storage, authz),
		Jobs:            controllers.NewJobController(sweeper, sync, authz),
		Faculty:         controllers.NewFacultyController(directory, authz),
	}, middleware.NewAuthMiddleware(jwtService), websocket.NewHandler(websocket.NewHub(nop), authz, nop))

	return &testAPI{t: t, router: router, jwt: jwtService, events: events}
}

func (a *testAPI) token(actor, name string, role models.RoleType) string {
	a.t.Helper()
	token, _, err := a.jwt.GenerateToken(actor, name, []string{string(role)})
	if err != nil {
		a.t.Fatalf("token: %v", err)
	}
	return token
}

// do sends body as JSON and decodes the envelope of the response.
func (a *testAPI) do(method, path, token string, body interface{}) (int, apiEnvelope) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			a.t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	var env apiEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		a.t.Fatalf("%s %s: decode %q: %v", method, path, rec.Body.String(), err)
	}
	return rec.Code, env
}

func (a *testAPI) request(method, path, token string, body interface{}, wantStatus int) *models.DefenseRequest {
	a.t.Helper()
	status, env := a.do(method, path, token, body)
	if status != wantStatus {
		a.t.Fatalf("%s %s = %d (%+v), want %d", method, path, status, env.Error, wantStatus)
	}
	var out models.DefenseRequest
	if err := json.Unmarshal(env.Data, &out); err != nil {
		a.t.Fatalf("decode request: %v", err)
	}
	return &out
}

func submitBody(studentID, title string) gin.H {
	return gin.H{
		"studentId":   studentID,
		"studentName": "Maria Santos",
		"program":     "Master of Science in Computer Science",
		"thesisTitle": title,
		"defenseType": "final",
		"adviserName": "Dr. Jose Rizal",
	}
}

func TestDefenseRequestLifecycleOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	student := api.token("2021-00123", "Maria Santos", models.RoleStudent)
	adviser := api.token("jrizal", "Dr. Jose Rizal", models.RoleAdviser)
	coordinator := api.token("coord", "Coordinator", models.RoleCoordinator)
	day := time.Now().UTC().AddDate(0, 0, 7).Format(models.DateLayout)

	walkToPanels := func(studentToken, studentID, title string) int64 {
		req := api.request(http.MethodPost, "/api/v1/defense-requests", studentToken, submitBody(studentID, title), http.StatusCreated)
		if req.Status != models.StatusSubmitted {
			t.Fatalf("status after submit = %s", req.Status)
		}
		base := "/api/v1/defense-requests/" + itoa(req.ID)
		api.request(http.MethodPost, base+"/adviser-decision", adviser, gin.H{"approve": true}, http.StatusOK)
		api.request(http.MethodPost, base+"/coordinator-decision", coordinator, gin.H{"approve": true}, http.StatusOK)
		out := api.request(http.MethodPut, base+"/panels", coordinator, gin.H{
			"chairperson": gin.H{"name": "Dr. Andres Bonifacio"},
			"panelist1":   gin.H{"name": "Dr. Emilio Aguinaldo"},
		}, http.StatusOK)
		if out.Status != models.StatusPanelsAssigned {
			t.Fatalf("status after panels = %s", out.Status)
		}
		return req.ID
	}

	first := walkToPanels(student, "2021-00123", "Graph Partitioning")
	slot := gin.H{"date": day, "startTime": "09:00", "endTime": "11:00", "mode": "face-to-face", "venue": "Room 301"}
	scheduled := api.request(http.MethodPut, "/api/v1/defense-requests/"+itoa(first)+"/schedule", coordinator, slot, http.StatusOK)
	if scheduled.Status != models.StatusScheduled || scheduled.Schedule == nil {
		t.Fatalf("scheduled = %+v", scheduled)
	}

	// Same committee and venue, overlapping slot
	other := api.token("2021-00456", "Jose Cruz", models.RoleStudent)
	second := walkToPanels(other, "2021-00456", "Sparse Solvers")
	overlap := gin.H{"date": day, "startTime": "10:00", "endTime": "12:00", "mode": "face-to-face", "venue": "Room 301"}
	status, env := api.do(http.MethodPut, "/api/v1/defense-requests/"+itoa(second)+"/schedule", coordinator, overlap)
	if status != http.StatusConflict || env.Error == nil || env.Error.Code != "SCH_001" {
		t.Fatalf("overlap = %d %+v", status, env.Error)
	}

	bad := gin.H{"date": day, "startTime": "9am", "endTime": "11:00", "mode": "face-to-face", "venue": "Room 302"}
	status, env = api.do(http.MethodPut, "/api/v1/defense-requests/"+itoa(second)+"/schedule", coordinator, bad)
	if status != http.StatusBadRequest || env.Error == nil || env.Error.Code != "VAL_001" {
		t.Fatalf("bad clock = %d %+v", status, env.Error)
	}

	// Students only see their own requests
	if status, _ := api.do(http.MethodGet, "/api/v1/defense-requests/"+itoa(first), other, nil); status != http.StatusForbidden {
		t.Fatalf("foreign read = %d, want 403", status)
	}
	got := api.request(http.MethodGet, "/api/v1/defense-requests/"+itoa(first), student, nil, http.StatusOK)
	if len(got.History) == 0 {
		t.Fatalf("history missing from detail view")
	}

	completed := api.request(http.MethodPost, "/api/v1/defense-requests/"+itoa(first)+"/complete", coordinator, nil, http.StatusOK)
	if completed.Status != models.StatusCompleted {
		t.Fatalf("status after complete = %s", completed.Status)
	}
	status, env = api.do(http.MethodPost, "/api/v1/defense-requests/"+itoa(first)+"/complete", coordinator, nil)
	if status != http.StatusConflict || env.Error.Code != "WFL_001" {
		t.Fatalf("second complete = %d %+v", status, env.Error)
	}

	if len(api.events.Events()) == 0 {
		t.Fatalf("no domain events published")
	}
}

func TestAuthenticationAndRoleGates(t *testing.T) {
	api := newTestAPI(t)
	student := api.token("2021-00123", "Maria Santos", models.RoleStudent)

	if status, _ := api.do(http.MethodGet, "/api/v1/health", "", nil); status != http.StatusOK {
		t.Fatalf("health = %d", status)
	}
	if status, _ := api.do(http.MethodGet, "/api/v1/defense-requests", "", nil); status != http.StatusUnauthorized {
		t.Fatalf("no token = %d, want 401", status)
	}
	if status, _ := api.do(http.MethodGet, "/api/v1/defense-requests", "not.a.token", nil); status != http.StatusUnauthorized {
		t.Fatalf("garbage token = %d, want 401", status)
	}
	if status, _ := api.do(http.MethodPost, "/api/v1/jobs/sweep", student, gin.H{"dryRun": true}); status != http.StatusForbidden {
		t.Fatalf("student sweep = %d, want 403", status)
	}
	if status, _ := api.do(http.MethodPost, "/api/v1/defense-requests", student, submitBody("2021-99999", "Not mine")); status != http.StatusForbidden {
		t.Fatalf("filing for another student = %d, want 403", status)
	}
	if status, _ := api.do(http.MethodPut, "/api/v1/faculty", student, gin.H{"fullName": "Dr. New Member"}); status != http.StatusForbidden {
		t.Fatalf("student directory write = %d, want 403", status)
	}

	system := api.token("system", "Scheduler", models.RoleSystem)
	status, env := api.do(http.MethodPost, "/api/v1/jobs/sweep", system, gin.H{"dryRun": true})
	if status != http.StatusOK || !env.Success {
		t.Fatalf("system sweep = %d %+v", status, env.Error)
	}

	coordinator := api.token("coord", "Coordinator", models.RoleCoordinator)
	if status, env := api.do(http.MethodPut, "/api/v1/faculty", coordinator, gin.H{"fullName": "Dr. New Member", "title": "Lecturer"}); status != http.StatusOK {
		t.Fatalf("directory upsert = %d %+v", status, env.Error)
	}
	if status, _ := api.do(http.MethodGet, "/api/v1/defense-requests/abc", coordinator, nil); status != http.StatusBadRequest {
		t.Fatalf("bad id = %d, want 400", status)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
