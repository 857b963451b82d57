package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	auditrepo "github.com/smallbiznis/microgrid/internal/audit/repository"
	auditservice "github.com/smallbiznis/microgrid/internal/audit/service"
	authlocal "github.com/smallbiznis/microgrid/internal/auth/local"
	authrepo "github.com/smallbiznis/microgrid/internal/auth/repository"
	authservice "github.com/smallbiznis/microgrid/internal/auth/service"
	"github.com/smallbiznis/microgrid/internal/auth/session"
	"github.com/smallbiznis/microgrid/internal/billing"
	"github.com/smallbiznis/microgrid/internal/bulkimport"
	"github.com/smallbiznis/microgrid/internal/clock"
	"github.com/smallbiznis/microgrid/internal/config"
	"github.com/smallbiznis/microgrid/internal/export"
	hhrepo "github.com/smallbiznis/microgrid/internal/household/repository"
	hhservice "github.com/smallbiznis/microgrid/internal/household/service"
	insrepo "github.com/smallbiznis/microgrid/internal/insurance/repository"
	insservice "github.com/smallbiznis/microgrid/internal/insurance/service"
	"github.com/smallbiznis/microgrid/internal/migration"
	"github.com/smallbiznis/microgrid/internal/observability"
	"github.com/smallbiznis/microgrid/internal/seed"
	"github.com/smallbiznis/microgrid/internal/testutil"
	"github.com/smallbiznis/microgrid/internal/upload"
	vecrepo "github.com/smallbiznis/microgrid/internal/vec/repository"
	vecservice "github.com/smallbiznis/microgrid/internal/vec/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testServer struct {
	t      *testing.T
	engine *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn := testutil.OpenDB(t, migration.Models()...)
	authz := testutil.Authz(t, conn)
	locker := testutil.Locker()
	clk := clock.SystemClock{}
	log := zap.NewNop()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	cfg := config.Config{SessionTTL: time.Hour, UploadDir: t.TempDir()}

	audit := auditservice.NewService(auditservice.Params{DB: conn, Log: log, GenID: node, Clock: clk, Repo: auditrepo.Provide()})
	users, sessions := authrepo.New(conn)
	authsvc := authservice.New(authservice.Params{
		Log: log, Cfg: cfg, Repo: users, SessionRepo: sessions, GenID: node, Clock: clk, Authz: authz, Audit: audit,
	})
	households := hhrepo.Provide()
	hhsvc := hhservice.New(hhservice.Params{
		DB: conn, Log: log, Clock: clk, Repo: households, Locker: locker, Authz: authz,
		Calculator: billing.NewCalculator(nil), Audit: audit,
	})
	vecsvc := vecservice.New(vecservice.Params{
		DB: conn, Log: log, Clock: clk, Repo: vecrepo.Provide(), Households: households,
		Locker: locker, Authz: authz, Audit: audit,
	})
	inssvc := insservice.New(insservice.Params{
		DB: conn, Log: log, GenID: node, Clock: clk, Repo: insrepo.Provide(), Locker: locker, Authz: authz, Audit: audit,
	})
	require.NoError(t, seed.Seeder{Auth: authsvc, Households: hhsvc, VECs: vecsvc, Log: log}.EnsureDemoData(context.Background()))

	store, err := upload.NewStore(upload.Params{Cfg: cfg, Clock: clk, Log: log})
	require.NoError(t, err)
	manager := session.NewManager(cfg, clk)

	engine := NewEngine(observability.Config{}, nil)
	authlocal.RegisterRoutes(engine, authlocal.NewHandler(authsvc, manager, log))
	NewServer(ServerParams{
		Gin:          engine,
		Cfg:          cfg,
		Log:          log,
		Clock:        clk,
		Authsvc:      authsvc,
		Sessions:     manager,
		AuthzSvc:     authz,
		AuditSvc:     audit,
		HouseholdSvc: hhsvc,
		VECSvc:       vecsvc,
		InsuranceSvc: inssvc,
		Importer:     bulkimport.NewImporter(bulkimport.Params{Households: hhsvc, VECs: vecsvc, Log: log}),
		Exporter:     export.New(export.Params{Log: log, Clock: clk, Authz: authz, Households: hhsvc, VECs: vecsvc, Claims: inssvc}),
		Uploads:      store,
	})

	return &testServer{t: t, engine: engine}
}

func (s *testServer) do(req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) json(method, path, token string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body == nil {
		reader = bytes.NewReader(nil)
	} else {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	return s.do(req, token)
}

// multipartForm posts field=doc plus one file per entry in files.
func (s *testServer) multipartForm(path, token, field string, doc any, files map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	raw, err := json.Marshal(doc)
	require.NoError(s.t, err)
	require.NoError(s.t, w.WriteField(field, string(raw)))
	for name, filename := range files {
		part, err := w.CreateFormFile(name, filename)
		require.NoError(s.t, err)
		_, err = part.Write([]byte("image-bytes"))
		require.NoError(s.t, err)
	}
	require.NoError(s.t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return s.do(req, token)
}

func (s *testServer) login(username, password string) string {
	rec := s.json(http.MethodPost, "/api/login", "", map[string]string{"username": username, "password": password})
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.DefaultCookieName {
			return c.Value
		}
	}
	s.t.Fatal("no session cookie")
	return ""
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestLoginAndMe(t *testing.T) {
	s := newTestServer(t)

	rec := s.json(http.MethodPost, "/api/login", "", map[string]string{"username": "saraipani_op", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Invalid username or password", body["error"])

	rec = s.json(http.MethodPost, "/api/login", "", map[string]string{"username": "saraipani_op", "password": "password123"})
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "operator", body["role"])
	assert.Equal(t, "Saraipani", body["hamlet"])

	token := s.login("saraipani_spoc", "spocpass456")
	rec = s.json(http.MethodGet, "/api/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "spoc", decode(t, rec)["role"])

	rec = s.json(http.MethodPost, "/api/logout", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.json(http.MethodGet, "/api/hh-list", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequiresSession(t *testing.T) {
	s := newTestServer(t)

	rec := s.json(http.MethodGet, "/api/hh-list", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "unauthorized", body["type"])

	rec = s.json(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHouseholdListShapes(t *testing.T) {
	s := newTestServer(t)
	token := s.login("saraipani_op", "password123")

	rec := s.json(http.MethodGet, "/api/hh-list?hamlet=saraipani", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var summaries []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summaries))
	require.Len(t, summaries, 4)
	assert.Len(t, summaries[0], 2)
	assert.Contains(t, summaries[0], "customer_id")
	assert.Contains(t, summaries[0], "hh_name")

	rec = s.json(http.MethodGet, "/api/hh-list?all=true", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var full []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &full))
	require.Len(t, full, 4)
	assert.Contains(t, full[0], "submissions")
	assert.Contains(t, full[0], "meter_num")
}

func TestHouseholdSubmitFlow(t *testing.T) {
	s := newTestServer(t)
	op := s.login("saraipani_op", "password123")
	path := "/api/hh/Saraipani%2F39"

	rec := s.multipartForm(path+"/submit", op, "submission", map[string]any{
		"read_date":   "2024-01-10",
		"meter_read":  "150",
		"prev_read":   "100",
		"amount_paid": 200,
	}, map[string]string{"meter_image": "meter.jpg"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sub := decode(t, rec)["submission"].(map[string]any)
	assert.Equal(t, "600.00", sub["total_due"])
	assert.Equal(t, "400.00", sub["amount_balance"])
	assert.True(t, strings.HasPrefix(sub["meter_image"].(string), "/Uploads/meter_image-"))

	rec = s.multipartForm(path+"/submit", op, "submission", map[string]any{
		"read_date":  "2024-01-25",
		"meter_read": "170",
	}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "A submission for this month already exists", body["error"])
	assert.Equal(t, "conflict", body["type"])

	rec = s.multipartForm(path+"/submit", op, "submission", map[string]any{
		"read_date":  "2024-02-10",
		"meter_read": "170",
		"prev_read":  "99",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "prev_read is carried forward from the previous submission and cannot be changed", decode(t, rec)["error"])

	rec = s.json(http.MethodGet, path+"/form", op, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	form := decode(t, rec)
	assert.Equal(t, "150", form["prev_read"])
	assert.Equal(t, "400.00", form["past_due"])
	assert.Equal(t, true, form["locked"])

	rec = s.json(http.MethodPost, path+"/edit", op, map[string]any{"subIndex": 0, "read_date": "2024-01-10", "meter_read": "160"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.json(http.MethodPost, path+"/remove", op, map[string]any{"subIndex": 0})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.json(http.MethodGet, path, op, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["submissions"], 1)

	rec = s.json(http.MethodGet, path+"/receipt/0", op, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
}

func TestHouseholdDrafts(t *testing.T) {
	s := newTestServer(t)
	op := s.login("saraipani_op", "password123")

	rec := s.multipartForm("/api/hh/3/draft", op, "draft", map[string]any{"meter_read": "40"}, map[string]string{"issue_img": "issue.png"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.multipartForm("/api/hh/3/submit?draft=0", op, "submission", map[string]any{
		"read_date": "2024-03-01", "meter_read": "40", "prev_read": "0",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sub := decode(t, rec)["submission"].(map[string]any)
	assert.True(t, strings.HasPrefix(sub["issue_img"].(string), "/Uploads/issue_img-"))

	rec = s.json(http.MethodDelete, "/api/hh/3/drafts/0", op, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Draft not found", decode(t, rec)["error"])

	rec = s.multipartForm("/api/hh/3/draft", op, "draft", map[string]any{"meter_read": "60"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.json(http.MethodDelete, "/api/hh/3/drafts/0", op, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Draft deleted successfully", body["message"])
}

func TestSPOCManagement(t *testing.T) {
	s := newTestServer(t)
	spoc := s.login("saraipani_spoc", "spocpass456")
	op := s.login("saraipani_op", "password123")

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "hh.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte("customer_id,hh_name,hamlet,meter_num\n101,New One,Tetar,M1\n3,Duplicate,Saraipani,M9\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/hh/bulk", bytes.NewReader(buf.Bytes()))
	req.Header.Set("Content-Type", w.FormDataContentType())

	rec := s.do(req, op)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/hh/bulk", bytes.NewReader(buf.Bytes()))
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec = s.do(req, spoc)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(2), body["count"])

	rec = s.json(http.MethodGet, "/api/stats/hh", op, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(5), decode(t, rec)["count"])

	rec = s.json(http.MethodPost, "/api/hh/delete", spoc, map[string]string{"id": "101"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.json(http.MethodPost, "/api/users/add", spoc, map[string]string{"username": "tetar_op", "password": "secret1", "hamlet": "Tetar"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = s.json(http.MethodPost, "/api/users/add", spoc, map[string]string{"username": "tetar_op", "password": "secret1", "hamlet": "Tetar"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec = s.json(http.MethodGet, "/api/users", op, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = s.json(http.MethodPost, "/api/users/remove", spoc, map[string]string{"username": "tetar_op"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.json(http.MethodGet, "/api/export/hh", spoc, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rec.Body.String(), "Customer ID")

	rec = s.json(http.MethodGet, "/api/audit-logs?action=household.import", spoc, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode(t, rec)["audit_logs"])
	rec = s.json(http.MethodGet, "/api/audit-logs", op, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestInsuranceRoutes(t *testing.T) {
	s := newTestServer(t)
	op := s.login("saraipani_op", "password123")
	committee := s.login("insurance_committee_user", "icpassword789")

	rec := s.multipartForm("/api/insurance/Saraipani/submit", op, "submission", map[string]any{"claiming_for": "Battery"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Claim reference number is required", decode(t, rec)["error"])

	rec = s.multipartForm("/api/insurance/Saraipani/submit", op, "submission", map[string]any{
		"claim_ref_number": "CLM-9", "claim_date": "2024-05-01", "claiming_for": "Battery",
	}, map[string]string{"claim_application_photo": "form.jpg"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.multipartForm("/api/insurance/Saraipani/submit", op, "submission", map[string]any{"claim_ref_number": "CLM-9"}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.json(http.MethodGet, "/api/insurance/all/submissions", op, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.json(http.MethodGet, "/api/insurance/all/submissions", committee, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var rows []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "MG-SARAIPANI", rows[0]["microgrid_id"])
}

func TestVECRoutes(t *testing.T) {
	s := newTestServer(t)
	op := s.login("saraipani_op", "password123")

	rec := s.multipartForm("/api/vec/saraipani/draft", op, "draft", map[string]any{"expenditure_for_the_Month": "10"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Please enter a submission date before saving draft.", decode(t, rec)["error"])

	rec = s.multipartForm("/api/vec/saraipani/submit", op, "submission", map[string]any{
		"submission_date": "2024-01-31", "expenditure_for_the_Month": "0",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.json(http.MethodGet, "/api/stats/vec", op, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decode(t, rec)["count"])

	rec = s.json(http.MethodGet, "/api/vec/Elsewhere", op, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
