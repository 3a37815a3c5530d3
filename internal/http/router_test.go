package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"shuttle/internal/catalog"
	intconfig "shuttle/internal/config"
	"shuttle/internal/export"
	"shuttle/internal/http/handlers"
	"shuttle/internal/lock"
	"shuttle/internal/mirror"
	"shuttle/internal/notify"
	"shuttle/internal/repositories"
	"shuttle/internal/services"
	"shuttle/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const adminPassword = "marq-admin"

type testServer struct {
	engine *gin.Engine
	state  *repositories.MemoryStateStore
	store  *repositories.BookingStore
	tasks  *services.Tasks
	upload string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	state := repositories.NewMemoryStateStore()
	store := repositories.NewBookingStore(state, 0)
	require.NoError(t, store.Load(context.Background()))

	cat := catalog.Default()
	locker := lock.NewLocal()
	tasks := services.NewTasks(time.Second)
	syncSvc := services.NewSyncService(mirror.NewMemory(), store, cat, locker, tasks)
	capacity := services.CapacityService{Catalog: cat, Seats: store}
	admission := &services.AdmissionService{
		Catalog: cat, Store: store, Capacity: capacity, Locker: locker,
		Sync: syncSvc, Notifier: notify.Log{}, Tasks: tasks, FareRate: 35,
	}
	auth, err := services.NewAdminAuth(adminPassword, "", "router-test-secret")
	require.NoError(t, err)
	admin := &services.AdminService{
		Store: store, Catalog: cat, Admission: admission, Sync: syncSvc, Locker: locker, Auth: auth,
	}

	upload := t.TempDir()
	engine := NewRouter(intconfig.Env{}, &handlers.Handler{
		Catalog: cat, Capacity: capacity, Admission: admission, Admin: admin,
		Auth: auth, Bookings: store, UploadDir: upload,
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = tasks.Drain(ctx)
	})
	return &testServer{engine: engine, state: state, store: store, tasks: tasks, upload: upload}
}

func (s *testServer) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func (s *testServer) login(t *testing.T) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/admin/login", gin.H{"password": adminPassword}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out.Token
}

func tomorrow() string {
	return utils.FormatDate(time.Now().AddDate(0, 0, 1))
}

func bookingBody(tripID string, passengers int) gin.H {
	return gin.H{
		"bookingType":   "single",
		"direction":     "outbound",
		"tripId":        tripID,
		"travelDate":    tomorrow(),
		"passengers":    passengers,
		"fullName":      "Ravi Kumar",
		"phoneNumber":   "9845012345",
		"flatNumber":    "C-803",
		"paymentProof":  "upi-ref-1234",
		"termsAccepted": true,
	}
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealthAndRequestID(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/api/health", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = s.do(t, http.MethodGet, "/api/nope", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateBookingAndSlots(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/bookings", bookingBody("morning-1", 3), "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	out := decode(t, w)
	assert.Equal(t, "confirmed", out["state"])
	assert.Equal(t, float64(105), out["totalFare"])
	assert.Equal(t, "pending", out["syncStatus"])

	w = s.do(t, http.MethodGet, "/api/slots/morning-1/capacity?date="+tomorrow(), nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	snap := decode(t, w)
	assert.Equal(t, float64(3), snap["booked"])
	assert.Equal(t, float64(26), snap["available"])

	w = s.do(t, http.MethodGet, "/api/slots?direction=return&date="+tomorrow(), nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["slots"], 4)
}

func TestCreateBookingErrors(t *testing.T) {
	s := newTestServer(t)

	body := bookingBody("morning-1", 3)
	delete(body, "fullName")
	body["phoneNumber"] = "123"
	w := s.do(t, http.MethodPost, "/api/bookings", body, "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	out := decode(t, w)
	assert.Equal(t, "validation_error", out["code"])
	assert.ElementsMatch(t, []any{"fullName", "phoneNumber"}, out["fields"])

	for i := 0; i < 2; i++ {
		w = s.do(t, http.MethodPost, "/api/bookings", bookingBody("morning-4", 10), "")
		require.Equal(t, http.StatusCreated, w.Code)
	}
	w = s.do(t, http.MethodPost, "/api/bookings", bookingBody("morning-4", 10), "")
	require.Equal(t, http.StatusConflict, w.Code)
	out = decode(t, w)
	assert.Equal(t, "capacity_exceeded", out["code"])
	assert.Equal(t, "morning-4", out["slot_id"])
	assert.Equal(t, float64(9), out["available"])

	s.state.FailSave = assert.AnError
	w = s.do(t, http.MethodPost, "/api/bookings", bookingBody("morning-2", 1), "")
	require.Equal(t, http.StatusInsufficientStorage, w.Code)
	assert.Equal(t, "local_persistence_failure", decode(t, w)["code"])
}

func TestCreateBookingMultipartProof(t *testing.T) {
	s := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fields := map[string]string{
		"bookingType": "single", "direction": "return", "tripId": "evening-1",
		"travelDate": tomorrow(), "passengers": "2", "fullName": "Meera Iyer",
		"phoneNumber": "09845012345", "flatNumber": "A-101", "termsAccepted": "true",
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	fw, err := mw.CreateFormFile("paymentProof", "proof.png")
	require.NoError(t, err)
	_, err = fw.Write(append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/bookings", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	entries, err := os.ReadDir(s.upload)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ".png", filepath.Ext(entries[0].Name()))

	b := s.store.All()[0]
	assert.Equal(t, entries[0].Name(), b.Payment.ProofRef)
}

func TestMultipartRejectsUnsupportedProof(t *testing.T) {
	s := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("tripId", "evening-1"))
	fw, err := mw.CreateFormFile("paymentProof", "proof.txt")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("just some text"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/bookings", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []any{"paymentProof"}, decode(t, w)["fields"])
}

func TestFareQuote(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/api/fare?passengers=3&type=roundtrip", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	out := decode(t, w)
	assert.Equal(t, float64(105), out["perLeg"])
	assert.Equal(t, float64(210), out["total"])
	assert.Equal(t, "₹210", out["totalText"])
}

func TestTicketAndBookingLookup(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodPost, "/api/bookings", bookingBody("morning-3", 1), "")
	require.Equal(t, http.StatusCreated, w.Code)
	id := s.store.All()[0].ID

	w = s.do(t, http.MethodGet, "/api/bookings/"+id+"/ticket", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))

	w = s.do(t, http.MethodGet, "/api/bookings/"+id, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, []any{"pending", "synced"}, decode(t, w)["syncStatus"])

	w = s.do(t, http.MethodGet, "/api/bookings/MFS-UNKNOWN/ticket", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminRequiresToken(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/admin/stats", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = s.do(t, http.MethodGet, "/api/admin/stats", nil, "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = s.do(t, http.MethodPost, "/api/admin/login", gin.H{"password": "wrong"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "admin_auth_failure", decode(t, w)["code"])

	token := s.login(t)
	w = s.do(t, http.MethodGet, "/api/admin/stats", nil, token)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminExportAndClear(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t)

	w := s.do(t, http.MethodGet, "/api/admin/export", nil, token)
	assert.Equal(t, http.StatusNotFound, w.Code)

	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/bookings", bookingBody("morning-1", 2), "").Code)
	w = s.do(t, http.MethodGet, "/api/admin/export", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, export.ContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "shuttle_bookings_")

	w = s.do(t, http.MethodPost, "/api/admin/clear", gin.H{"password": "wrong", "confirmation": "DELETE ALL"}, token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 1, s.store.Len())

	w = s.do(t, http.MethodPost, "/api/admin/clear", gin.H{"password": adminPassword, "confirmation": "DELETE ALL"}, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, float64(1), decode(t, w)["cleared"])
	assert.Equal(t, 0, s.store.Len())
}

func TestAdminInsertAndCancel(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t)

	body := bookingBody("evening-4", 4)
	body["direction"] = "return"
	delete(body, "paymentProof")
	delete(body, "termsAccepted")
	w := s.do(t, http.MethodPost, "/api/admin/bookings", body, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := s.store.All()[0].ID

	w = s.do(t, http.MethodPost, "/api/admin/bookings/"+id+"/cancel", nil, token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 0, s.store.Booked("evening-4", tomorrow()))

	w = s.do(t, http.MethodPost, "/api/admin/bookings/"+id+"/cancel", nil, token)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodGet, "/api/admin/logs", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), decode(t, w)["count"])
}

func TestAdminReconcileAfterBooking(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t)

	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/bookings", bookingBody("morning-2", 1), "").Code)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	require.NoError(t, s.tasks.Drain(ctx))

	w := s.do(t, http.MethodGet, "/api/admin/reconcile", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	report := decode(t, w)
	assert.Equal(t, true, report["synchronized"])
	assert.Empty(t, report["counterDrift"])
	assert.Equal(t, false, report["statsDrift"])

	w = s.do(t, http.MethodPost, "/api/admin/force-sync", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, s.store.Len())
}
