package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aulaiot/attendance-backend/internal/domain/attendance"
	"github.com/aulaiot/attendance-backend/internal/domain/auth"
	"github.com/aulaiot/attendance-backend/internal/domain/classroom"
	"github.com/aulaiot/attendance-backend/internal/domain/person"
	"github.com/aulaiot/attendance-backend/internal/handler/http/response"
	"github.com/aulaiot/attendance-backend/internal/pkg/jwt"
	"github.com/aulaiot/attendance-backend/internal/pkg/metrics"
	"github.com/aulaiot/attendance-backend/internal/pkg/qrtoken"
	"github.com/aulaiot/attendance-backend/internal/pkg/sse"
	"github.com/aulaiot/attendance-backend/internal/repository/sqlite"
	attendanceService "github.com/aulaiot/attendance-backend/internal/service/attendance"
	authService "github.com/aulaiot/attendance-backend/internal/service/auth"
	classroomService "github.com/aulaiot/attendance-backend/internal/service/classroom"
	"github.com/aulaiot/attendance-backend/internal/service/feed"
	personService "github.com/aulaiot/attendance-backend/internal/service/person"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	handlerTestSecret   = "test-secret-key-for-jwt"
	handlerTestPassword = "password123"
)

type envelope struct {
	Success bool                  `json:"success"`
	Message string                `json:"message"`
	Data    json.RawMessage       `json:"data"`
	Error   *response.ErrorDetail `json:"error"`
	Meta    *response.Meta        `json:"meta"`
}

type testServer struct {
	t      *testing.T
	router http.Handler
	store  *sqlite.Store
	now    time.Time

	room, other           classroom.Classroom
	teacher, otherTeacher person.Person
	alice, bob            person.Person
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "attendance.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ledger := sqlite.NewLedgerRepository(store)
	persons := sqlite.NewPersonRepository(store)
	classrooms := sqlite.NewClassroomRepository(store)

	ts := &testServer{t: t, store: store, now: time.Date(2024, time.March, 4, 8, 0, 0, 0, time.UTC)}
	clock := func() time.Time { return ts.now }

	scanFeed := feed.NewFeed(sse.NewHub(8), time.Hour)
	registry := attendanceService.NewWindowRegistry()
	attendanceSvc := attendanceService.NewAttendanceService(store, ledger, persons, classrooms, registry, scanFeed, attendanceService.Config{
		WindowDuration: 30 * time.Minute,
		TardinessGrace: 2 * time.Minute,
		Now:            clock,
	})
	jwtService := jwt.NewJWTService(handlerTestSecret, "1h")

	classroomHandler := NewClassroomHandler(classroomService.NewClassroomService(classrooms), attendanceSvc, scanFeed)
	classroomHandler.(*classroomHandlerImpl).now = clock

	scanMetrics := metrics.New(registry.Len)
	ts.router = NewRouter(RouterConfig{
		Env:            "test",
		Version:        "test",
		AllowedOrigins: []string{"*"},
		LogLevel:       slog.LevelError,
	}, jwtService, Handlers{
		Auth:       NewAuthHandler(authService.NewAuthService(persons, jwtService)),
		Attendance: NewAttendanceHandler(attendanceSvc, scanMetrics),
		Classroom:  classroomHandler,
		Device:     NewDeviceHandler(scanFeed),
		Person:     NewPersonHandler(personService.NewPersonService(persons, classrooms)),
		Status:     NewStatusHandler(store, "test"),
		Metrics:    scanMetrics.Handler(),
	})

	ctx := context.Background()
	ts.room, err = classrooms.Create(ctx, classroom.Classroom{Name: "A-101", Building: 1, DeviceID: "esp32-a"})
	require.NoError(t, err)
	ts.other, err = classrooms.Create(ctx, classroom.Classroom{Name: "B-202", Building: 2, DeviceID: "esp32-b"})
	require.NoError(t, err)

	hash, err := authService.HashPassword(handlerTestPassword)
	require.NoError(t, err)
	create := func(p person.Person) person.Person {
		created, err := persons.Create(ctx, p)
		require.NoError(t, err)
		return created
	}
	email := func(s string) *string { return &s }

	create(person.Person{Identity: "1-1-1", Name: "Admin", Role: person.RoleAdministrator, Email: email("admin@school.edu"), PasswordHash: &hash, Active: true})
	ts.teacher = create(person.Person{Identity: "4-100-200", Name: "Prof. Ruiz", Role: person.RoleTeacher, ClassroomID: &ts.room.ID, Email: email("ruiz@school.edu"), PasswordHash: &hash, Active: true})
	ts.otherTeacher = create(person.Person{Identity: "4-100-300", Name: "Prof. Soto", Role: person.RoleTeacher, ClassroomID: &ts.other.ID, Email: email("soto@school.edu"), PasswordHash: &hash, Active: true})
	ts.alice = create(person.Person{Identity: "8-1-101", Name: "Alice", Role: person.RoleStudent, ClassroomID: &ts.room.ID, Active: true})
	ts.bob = create(person.Person{Identity: "8-1-102", Name: "Bob", Role: person.RoleStudent, ClassroomID: &ts.room.ID, Active: true})

	return ts
}

func (ts *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	ts.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(ts.t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) login(email string) string {
	ts.t.Helper()
	rec := ts.do(http.MethodPost, "/api/v1/auth/login", "", auth.LoginRequest{Email: email, Password: handlerTestPassword})
	require.Equal(ts.t, http.StatusOK, rec.Code, rec.Body.String())

	var token auth.TokenResponse
	decodeData(ts.t, rec, &token)
	return token.AccessToken
}

func (ts *testServer) scan(p person.Person, deviceID string) *httptest.ResponseRecorder {
	ts.t.Helper()
	req := attendance.ScanRequest{Payload: qrtoken.Encode(p.Identity, p.Name)}
	if deviceID != "" {
		req.DeviceID = &deviceID
	}
	return ts.do(http.MethodPost, "/api/v1/scans", "", req)
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, v any) envelope {
	t.Helper()
	env := decodeEnvelope(t, rec)
	require.NoError(t, json.Unmarshal(env.Data, v))
	return env
}

func TestScanLifecycle(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.scan(ts.alice, "esp32-a")
	assert.Equal(t, http.StatusForbidden, rec.Code, "no window before the teacher arrives")

	rec = ts.scan(ts.teacher, "esp32-a")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var opened attendance.ScanResult
	env := decodeData(t, rec, &opened)
	assert.Equal(t, "Session opened", env.Message)
	assert.Equal(t, attendance.OutcomeOK, opened.Outcome)
	require.NotNil(t, opened.Window)
	assert.True(t, opened.Window.Active)

	rec = ts.do(http.MethodGet, "/api/v1/devices/esp32-a/feedback", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var fb feed.DeviceFeedback
	decodeData(t, rec, &fb)
	assert.Equal(t, attendance.OutcomeOK, fb.Outcome)

	rec = ts.do(http.MethodGet, "/api/v1/devices/esp32-a/feedback", "", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code, "feedback is consumed by the first poll")

	ts.now = ts.now.Add(time.Minute)
	rec = ts.scan(ts.alice, "esp32-a")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var entry attendance.ScanResult
	decodeData(t, rec, &entry)
	assert.Equal(t, string(attendance.StatusOnTime), entry.Record.Status)
	assert.Equal(t, "2024-03-04", entry.Record.Date)
	assert.Equal(t, "08:01:00", entry.Record.Time)

	rec = ts.scan(ts.alice, "esp32-a")
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec = ts.do(http.MethodGet, "/api/v1/devices/esp32-a/feedback", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeData(t, rec, &fb)
	assert.Equal(t, attendance.OutcomeWarning, fb.Outcome)

	rec = ts.do(http.MethodPost, "/api/v1/scans", "", attendance.ScanRequest{Payload: "%%% not a badge %%%"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.scan(person.Person{Identity: "9-9-9", Name: "Stranger"}, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.scan(ts.bob, "esp32-unknown")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(http.MethodPost, "/api/v1/scans", "", map[string]string{"payload": " "})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	ts.now = ts.now.Add(20 * time.Minute)
	teacherToken := ts.login("ruiz@school.edu")
	rec = ts.do(http.MethodPost, "/api/v1/classrooms/"+ts.room.ID+"/close", teacherToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var closed attendance.ScanResult
	decodeData(t, rec, &closed)
	assert.Equal(t, string(attendance.StatusCompleted), closed.Record.Status)
	assert.Equal(t, 1, closed.Reconciled, "bob never scanned")

	rec = ts.do(http.MethodPost, "/api/v1/classrooms/"+ts.room.ID+"/close", teacherToken, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	adminToken := ts.login("admin@school.edu")
	rec = ts.do(http.MethodGet, "/api/v1/records?date=2024-03-04&sort_by=scanned_at&sort_order=asc", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var list attendance.ListRecordResponse
	env = decodeData(t, rec, &list)
	assert.Equal(t, int64(4), list.TotalCount)
	require.NotNil(t, env.Meta)
	assert.Equal(t, int64(4), env.Meta.TotalItems)

	rec = ts.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `attendance_scans_total{outcome="ok"} 2`)
	assert.Contains(t, rec.Body.String(), `attendance_scans_total{outcome="warning"} 1`)
}

func TestAuthorization(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/v1/auth/login", "", auth.LoginRequest{Email: "ruiz@school.edu", Password: "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(http.MethodGet, "/api/v1/records", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	teacherToken := ts.login("ruiz@school.edu")
	adminToken := ts.login("admin@school.edu")

	rec = ts.do(http.MethodGet, "/api/v1/records", teacherToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(http.MethodGet, "/api/v1/classrooms/"+ts.room.ID+"/window", teacherToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var window attendance.WindowResponse
	decodeData(t, rec, &window)
	assert.False(t, window.Open)

	rec = ts.do(http.MethodGet, "/api/v1/classrooms/"+ts.other.ID+"/window", teacherToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(http.MethodGet, "/api/v1/classrooms/"+ts.other.ID+"/window", adminToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(http.MethodGet, "/api/v1/classrooms/missing/window", adminToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(http.MethodPost, "/api/v1/classrooms/"+ts.room.ID+"/close", adminToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code, "only the teacher closes a session")

	rec = ts.do(http.MethodGet, "/api/v1/classrooms", teacherToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = ts.do(http.MethodGet, "/api/v1/classrooms", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var rooms []classroom.ClassroomResponse
	decodeData(t, rec, &rooms)
	assert.Len(t, rooms, 2)

	rec = ts.do(http.MethodPost, "/api/v1/auth/logout", teacherToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = ts.do(http.MethodGet, "/api/v1/classrooms/"+ts.room.ID+"/window", teacherToken, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "revoked token")
}

func TestRecordEndpoints(t *testing.T) {
	ts := newTestServer(t)
	adminToken := ts.login("admin@school.edu")

	require.Equal(t, http.StatusCreated, ts.scan(ts.teacher, "esp32-a").Code)
	ts.now = ts.now.Add(5 * time.Minute)
	rec := ts.scan(ts.alice, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var late attendance.ScanResult
	decodeData(t, rec, &late)
	assert.Equal(t, string(attendance.StatusLate), late.Record.Status)
	assert.Equal(t, attendance.OutcomeWarning, late.Outcome)

	rec = ts.do(http.MethodGet, "/api/v1/records/"+late.Record.ID, adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(http.MethodGet, "/api/v1/records/missing", adminToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(http.MethodPost, "/api/v1/records/"+late.Record.ID+"/justify", adminToken, attendance.JustifyRequest{Reason: "medical appointment"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var justified attendance.RecordResponse
	decodeData(t, rec, &justified)
	assert.Equal(t, string(attendance.StatusJustified), justified.Status)

	rec = ts.do(http.MethodPost, "/api/v1/records/"+late.Record.ID+"/justify", adminToken, attendance.JustifyRequest{Reason: "again"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(http.MethodPost, "/api/v1/records/"+late.Record.ID+"/justify", adminToken, attendance.JustifyRequest{})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = ts.do(http.MethodGet, "/api/v1/records?status=bogus", adminToken, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	assert.Contains(t, env.Error.Details, "status")

	rec = ts.do(http.MethodGet, "/api/v1/records/export?role=student", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "name,identity,role,classroom_id,type,date,time,status", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "Alice,8-1-101,student,"))
	assert.True(t, strings.HasSuffix(lines[1], ",justified"))
}

func TestPersonEndpoints(t *testing.T) {
	ts := newTestServer(t)
	adminToken := ts.login("admin@school.edu")

	rec := ts.do(http.MethodPost, "/api/v1/persons", adminToken, person.CreatePersonRequest{
		Identity:    "8-0001-0042",
		Name:        "Carla",
		Role:        "student",
		ClassroomID: &ts.room.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created person.PersonResponse
	decodeData(t, rec, &created)
	assert.Equal(t, "8-0001-42", created.Identity)

	rec = ts.do(http.MethodPost, "/api/v1/persons", adminToken, person.CreatePersonRequest{
		Identity:    "8-0001-042",
		Name:        "Carla again",
		Role:        "student",
		ClassroomID: &ts.room.ID,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(http.MethodGet, "/api/v1/persons/"+created.ID+"/badge?size=128", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))

	rec = ts.do(http.MethodGet, "/api/v1/persons/missing", adminToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(http.MethodGet, "/api/v1/persons?role=student&classroom_id="+ts.room.ID+"&limit=2", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var listed person.ListPersonResponse
	env := decodeData(t, rec, &listed)
	assert.Equal(t, int64(3), listed.TotalCount)
	require.Len(t, listed.Persons, 2)
	assert.Equal(t, "Alice", listed.Persons[0].Name)
	require.NotNil(t, env.Meta)
	assert.Equal(t, 2, env.Meta.TotalPages)
	assert.Equal(t, "1-2 of 3", env.Meta.Showing)

	rec = ts.do(http.MethodGet, "/api/v1/persons?role=janitor", adminToken, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	newName := "Carla Díaz"
	rec = ts.do(http.MethodPut, "/api/v1/persons/"+created.ID, adminToken, person.UpdatePersonRequest{
		Identity: ptrTo("8-1-0043"),
		Name:     &newName,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated person.PersonResponse
	decodeData(t, rec, &updated)
	assert.Equal(t, "8-1-43", updated.Identity)
	assert.Equal(t, newName, updated.Name)
	assert.Equal(t, ts.room.ID, *updated.ClassroomID)

	rec = ts.do(http.MethodPut, "/api/v1/persons/"+created.ID, adminToken, person.UpdatePersonRequest{Identity: &ts.alice.Identity})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(http.MethodPut, "/api/v1/persons/missing", adminToken, person.UpdatePersonRequest{Name: &newName})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	teacherToken := ts.login("ruiz@school.edu")
	rec = ts.do(http.MethodDelete, "/api/v1/persons/"+created.ID, teacherToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ts.do(http.MethodDelete, "/api/v1/persons/"+created.ID, adminToken, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(http.MethodGet, "/api/v1/persons/"+created.ID, adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var deactivated person.PersonResponse
	decodeData(t, rec, &deactivated)
	assert.False(t, deactivated.Active)

	require.Equal(t, http.StatusCreated, ts.scan(ts.teacher, "esp32-a").Code)
	rec = ts.scan(person.Person{Identity: updated.Identity, Name: updated.Name}, "")
	assert.Equal(t, http.StatusNotFound, rec.Code, "deactivated persons cannot scan")

	rec = ts.do(http.MethodDelete, "/api/v1/persons/missing", adminToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatus(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/v1/status", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var status struct {
		Status   string `json:"status"`
		Database string `json:"database"`
		Version  string `json:"version"`
	}
	decodeData(t, rec, &status)
	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, "connected", status.Database)
	assert.Equal(t, "test", status.Version)

	require.NoError(t, ts.store.Close())
	rec = ts.do(http.MethodGet, "/api/v1/status", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func ptrTo[T any](v T) *T { return &v }

func TestClassroomEvents(t *testing.T) {
	ts := newTestServer(t)
	srv := httptest.NewServer(ts.router)
	defer srv.Close()

	token := ts.login("ruiz@school.edu")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/classrooms/"+ts.room.ID+"/events?token="+token, nil)
	require.NoError(t, err)
	res, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "text/event-stream", res.Header.Get("Content-Type"))

	lines := bufio.NewScanner(res.Body)
	next := func(prefix string) string {
		for lines.Scan() {
			if strings.HasPrefix(lines.Text(), prefix) {
				return lines.Text()
			}
		}
		t.Fatalf("stream ended before %q", prefix)
		return ""
	}

	next("event: connected")
	require.Equal(t, http.StatusCreated, ts.scan(ts.teacher, "esp32-a").Code)

	assert.Equal(t, "event: scan", next("event: scan"))
	data := strings.TrimPrefix(next("data: "), "data: ")
	var event attendance.ScanEvent
	require.NoError(t, json.Unmarshal([]byte(data), &event))
	assert.Equal(t, ts.room.ID, event.ClassroomID)
	assert.Equal(t, attendance.OutcomeOK, event.Outcome)
	require.NotNil(t, event.Record)
	assert.Equal(t, ts.teacher.ID, event.Record.PersonID)
}
