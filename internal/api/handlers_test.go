package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/emirozbir/incident-triage/internal/config"
	"github.com/emirozbir/incident-triage/internal/database"
	"github.com/emirozbir/incident-triage/internal/diagnosis"
	"github.com/emirozbir/incident-triage/internal/models"
	"github.com/emirozbir/incident-triage/internal/report"
)

type testServer struct {
	router  *gin.Engine
	db      *database.DB
	service *diagnosis.Service
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.New(config.DatabaseConfig{
		Driver: database.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "tickets.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	renderer, err := report.NewRenderer("", nil)
	require.NoError(t, err)

	service := diagnosis.NewService(renderer, db, nil, zap.NewNop(), 2)
	router := SetupRoutes(NewHandler(db, service, zap.NewNop()))
	return &testServer{router: router, db: db, service: service}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) createTicket(t *testing.T, service string) string {
	t.Helper()
	ticket, _, err := s.service.CreateTicket(context.Background(), map[string]any{
		"service_name":  service,
		"namespace":     "payments",
		"pod_name":      service + "-abc123",
		"error_message": "OOMKilled",
	}, nil, diagnosis.SourceAPI)
	require.NoError(t, err)
	return ticket.ID
}

func decodeProblem(t *testing.T, w *httptest.ResponseRecorder) Problem {
	t.Helper()
	assert.Equal(t, problemContentType, w.Header().Get("Content-Type"))
	var p Problem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	assert.Equal(t, "about:blank", p.Type)
	assert.Equal(t, w.Code, p.Status)
	return p
}

func TestHealth(t *testing.T) {
	w := newTestServer(t).do(t, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, body["time"])
}

func TestMetrics(t *testing.T) {
	w := newTestServer(t).do(t, http.MethodGet, "/metrics", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestGetTicket(t *testing.T) {
	s := newTestServer(t)
	id := s.createTicket(t, "payment-service")

	w := s.do(t, http.MethodGet, "/api/v1/tickets/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var ticket models.TicketResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ticket))
	assert.Equal(t, id, ticket.ID)
	assert.Equal(t, "payment-service", ticket.ServiceName)
	assert.Equal(t, "unknown", ticket.Classification)
	assert.Contains(t, ticket.DiagnosisReport, "# 🩺 Diagnostic Report")
	assert.Equal(t, report.DefaultSuggestions, ticket.Suggestions)
	require.NotNil(t, ticket.RootCause)
	assert.Equal(t, report.DefaultRootCause, *ticket.RootCause)
}

func TestGetTicketInvalidID(t *testing.T) {
	w := newTestServer(t).do(t, http.MethodGet, "/api/v1/tickets/not-a-uuid", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	p := decodeProblem(t, w)
	assert.Equal(t, "Bad Request", p.Title)
	assert.Equal(t, "/api/v1/tickets/not-a-uuid", p.Instance)
}

func TestGetTicketNotFound(t *testing.T) {
	w := newTestServer(t).do(t, http.MethodGet, "/api/v1/tickets/"+uuid.NewString(), nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Not Found", decodeProblem(t, w).Title)
}

func TestListTicketsPagination(t *testing.T) {
	s := newTestServer(t)
	for i := 0; i < 3; i++ {
		s.createTicket(t, "payment-service")
	}
	s.createTicket(t, "checkout")

	tests := []struct {
		query    string
		wantLen  int
		wantPage models.Pagination
	}{
		{"", 4, models.Pagination{Page: 1, Size: 20, Total: 4, TotalPages: 1}},
		{"?limit=3", 3, models.Pagination{Page: 1, Size: 3, Total: 4, TotalPages: 2}},
		{"?_size=3&_page=2", 1, models.Pagination{Page: 2, Size: 3, Total: 4, TotalPages: 2}},
		{"?limit=2&offset=2", 2, models.Pagination{Page: 2, Size: 2, Total: 4, TotalPages: 2}},
		{"?limit=500", 4, models.Pagination{Page: 1, Size: 100, Total: 4, TotalPages: 1}},
		{"?service=payment-service&limit=2", 2, models.Pagination{Page: 1, Size: 2, Total: 3, TotalPages: 2}},
		{"?service=unknown-service", 0, models.Pagination{Page: 1, Size: 20, Total: 0, TotalPages: 1}},
		{"?limit=2&_page=1000000", 0, models.Pagination{Page: 1000000, Size: 2, Total: 4, TotalPages: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := s.do(t, http.MethodGet, "/api/v1/tickets"+tt.query, nil)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			var list models.TicketList
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
			assert.Len(t, list.Data, tt.wantLen)
			assert.Equal(t, tt.wantPage, list.Pagination)
		})
	}
}

func TestListTicketsEmptyDataIsArray(t *testing.T) {
	w := newTestServer(t).do(t, http.MethodGet, "/api/v1/tickets", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"data":[]`)
}

func TestListTicketsInvalidQuery(t *testing.T) {
	s := newTestServer(t)
	for _, query := range []string{"?limit=0", "?_size=-1", "?limit=abc", "?_page=0", "?offset=-1", "?offset=x"} {
		w := s.do(t, http.MethodGet, "/api/v1/tickets"+query, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, query)
		decodeProblem(t, w)
	}
}

func TestListTicketsRejectsOverflowingPage(t *testing.T) {
	s := newTestServer(t)
	for _, query := range []string{
		"?_page=9223372036854775807",
		"?limit=100&_page=92233720368547759",
		"?offset=9223372036854775807",
		"?limit=1&offset=9223372036854775807",
	} {
		w := s.do(t, http.MethodGet, "/api/v1/tickets"+query, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, query)
		assert.Contains(t, decodeProblem(t, w).Detail, "too large", query)
	}
}

func TestRecordFeedback(t *testing.T) {
	s := newTestServer(t)
	id := s.createTicket(t, "payment-service")

	w := s.do(t, http.MethodPost, "/api/v1/tickets/"+id+"/feedback", map[string]any{
		"useful":  false,
		"applied": true,
		"comment": "limit raised to 1Gi",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"success":true,"message":"feedback recorded"}`, w.Body.String())

	stored, err := s.db.GetFeedback(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, stored.FeedbackUseful)
	assert.False(t, *stored.FeedbackUseful)
	require.NotNil(t, stored.FeedbackApplied)
	assert.True(t, *stored.FeedbackApplied)
}

func TestRecordFeedbackValidation(t *testing.T) {
	s := newTestServer(t)
	id := s.createTicket(t, "payment-service")

	bodies := []any{
		map[string]any{"useful": true},
		map[string]any{"applied": true},
		map[string]any{"useful": "yes", "applied": true},
		"{",
		nil,
	}
	for _, body := range bodies {
		w := s.do(t, http.MethodPost, "/api/v1/tickets/"+id+"/feedback", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, fmt.Sprint(body))
	}

	w := s.do(t, http.MethodPost, "/api/v1/tickets/bad-id/feedback", map[string]any{"useful": true, "applied": true})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecordFeedbackNotFound(t *testing.T) {
	w := newTestServer(t).do(t, http.MethodPost, "/api/v1/tickets/"+uuid.NewString()+"/feedback",
		map[string]any{"useful": true, "applied": false})

	assert.Equal(t, http.StatusNotFound, w.Code)
	decodeProblem(t, w)
}

func TestCreateTicket(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/tickets", map[string]any{
		"service_name":   "payment-service",
		"namespace":      "payments",
		"pod_name":       "payment-service-abc123",
		"error_message":  "OOMKilled: token=abc123",
		"classification": "infrastructure",
		"severity":       "critical",
		"suggestions":    []string{"Raise the memory limit to 1Gi"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created CreateTicketResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.NoError(t, uuid.Validate(created.ID))
	assert.Equal(t, created.ID, created.ReportData.TicketID)
	assert.Equal(t, "critical", created.ReportData.Severity)
	assert.Contains(t, created.Report, "1. Raise the memory limit to 1Gi")
	assert.NotContains(t, w.Body.String(), "token=abc123")

	w = s.do(t, http.MethodGet, "/api/v1/tickets/"+created.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"classification":"infrastructure"`)
	assert.NotContains(t, w.Body.String(), "token=abc123")
}

func TestCreateTicketRequiresFields(t *testing.T) {
	s := newTestServer(t)
	complete := map[string]any{
		"service_name":  "payment-service",
		"namespace":     "payments",
		"pod_name":      "payment-service-abc123",
		"error_message": "OOMKilled",
	}

	for field := range complete {
		body := map[string]any{}
		for k, v := range complete {
			if k != field {
				body[k] = v
			}
		}
		w := s.do(t, http.MethodPost, "/api/v1/tickets", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, field)
		assert.Contains(t, decodeProblem(t, w).Detail, "invalid ticket")
	}
}

func TestCreateTicketConflict(t *testing.T) {
	s := newTestServer(t)
	id := uuid.NewString()
	body := map[string]any{
		"ticket_id":     id,
		"service_name":  "payment-service",
		"namespace":     "payments",
		"pod_name":      "payment-service-abc123",
		"error_message": "OOMKilled",
	}

	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/v1/tickets", body).Code)
	w := s.do(t, http.MethodPost, "/api/v1/tickets", body)
	assert.Equal(t, http.StatusConflict, w.Code)
	decodeProblem(t, w)
}

func TestRenderReport(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/reports", map[string]any{
		"service_name": "checkout",
		"network": map[string]any{
			"url":              "http://inventory:8080/health",
			"status_code":      503,
			"response_time_ms": 1200,
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result report.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Contains(t, result.Report, "**Status:** 503")
	assert.Equal(t, "checkout", result.Data.ServiceName)

	_, total, err := s.db.ListTickets(context.Background(), models.TicketFilter{Limit: 10})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestRenderReportInvalidBody(t *testing.T) {
	w := newTestServer(t).do(t, http.MethodPost, "/api/v1/reports", "[1,2]")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	decodeProblem(t, w)
}

func TestAlertManagerWebhook(t *testing.T) {
	s := newTestServer(t)
	payload := `{
		"receiver": "triage",
		"status": "firing",
		"alerts": [
			{"status": "firing", "fingerprint": "a1",
			 "labels": {"alertname": "KubePodCrashLooping", "namespace": "payments", "pod": "payment-service-abc123", "severity": "warning"},
			 "annotations": {"description": "Pod is crash looping"},
			 "startsAt": "2024-01-01T08:00:00Z"},
			{"status": "firing", "fingerprint": "b2",
			 "labels": {"alertname": "NodeNotReady", "severity": "critical"},
			 "startsAt": "2024-01-01T08:00:00Z"}
		]
	}`

	w := s.do(t, http.MethodPost, "/api/v1/alerts/alertmanager", payload)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.WebhookTicketResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Received)
	assert.Equal(t, 1, resp.Created)
	assert.Equal(t, 1, resp.Failed)
	require.Len(t, resp.Tickets, 1)
	assert.Equal(t, "medium", resp.Tickets[0].Severity)
	assert.Equal(t, "NodeNotReady", resp.Errors[0].AlertName)

	w = s.do(t, http.MethodGet, "/api/v1/tickets/"+resp.Tickets[0].TicketID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var ticket models.TicketResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ticket))
	assert.Contains(t, string(ticket.AlertPayload), `"fingerprint":"a1"`)
	assert.Contains(t, ticket.DiagnosisReport, "Pod is crash looping")
}

func TestAlertManagerWebhookInvalidPayload(t *testing.T) {
	w := newTestServer(t).do(t, http.MethodPost, "/api/v1/alerts/alertmanager", "not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	decodeProblem(t, w)
}

func TestUnknownRoute(t *testing.T) {
	w := newTestServer(t).do(t, http.MethodGet, "/api/v2/tickets", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	p := decodeProblem(t, w)
	assert.Equal(t, "/api/v2/tickets", p.Instance)
}

func TestPanicBecomesProblem(t *testing.T) {
	s := newTestServer(t)
	s.router.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := s.do(t, http.MethodGet, "/panic", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	p := decodeProblem(t, w)
	assert.False(t, strings.Contains(p.Detail, "boom"))
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 1, totalPages(0, 20))
	assert.Equal(t, 1, totalPages(20, 20))
	assert.Equal(t, 2, totalPages(21, 20))
}
