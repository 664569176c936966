package api

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/emirozbir/incident-triage/internal/database"
	"github.com/emirozbir/incident-triage/internal/diagnosis"
	"github.com/emirozbir/incident-triage/internal/metrics"
	"github.com/emirozbir/incident-triage/internal/models"
	"github.com/emirozbir/incident-triage/internal/report"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	webhookTimeout  = 5 * time.Minute
)

// TicketRepository is the read and feedback side of the ticket store.
type TicketRepository interface {
	GetTicket(ctx context.Context, id string) (*models.TicketResponse, error)
	ListTickets(ctx context.Context, filter models.TicketFilter) ([]models.TicketSummary, int, error)
	RecordFeedback(ctx context.Context, id string, feedback models.FeedbackRequest) error
}

type Handler struct {
	tickets TicketRepository
	service *diagnosis.Service
	logger  *zap.Logger
}

func NewHandler(tickets TicketRepository, service *diagnosis.Service, logger *zap.Logger) *Handler {
	return &Handler{
		tickets: tickets,
		service: service,
		logger:  logger,
	}
}

// CreateTicketResponse is returned when a ticket is opened through the API.
type CreateTicketResponse struct {
	ID         string            `json:"id"`
	CreatedAt  time.Time         `json:"created_at"`
	Report     string            `json:"report"`
	ReportData report.ReportData `json:"reportData"`
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}

func (h *Handler) GetTicket(c *gin.Context) {
	id := c.Param("id")
	if uuid.Validate(id) != nil {
		abortWithProblem(c, http.StatusBadRequest, "ticket id must be a UUID")
		return
	}

	ticket, err := h.tickets.GetTicket(c.Request.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		abortWithProblem(c, http.StatusNotFound, "ticket "+id+" not found")
		return
	}
	if err != nil {
		h.logger.Error("Failed to get ticket", zap.String("ticket_id", id), zap.Error(err))
		abortWithProblem(c, http.StatusInternalServerError, "failed to get ticket")
		return
	}

	c.JSON(http.StatusOK, ticket)
}

func (h *Handler) ListTickets(c *gin.Context) {
	page, filter, err := parsePage(c)
	if err != nil {
		abortWithProblem(c, http.StatusBadRequest, err.Error())
		return
	}

	tickets, total, err := h.tickets.ListTickets(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list tickets", zap.Error(err))
		abortWithProblem(c, http.StatusInternalServerError, "failed to list tickets")
		return
	}
	if tickets == nil {
		tickets = []models.TicketSummary{}
	}

	c.JSON(http.StatusOK, models.TicketList{
		Data: tickets,
		Pagination: models.Pagination{
			Page:       page,
			Size:       filter.Limit,
			Total:      total,
			TotalPages: totalPages(total, filter.Limit),
		},
	})
}

func (h *Handler) RecordFeedback(c *gin.Context) {
	id := c.Param("id")
	if uuid.Validate(id) != nil {
		abortWithProblem(c, http.StatusBadRequest, "ticket id must be a UUID")
		return
	}

	var req models.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithProblem(c, http.StatusBadRequest, "useful and applied must be booleans: "+err.Error())
		return
	}

	err := h.tickets.RecordFeedback(c.Request.Context(), id, req)
	if errors.Is(err, database.ErrNotFound) {
		abortWithProblem(c, http.StatusNotFound, "ticket "+id+" not found")
		return
	}
	if err != nil {
		h.logger.Error("Failed to record feedback", zap.String("ticket_id", id), zap.Error(err))
		abortWithProblem(c, http.StatusInternalServerError, "failed to record feedback")
		return
	}

	metrics.FeedbackRecorded.WithLabelValues(strconv.FormatBool(*req.Useful)).Inc()
	h.logger.Info("Feedback recorded",
		zap.String("ticket_id", id),
		zap.Bool("useful", *req.Useful),
		zap.Bool("applied", *req.Applied))

	c.JSON(http.StatusOK, models.FeedbackResponse{Success: true, Message: "feedback recorded"})
}

func (h *Handler) CreateTicket(c *gin.Context) {
	var req models.CreateTicketRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		abortWithProblem(c, http.StatusBadRequest, "invalid ticket: "+err.Error())
		return
	}
	var input map[string]any
	if err := c.ShouldBindBodyWith(&input, binding.JSON); err != nil {
		abortWithProblem(c, http.StatusBadRequest, "invalid ticket: "+err.Error())
		return
	}

	ticket, result, err := h.service.CreateTicket(c.Request.Context(), input, nil, diagnosis.SourceAPI)
	if errors.Is(err, database.ErrConflict) {
		abortWithProblem(c, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("Failed to create ticket", zap.String("service", req.ServiceName), zap.Error(err))
		abortWithProblem(c, http.StatusInternalServerError, "failed to create ticket")
		return
	}

	c.JSON(http.StatusCreated, CreateTicketResponse{
		ID:         ticket.ID,
		CreatedAt:  ticket.CreatedAt,
		Report:     result.Report,
		ReportData: result.Data,
	})
}

func (h *Handler) RenderReport(c *gin.Context) {
	var input map[string]any
	if err := c.ShouldBindJSON(&input); err != nil {
		abortWithProblem(c, http.StatusBadRequest, "invalid diagnosis: "+err.Error())
		return
	}

	result, err := h.service.Render(c.Request.Context(), input, nil)
	if err != nil {
		h.logger.Error("Failed to render report", zap.Error(err))
		abortWithProblem(c, http.StatusInternalServerError, "failed to render report")
		return
	}

	c.JSON(http.StatusOK, result)
}

// ReceiveAlertManagerWebhook opens a ticket for every alert in the payload.
// Partial failures are reported in the body with status 200.
func (h *Handler) ReceiveAlertManagerWebhook(c *gin.Context) {
	var webhook models.AlertManagerWebhook
	if err := c.ShouldBindJSON(&webhook); err != nil {
		h.logger.Error("Failed to bind webhook payload", zap.Error(err))
		abortWithProblem(c, http.StatusBadRequest, "invalid webhook payload: "+err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), webhookTimeout)
	defer cancel()

	c.JSON(http.StatusOK, h.service.IngestAlerts(ctx, webhook))
}

type pageError string

func (e pageError) Error() string { return string(e) }

// parsePage reads limit/_size, offset and _page. An explicit offset wins over _page.
func parsePage(c *gin.Context) (int, models.TicketFilter, error) {
	filter := models.TicketFilter{Service: c.Query("service"), Limit: defaultPageSize}

	sizeParam := c.Query("limit")
	if sizeParam == "" {
		sizeParam = c.Query("_size")
	}
	if sizeParam != "" {
		size, err := strconv.Atoi(sizeParam)
		if err != nil || size <= 0 {
			return 0, filter, pageError("limit must be a positive integer")
		}
		filter.Limit = min(size, maxPageSize)
	}

	page := 0
	if pageParam := c.Query("_page"); pageParam != "" {
		p, err := strconv.Atoi(pageParam)
		if err != nil || p <= 0 {
			return 0, filter, pageError("_page must be a positive integer")
		}
		if p > math.MaxInt/filter.Limit {
			return 0, filter, pageError("_page is too large")
		}
		page = p
	}

	if offsetParam := c.Query("offset"); offsetParam != "" {
		offset, err := strconv.Atoi(offsetParam)
		if err != nil || offset < 0 {
			return 0, filter, pageError("offset must be a non-negative integer")
		}
		if offset > math.MaxInt-filter.Limit {
			return 0, filter, pageError("offset is too large")
		}
		filter.Offset = offset
	} else if page > 0 {
		filter.Offset = (page - 1) * filter.Limit
	}

	if page == 0 {
		page = filter.Offset/filter.Limit + 1
	}
	return page, filter, nil
}

func totalPages(total, size int) int {
	return max(1, int(math.Ceil(float64(total)/float64(size))))
}
