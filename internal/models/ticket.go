package models

import (
	"encoding/json"
	"time"
)

// Ticket is one diagnosed incident with its rendered report and human feedback.
type Ticket struct {
	ID               string          `json:"id"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	ServiceName      string          `json:"service_name"`
	Namespace        string          `json:"namespace"`
	PodName          string          `json:"pod_name"`
	ErrorMessage     string          `json:"error_message"`
	StackTrace       *string         `json:"stack_trace"`
	AlertTimestamp   *time.Time      `json:"alert_timestamp"`
	AlertPayload     json.RawMessage `json:"alert_payload"`
	Classification   string          `json:"classification"`
	DiagnosisReport  string          `json:"diagnosis_report"`
	RootCause        *string         `json:"root_cause"`
	Suggestions      []string        `json:"suggestions"`
	AnalysisPartial  bool            `json:"analysis_partial"`
	LLMModel         *string         `json:"llm_model"`
	TokensUsed       *int            `json:"tokens_used"`
	ProcessingTimeMs *int64          `json:"processing_time_ms"`
	FeedbackUseful   *bool           `json:"feedback_useful"`
	FeedbackApplied  *bool           `json:"feedback_applied"`
	FeedbackComment  *string         `json:"feedback_comment"`
	FeedbackAt       *time.Time      `json:"feedback_at"`
}

// TicketResponse is the public view of a single ticket.
type TicketResponse struct {
	ID              string          `json:"id"`
	CreatedAt       time.Time       `json:"created_at"`
	ServiceName     string          `json:"service_name"`
	Namespace       string          `json:"namespace"`
	Classification  string          `json:"classification"`
	DiagnosisReport string          `json:"diagnosis_report"`
	RootCause       *string         `json:"root_cause"`
	Suggestions     []string        `json:"suggestions"`
	AlertPayload    json.RawMessage `json:"alert_payload"`
}

// TicketSummary is a row of the ticket listing.
type TicketSummary struct {
	ID             string    `json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	ServiceName    string    `json:"service_name"`
	Namespace      string    `json:"namespace"`
	Classification string    `json:"classification"`
	RootCause      *string   `json:"root_cause"`
}

// TicketFilter selects a page of tickets, newest first.
type TicketFilter struct {
	Service string
	Limit   int
	Offset  int
}

type Pagination struct {
	Page       int `json:"page"`
	Size       int `json:"size"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

type TicketList struct {
	Data       []TicketSummary `json:"data"`
	Pagination Pagination      `json:"pagination"`
}

// FeedbackRequest uses pointers so a missing boolean is distinguishable from false.
type FeedbackRequest struct {
	Useful  *bool   `json:"useful" binding:"required"`
	Applied *bool   `json:"applied" binding:"required"`
	Comment *string `json:"comment"`
}

type FeedbackResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// CreateTicketRequest is the diagnosis input accepted by the ticket endpoint.
// Fields other than the required ones are passed to the report builder as-is.
type CreateTicketRequest struct {
	ServiceName  string `json:"service_name" binding:"required"`
	Namespace    string `json:"namespace" binding:"required"`
	PodName      string `json:"pod_name" binding:"required"`
	ErrorMessage string `json:"error_message" binding:"required"`
}
