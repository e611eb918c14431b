package constant

import (
	"time"
)

type contextKey string

// Values placed on the request context by the auth middleware.
const (
	ContextKeyUserID   contextKey = "user_id"
	ContextKeyUserName contextKey = "user_name"
	ContextKeyUserRole contextKey = "user_role"
	ContextKeyTokenID  contextKey = "token_id"
)

const (
	RoleAdmin   = "ADMIN"
	RoleDoctor  = "DOCTOR"
	RolePatient = "PATIENT"
)

// Query string parameters.
const (
	RequestParamID      = "id"
	RequestParamPage    = "page"
	RequestParamLimit   = "limit"
	RequestParamSortBy  = "sort_by"
	RequestParamSortDir = "sort_dir"
	RequestParamStatus  = "status"
	RequestParamFrom    = "from"
	RequestParamTo      = "to"
)

const (
	DefaultValuePage  = 1
	DefaultValueLimit = 10
	MaxValueLimit     = 100
)

const (
	BookingPolicyStrict   = "strict"
	BookingPolicyBuffered = "buffered"

	EventSinkKafka = "kafka"
	EventSinkLog   = "log"
	EventSinkNoop  = "noop"
)

// Audit columns shared by every table.
const (
	FieldCreatedAt  = "created_at"
	FieldCreatedBy  = "created_by"
	FieldModifiedAt = "modified_at"
	FieldModifiedBy = "modified_by"
)

const PqErrorCodeUniqueViolation = "23505"

const DateFormat = time.RFC3339

const (
	OtelServiceScopeName    = "service"
	OtelRepositoryScopeName = "repository"
	OtelHandlerScopeName    = "handler"
	OtelEventScopeName      = "event"
	OtelValidationScopeName = "validation"
	OtelConsumerScopeName   = "consumer"
	OtelS3ScopeName         = "s3"

	OtelQueryAttributeKey = "query"
)

const (
	RequestHeaderAuthorization      = "Authorization"
	RequestHeaderUserAgent          = "User-Agent"
	RequestHeaderContentType        = "Content-Type"
	RequestHeaderForwardedFor       = "X-Forwarded-For"
	RequestHeaderRealIP             = "X-Real-IP"
	RequestHeaderAPIKey             = "X-API-Key"
	RequestHeaderRateLimit          = "X-RateLimit-Limit"
	RequestHeaderRateLimitRemaining = "X-RateLimit-Remaining"
	RequestHeaderRateLimitWindow    = "X-RateLimit-Window"
)

const (
	ContentTypeJSON     = "application/json"
	ContentTypeCalendar = "text/calendar"
)

const (
	ResponseErrorPrepareShutdown      = "SERVER PREPARING TO SHUT DOWN"
	ResponseErrorRequestLimitExceeded = "REQUEST LIMIT EXCEEDED"
)

const (
	ServerEnvDevelopment = "development"
	ServerEnvProduction  = "production"
)

const (
	Asterix = "*"
	Empty   = ""
)
