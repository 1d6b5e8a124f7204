package api

import (
	"time"
)

type ReportRequest struct {
	FiatType  string     `query:"fiat"`
	AssetType string     `query:"asset"`
	Status    string     `query:"status"`
	StartDate *time.Time `query:"start_date" format:"date"`
	EndDate   *time.Time `query:"end_date" format:"date"`
}

type HealthResponse struct {
	Status    string                   `json:"status"`
	Version   string                   `json:"version"`
	Timestamp time.Time                `json:"timestamp"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

type ServiceHealth struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
}

type SystemStatsResponse struct {
	Database DatabaseStats `json:"database"`
	Cache    CacheStats    `json:"cache"`
	API      APIStats      `json:"api"`
}

type DatabaseStats struct {
	ActiveConnections int32  `json:"active_connections"`
	IdleConnections   int32  `json:"idle_connections"`
	TotalConnections  int32  `json:"total_connections"`
	WaitCount         int64  `json:"wait_count"`
	WaitDuration      string `json:"wait_duration"`
}

type CacheStats struct {
	MemoryUsed string `json:"memory_used"`
}

type APIStats struct {
	ActiveGoroutines int `json:"active_goroutines"`
}

type ErrorResponse struct {
	Error     string    `json:"error"`
	Code      int       `json:"code"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type LoadDataRequest struct {
	FilePath string `json:"file_path" validate:"required"`
	Async    bool   `json:"async"`
}

type LoadDataResponse struct {
	JobID        string `json:"job_id,omitempty"`
	RecordsCount int64  `json:"records_count,omitempty"`
	ParseErrors  int    `json:"parse_errors,omitempty"`
	Status       string `json:"status"`
	Message      string `json:"message"`
}

type LedgerSummaryResponse struct {
	TotalTrades int64    `json:"total_trades"`
	Fiats       []string `json:"fiats"`
}
