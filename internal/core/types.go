package core

import (
	"io"
	"time"
)

// Part is a manufactured part identified by its designation code.
type Part struct {
	DesignationCode    string    `json:"designation_code"`
	ProductDesignation string    `json:"product_designation"`
	Name               string    `json:"name"`
	QuantityTotal      int       `json:"quantity_total"`
	QuantityCompleted  int       `json:"quantity_completed"`
	Size               string    `json:"size,omitempty"`
	Material           string    `json:"material,omitempty"`
	DrawingFilename    string    `json:"drawing_filename,omitempty"`
	RouteTemplateID    *int64    `json:"route_template_id,omitempty"`
	CreatedBy          string    `json:"created_by"`
	CreatedAt          time.Time `json:"created_at"`

	// RouteTemplate is populated by read queries only.
	RouteTemplate *RouteTemplate `json:"route_template,omitempty"`

	// Completions is loaded by the store; RouteStages is derived from it by the service.
	Completions []StageCompletion `json:"-"`
	RouteStages []RouteStage      `json:"route_stages,omitempty"`
}

// StageStatus is a part's progress through one step of its route.
type StageStatus string

const (
	StageCompleted StageStatus = "completed"
	StageNext      StageStatus = "next"
	StagePending   StageStatus = "pending"
)

// StageCompletion records that a part passed the route step at Position.
type StageCompletion struct {
	Position    int       `json:"position"`
	CompletedBy string    `json:"completed_by"`
	CompletedAt time.Time `json:"completed_at"`
}

// RouteStage is one step of a part's route together with its status.
type RouteStage struct {
	Position    int         `json:"position"`
	StageID     int64       `json:"stage_id"`
	Name        string      `json:"name"`
	Status      StageStatus `json:"status"`
	CompletedBy string      `json:"completed_by,omitempty"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
}

// PartProgress is what a transaction needs to complete the next route step.
type PartProgress struct {
	RouteTemplateID *int64
	RouteLength     int
	Completed       int
}

// Stage is one canonical production operation.
type Stage struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// RouteTemplate is a named, ordered sequence of stages.
type RouteTemplate struct {
	ID     int64   `json:"id"`
	Name   string  `json:"name"`
	Stages []Stage `json:"stages,omitempty"`
}

// ProductGroup summarises the parts filed under one product designation.
type ProductGroup struct {
	Designation string `json:"designation"`
	PartCount   int    `json:"part_count"`
}

// User is the acting user of an operation.
type User struct {
	Username    string
	DisplayName string
}

// Name returns the name used in notifications.
func (u User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}

// PartInput holds the fields of a manually created part.
type PartInput struct {
	DesignationCode    string `json:"designation_code"`
	ProductDesignation string `json:"product_designation"`
	Name               string `json:"name"`
	QuantityTotal      int    `json:"quantity_total"`
	Size               string `json:"size"`
	Material           string `json:"material"`
	RouteTemplateID    *int64 `json:"route_template_id"`
}

// Attachment is an uploaded drawing stored next to a part.
type Attachment struct {
	FileName string
	Content  io.Reader
}

// ImportOptions tunes a single import. Zero values fall back to service defaults.
type ImportOptions struct {
	FileName    string
	Encoding    string
	GroupColumn *int
}

// CreateOptions tunes a single part creation.
type CreateOptions struct {
	Drawing *Attachment
}

// SkippedRow explains why one catalog row did not produce a part.
type SkippedRow struct {
	Line   int    `json:"line"`
	Code   string `json:"designation_code,omitempty"`
	Reason string `json:"reason"`
}

// ImportResult summarises a completed import.
type ImportResult struct {
	ImportID    string        `json:"import_id"`
	Added       int           `json:"added"`
	Skipped     int           `json:"skipped"`
	SkippedRows []SkippedRow  `json:"skipped_rows,omitempty"`
	Duration    time.Duration `json:"duration"`
}
