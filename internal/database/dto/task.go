package dto

import "time"

type TaskRequest struct {
	Title       string     `json:"title" validate:"notblank,max=200"`
	Description string     `json:"description" validate:"max=2000"`
	Status      string     `json:"status" validate:"omitempty,oneof=todo in_progress done"`
	Priority    string     `json:"priority" validate:"omitempty,oneof=low medium high"`
	DueDate     *time.Time `json:"due_date"`
}

type TaskStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=todo in_progress done"`
}

type TaskQuery struct {
	Page
	Q        string `query:"q" validate:"max=100"`
	Status   string `query:"status" validate:"omitempty,oneof=todo in_progress done"`
	Priority string `query:"priority" validate:"omitempty,oneof=low medium high"`
	SortBy   string `query:"sort_by" validate:"omitempty,oneof=created_at due_date title priority"`
	Order    string `query:"order" validate:"omitempty,oneof=asc desc"`
}
