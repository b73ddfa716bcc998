package dto

import "time"

type EventRequest struct {
	Title       string    `json:"title" validate:"notblank,max=200"`
	Description string    `json:"description" validate:"max=2000"`
	Location    string    `json:"location" validate:"max=200"`
	StartsAt    time.Time `json:"starts_at" validate:"required"`
	Capacity    int       `json:"capacity" validate:"required,gte=1,lte=100000"`
}

type EventQuery struct {
	Page
	Q        string `query:"q" validate:"max=100"`
	Upcoming bool   `query:"upcoming"`
}

type BookingStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=confirmed cancelled"`
}
