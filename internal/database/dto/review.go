package dto

type ReviewRequest struct {
	PlaceName string `json:"place_name" validate:"notblank,max=120"`
	Rating    int    `json:"rating" validate:"required,gte=1,lte=5"`
	Comment   string `json:"comment" validate:"max=1000"`
}

type ModerationRequest struct {
	Status string `json:"status" validate:"required,oneof=APPROVED REJECTED PENDING"`
}

type ReviewQuery struct {
	Page
	Q      string `query:"q" validate:"max=100"`
	Status string `query:"status" validate:"omitempty,oneof=PENDING APPROVED REJECTED"`
	Mine   bool   `query:"mine"`
}
