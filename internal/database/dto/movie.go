package dto

type MovieRequest struct {
	Title       string  `json:"title" validate:"notblank,max=200"`
	Genre       string  `json:"genre" validate:"notblank,max=50"`
	Year        int     `json:"year" validate:"required,gte=1888,lte=2100"`
	Rating      float64 `json:"rating" validate:"gte=0,lte=10"`
	Description string  `json:"description" validate:"max=2000"`
}

type MovieQuery struct {
	Page
	Q      string `query:"q" validate:"max=100"`
	Genre  string `query:"genre" validate:"max=50"`
	Year   int    `query:"year" validate:"omitempty,gte=1888,lte=2100"`
	SortBy string `query:"sort_by" validate:"omitempty,oneof=title year rating"`
	Order  string `query:"order" validate:"omitempty,oneof=asc desc"`
}

type SearchQuery struct {
	Q     string `query:"q" validate:"notblank,max=100"`
	Limit int    `query:"limit" validate:"omitempty,gte=1,lte=50"`
}
