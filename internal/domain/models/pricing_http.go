package models

// Requests for pricing HTTP endpoints. Defined in domain for consistency and reuse.

type ScoreRequest struct {
	PropertyID string  `query:"property_id" json:"property_id" validate:"required"`
	StayDate   string  `query:"stay_date" json:"stay_date" validate:"required"`
	Coverage   float64 `query:"coverage" json:"coverage" default:"0.9" validate:"gt=0,lt=1"`
}

type LearnRequest struct {
	Outcomes []LearnOutcome `json:"outcomes" validate:"required,min=1,max=1000,dive"`
}

type LearnOutcome struct {
	PropertyID string  `json:"property_id" validate:"required"`
	StayDate   string  `json:"stay_date" validate:"required"`
	Occupancy  float64 `json:"occupancy" validate:"gte=0"`
	Price      float64 `json:"price" validate:"gte=0"`
	Timestamp  int64   `json:"timestamp"`
}

type HistoryRequest struct {
	PropertyID string `query:"property_id" json:"property_id" validate:"required"`
	From       string `query:"from" json:"from"`
	To         string `query:"to" json:"to"`
	Limit      int    `query:"limit" json:"limit" default:"200" validate:"gte=1,lte=5000"`
}
