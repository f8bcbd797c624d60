package closedperiod

type UpdateCutoffDTO struct {
	Date string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

type CutoffResponse struct {
	Date *string `json:"date"`
}
