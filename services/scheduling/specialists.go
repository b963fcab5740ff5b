package scheduling

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"

	"mindmate/models"
)

// rawSpecialist tolerates the field-name variants the directory has
// shipped over time (display_name vs name, modes vs consultation_modes,
// fee vs consultation_fee).
type rawSpecialist struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	DisplayName       string   `json:"display_name"`
	Specializations   []string `json:"specializations"`
	ConsultationModes []string `json:"consultation_modes"`
	Modes             []string `json:"modes"`
	ConsultationFee   *float64 `json:"consultation_fee"`
	Fee               *float64 `json:"fee"`
	Currency          string   `json:"currency"`
	City              string   `json:"city"`
}

func (r rawSpecialist) normalize() models.Specialist {
	name := r.Name
	if name == "" {
		name = r.DisplayName
	}
	modes := r.ConsultationModes
	if len(modes) == 0 {
		modes = r.Modes
	}
	for i, m := range modes {
		modes[i] = models.CanonicalMode(m)
	}
	var fee float64
	if r.ConsultationFee != nil {
		fee = *r.ConsultationFee
	} else if r.Fee != nil {
		fee = *r.Fee
	}
	return models.Specialist{
		ID:                r.ID,
		Name:              name,
		Specializations:   r.Specializations,
		ConsultationModes: modes,
		ConsultationFee:   fee,
		Currency:          r.Currency,
		City:              r.City,
	}
}

// SearchSpecialists queries the directory and returns one normalized
// result page.
func (c *HTTPClient) SearchSpecialists(ctx context.Context, token string, q models.SpecialistQuery) (*models.SpecialistPage, error) {
	query := url.Values{}
	if q.City != "" {
		query.Set("city", q.City)
	}
	if q.Specialization != "" {
		query.Set("specialization", q.Specialization)
	}
	if q.ConsultationMode != "" {
		query.Set("consultation_mode", models.CanonicalMode(q.ConsultationMode))
	}
	if q.Page > 0 {
		query.Set("page", strconv.Itoa(q.Page))
	}
	if q.Size > 0 {
		query.Set("size", strconv.Itoa(q.Size))
	}

	var resp struct {
		Specialists []json.RawMessage `json:"specialists"`
		Pagination  struct {
			TotalCount int  `json:"total_count"`
			TotalPages int  `json:"total_pages"`
			HasNext    bool `json:"has_next"`
		} `json:"pagination"`
	}
	if err := c.doJSON(ctx, token, "GET", "/specialists/search", query, nil, &resp); err != nil {
		return nil, err
	}

	page := &models.SpecialistPage{
		Specialists: make([]models.Specialist, 0, len(resp.Specialists)),
		TotalCount:  resp.Pagination.TotalCount,
		TotalPages:  resp.Pagination.TotalPages,
		HasNext:     resp.Pagination.HasNext,
	}
	for _, m := range resp.Specialists {
		var raw rawSpecialist
		if err := json.Unmarshal(m, &raw); err != nil {
			c.logger.Sugar().Warnf("dropping malformed specialist entry: %v", err)
			continue
		}
		page.Specialists = append(page.Specialists, raw.normalize())
	}
	return page, nil
}
