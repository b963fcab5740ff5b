package models

// Specialist is the read-only directory view of a mental-health specialist.
// All backend field-name variants are normalized into this shape at the
// scheduling client boundary; nothing downstream inspects raw payloads.
type Specialist struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Specializations   []string `json:"specializations,omitempty"`
	ConsultationModes []string `json:"consultation_modes,omitempty"`
	ConsultationFee   float64  `json:"consultation_fee"`
	Currency          string   `json:"currency,omitempty"`
	City              string   `json:"city,omitempty"`
}

// SpecialistQuery carries directory search filters.
type SpecialistQuery struct {
	City             string
	Specialization   string
	ConsultationMode string
	Page             int
	Size             int
}

// SpecialistPage is one page of directory search results.
type SpecialistPage struct {
	Specialists []Specialist `json:"specialists"`
	TotalCount  int          `json:"total_count"`
	TotalPages  int          `json:"total_pages"`
	HasNext     bool         `json:"has_next"`
}
