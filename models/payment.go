package models

// PaymentEvidence is either an uploaded receipt file or a free-text
// transaction reference. At most one form is active at a time; an
// uploaded file supersedes any previously entered text reference.
type PaymentEvidence struct {
	FileURL      string `json:"file_url,omitempty"`
	FilePublicID string `json:"file_public_id,omitempty"`
	FileName     string `json:"file_name,omitempty"`
	FileSize     int64  `json:"file_size,omitempty"`
	TextRef      string `json:"transaction_ref,omitempty"`
}

// Reference returns the value usable in a booking request. The file URL
// takes precedence over a free-text reference when both are present.
func (e PaymentEvidence) Reference() string {
	if e.FileURL != "" {
		return e.FileURL
	}
	return e.TextRef
}

// Empty reports whether no evidence of either form is attached.
func (e PaymentEvidence) Empty() bool {
	return e.FileURL == "" && e.TextRef == ""
}
