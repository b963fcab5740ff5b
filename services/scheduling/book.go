package scheduling

import (
	"context"

	"mindmate/models"
)

// BookAppointment submits a finalized booking request. Response
// interpretation (conflict, validation, auth) happens in the booking
// flow; this layer only preserves the status code and server detail.
func (c *HTTPClient) BookAppointment(ctx context.Context, token string, req models.BookingRequest) (*models.BookingResult, error) {
	var result models.BookingResult
	if err := c.doJSON(ctx, token, "POST", "/appointments/book", nil, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
