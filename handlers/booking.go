package handlers

import (
	"errors"
	"io"
	"net/http"

	"mindmate/models"
	"mindmate/services/booking"

	"github.com/gin-gonic/gin"
)

// FlowService is injected at startup.
var FlowService booking.BookingFlowService

func patientID(c *gin.Context) string {
	return c.GetString("patientID")
}

func sessionToken(c *gin.Context) string {
	return c.GetString("sessionToken")
}

// flowStatus maps a flow error code to an HTTP status.
func flowStatus(code string) int {
	switch code {
	case booking.CodeValidation, booking.CodeUpload:
		return http.StatusBadRequest
	case booking.CodeAuthentication:
		return http.StatusUnauthorized
	case booking.CodeAuthorization:
		return http.StatusForbidden
	case booking.CodeNotFound:
		return http.StatusNotFound
	case booking.CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondFlowError renders a flow error, attaching the current draft
// when the operation returned one so surfaces can re-render the wizard
// without a follow-up fetch.
func respondFlowError(c *gin.Context, draft *models.BookingDraft, err error) {
	var fe *booking.FlowError
	if !errors.As(err, &fe) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	body := gin.H{"error": fe.Message, "code": fe.Code}
	if fe.Field != "" {
		body["field"] = fe.Field
	}
	if draft != nil {
		body["draft"] = draft
		body["step"] = draft.Step()
	}
	c.JSON(flowStatus(fe.Code), body)
}

func respondDraft(c *gin.Context, draft *models.BookingDraft) {
	c.JSON(http.StatusOK, gin.H{"draft": draft, "step": draft.Step()})
}

// OpenDraft starts a new booking draft.
func OpenDraft(c *gin.Context) {
	var input struct {
		SpecialistID string `json:"specialist_id"`
	}
	// The body is optional; an empty request opens a blank draft.
	if err := c.ShouldBindJSON(&input); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	draft, err := FlowService.OpenDraft(c.Request.Context(), patientID(c), input.SpecialistID)
	if err != nil {
		respondFlowError(c, nil, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"draft": draft, "step": draft.Step()})
}

// GetDraft returns the current draft state.
func GetDraft(c *gin.Context) {
	draft, err := FlowService.GetDraft(c.Request.Context(), patientID(c), c.Param("draftID"))
	if err != nil {
		respondFlowError(c, nil, err)
		return
	}
	respondDraft(c, draft)
}

// SetSpecialist switches the draft's specialist.
func SetSpecialist(c *gin.Context) {
	var input struct {
		SpecialistID string `json:"specialist_id"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	draft, err := FlowService.SetSpecialist(c.Request.Context(), patientID(c), c.Param("draftID"), input.SpecialistID)
	if err != nil {
		respondFlowError(c, draft, err)
		return
	}
	respondDraft(c, draft)
}

// SetMode records the consultation mode.
func SetMode(c *gin.Context) {
	var input struct {
		Mode string `json:"consultation_mode"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	draft, err := FlowService.SetMode(c.Request.Context(), patientID(c), c.Param("draftID"), input.Mode)
	if err != nil {
		respondFlowError(c, draft, err)
		return
	}
	respondDraft(c, draft)
}

// SetDate picks a day and resolves its available slots.
func SetDate(c *gin.Context) {
	var input struct {
		Date string `json:"selected_date"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	draft, err := FlowService.SetDate(c.Request.Context(), sessionToken(c), patientID(c), c.Param("draftID"), input.Date)
	if err != nil {
		respondFlowError(c, draft, err)
		return
	}
	respondDraft(c, draft)
}

// RefreshSlots re-resolves the slot set for the selected day.
func RefreshSlots(c *gin.Context) {
	draft, err := FlowService.RefreshSlots(c.Request.Context(), sessionToken(c), patientID(c), c.Param("draftID"))
	if err != nil {
		respondFlowError(c, draft, err)
		return
	}
	respondDraft(c, draft)
}

// SelectSlot picks a slot from the resolved set.
func SelectSlot(c *gin.Context) {
	var input struct {
		SlotID string `json:"selected_slot_id"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	draft, err := FlowService.SelectSlot(c.Request.Context(), patientID(c), c.Param("draftID"), input.SlotID)
	if err != nil {
		respondFlowError(c, draft, err)
		return
	}
	respondDraft(c, draft)
}

// SetDetails captures patient detail fields.
func SetDetails(c *gin.Context) {
	var input booking.DetailsInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	draft, err := FlowService.SetDetails(c.Request.Context(), patientID(c), c.Param("draftID"), input)
	if err != nil {
		respondFlowError(c, draft, err)
		return
	}
	respondDraft(c, draft)
}

// SetPayment captures the payment method and optional text reference.
func SetPayment(c *gin.Context) {
	var input booking.PaymentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	draft, err := FlowService.SetPayment(c.Request.Context(), patientID(c), c.Param("draftID"), input)
	if err != nil {
		respondFlowError(c, draft, err)
		return
	}
	respondDraft(c, draft)
}

// UploadReceipt attaches a receipt file as payment evidence.
func UploadReceipt(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no receipt file provided"})
		return
	}

	draft, err := FlowService.UploadReceipt(c.Request.Context(), patientID(c), c.Param("draftID"), file)
	if err != nil {
		respondFlowError(c, draft, err)
		return
	}
	respondDraft(c, draft)
}

// RemoveReceipt detaches the uploaded receipt.
func RemoveReceipt(c *gin.Context) {
	draft, err := FlowService.RemoveReceipt(c.Request.Context(), patientID(c), c.Param("draftID"))
	if err != nil {
		respondFlowError(c, draft, err)
		return
	}
	respondDraft(c, draft)
}

// SubmitBooking performs the final submission.
func SubmitBooking(c *gin.Context) {
	result, draft, err := FlowService.Submit(c.Request.Context(), sessionToken(c), patientID(c), c.Param("draftID"))
	if err != nil {
		respondFlowError(c, draft, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"appointment_id": result.AppointmentID,
		"status":         result.Status,
	})
}

// CloseDraft abandons the wizard.
func CloseDraft(c *gin.Context) {
	if err := FlowService.CloseDraft(c.Request.Context(), patientID(c), c.Param("draftID")); err != nil {
		respondFlowError(c, nil, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "closed"})
}

// ListBookingRecords returns the caller's booking attempt history.
func ListBookingRecords(c *gin.Context) {
	recs, err := FlowService.ListRecords(c.Request.Context(), patientID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load booking records"})
		return
	}
	if recs == nil {
		recs = []models.BookingRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"records": recs})
}
