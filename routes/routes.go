package routes

import (
	"net/http"
	"time"

	"mindmate/handlers"
	"mindmate/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	RegisterHealthRoute(r)
	RegisterSpecialistRoutes(r)
	RegisterBookingRoutes(r)
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Hi, I'm MindMate"})
	})
}

// RegisterSpecialistRoutes registers the specialist directory endpoints.
func RegisterSpecialistRoutes(r *gin.Engine) {
	api := r.Group("/api/specialists")
	{
		api.Use(middleware.JWTAuthPatientMiddleware())
		api.GET("/search", handlers.SearchSpecialists)
		api.GET("/:specialistID/week-slots", handlers.WeekSlots)
	}
}

// RegisterBookingRoutes sets up the endpoints for the booking wizard.
func RegisterBookingRoutes(r *gin.Engine) {
	api := r.Group("/api/booking")
	{
		api.Use(middleware.JWTAuthPatientMiddleware())

		api.POST("/draft", handlers.OpenDraft)
		api.GET("/draft/:draftID", handlers.GetDraft)
		api.PUT("/draft/:draftID/specialist", handlers.SetSpecialist)
		api.PUT("/draft/:draftID/mode", handlers.SetMode)
		api.PUT("/draft/:draftID/date", handlers.SetDate)
		api.POST("/draft/:draftID/slots/refresh", handlers.RefreshSlots)
		api.PUT("/draft/:draftID/slot", handlers.SelectSlot)
		api.PUT("/draft/:draftID/details", handlers.SetDetails)
		api.PUT("/draft/:draftID/payment", handlers.SetPayment)
		api.POST("/draft/:draftID/receipt", handlers.UploadReceipt)
		api.DELETE("/draft/:draftID/receipt", handlers.RemoveReceipt)
		api.POST("/draft/:draftID/submit", handlers.SubmitBooking)
		api.DELETE("/draft/:draftID", handlers.CloseDraft)

		api.GET("/records", handlers.ListBookingRecords)
	}
}
