package handlers

import (
	"net/http"
	"strconv"
	"time"

	"mindmate/config"
	"mindmate/models"
	"mindmate/services/scheduling"
	"mindmate/utils"

	"github.com/gin-gonic/gin"
)

// SchedClient is injected at startup.
var SchedClient scheduling.Client

// SearchSpecialists proxies the specialist directory search.
func SearchSpecialists(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))

	q := models.SpecialistQuery{
		City:             c.Query("city"),
		Specialization:   c.Query("specialization"),
		ConsultationMode: models.CanonicalMode(c.Query("consultation_mode")),
		Page:             page,
		Size:             size,
	}

	result, err := SchedClient.SearchSpecialists(c.Request.Context(), c.GetString("sessionToken"), q)
	if err != nil {
		utils.JSONError(c, http.StatusBadGateway, "specialist search is unavailable right now", err.Error())
		return
	}
	c.JSON(http.StatusOK, result)
}

// WeekSlots returns a specialist's bookable slots across the whole
// booking window, grouped by day, so the date picker can grey out
// empty days up front.
func WeekSlots(c *gin.Context) {
	specialistID := c.Param("specialistID")
	mode := models.CanonicalMode(c.DefaultQuery("appointment_type", models.ModeOnline))

	horizon := config.AppConfig.BookingHorizonDays
	if horizon <= 0 {
		horizon = 7
	}
	now := time.Now()
	start := now.Format("2006-01-02")
	end := now.AddDate(0, 0, horizon).Format("2006-01-02")

	slots, err := SchedClient.SlotsForRange(c.Request.Context(), c.GetString("sessionToken"), specialistID, start, end, mode)
	if err != nil {
		utils.JSONError(c, http.StatusBadGateway, "could not load the availability overview", err.Error())
		return
	}

	byDay := make(map[string][]models.TimeSlot)
	for _, s := range slots {
		if !s.Bookable() || !models.ModesEquivalent(s.Mode, mode) || !s.Start.After(now) {
			continue
		}
		key := s.DateKey()
		byDay[key] = append(byDay[key], s)
	}
	c.JSON(http.StatusOK, gin.H{
		"specialist_id":    specialistID,
		"appointment_type": mode,
		"start_date":       start,
		"end_date":         end,
		"days":             byDay,
	})
}
