package notification

import (
	"context"
	"fmt"

	"mindmate/utils"

	"firebase.google.com/go/v4/messaging"
)

// NotificationService defines methods for sending FCM pushes to
// patients. Devices subscribe to a per-patient topic at sign-in, so no
// token registry lives in this service.
type NotificationService interface {
	SendPatientPushNotification(ctx context.Context, patientID, title, body string, data map[string]string) error
	NotifyBookingConfirmed(ctx context.Context, patientID, appointmentID, specialistID string) error
}

// DefaultNotificationService is the production implementation.
type DefaultNotificationService struct{}

func NewDefaultNotificationService() *DefaultNotificationService {
	return &DefaultNotificationService{}
}

func patientTopic(patientID string) string {
	return "patient_" + patientID
}

// SendPatientPushNotification publishes a push to the patient's topic.
func (s *DefaultNotificationService) SendPatientPushNotification(
	ctx context.Context,
	patientID, title, body string,
	data map[string]string,
) error {
	if utils.FCMClient == nil {
		return fmt.Errorf("SendPatientPushNotification: FCM client not initialized")
	}
	if data == nil {
		data = map[string]string{}
	}
	if _, ok := data["role"]; !ok {
		data["role"] = "patient"
	}

	msg := &messaging.Message{
		Topic: patientTopic(patientID),
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID: "high_priority",
				Sound:     "default",
			},
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{
				"apns-priority":  "10",
				"apns-push-type": "alert",
			},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound: "default",
				},
			},
		},
	}

	if _, err := utils.FCMClient.Send(ctx, msg); err != nil {
		return fmt.Errorf("SendPatientPushNotification: failed to send FCM message: %w", err)
	}
	return nil
}

// NotifyBookingConfirmed tells the patient their appointment is booked.
func (s *DefaultNotificationService) NotifyBookingConfirmed(
	ctx context.Context,
	patientID, appointmentID, specialistID string,
) error {
	title := "Appointment confirmed"
	body := "Your session is booked. Check your appointments for the details."
	return s.SendPatientPushNotification(ctx, patientID, title, body, map[string]string{
		"type":           "booking_confirmed",
		"appointment_id": appointmentID,
		"specialist_id":  specialistID,
	})
}
