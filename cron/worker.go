package cron

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"mindmate/config"
	"mindmate/services/notification"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
)

const TypeBookingConfirmed = "booking:confirmed"

// BookingConfirmedPayload is the task body for a confirmation push.
type BookingConfirmedPayload struct {
	PatientID     string `json:"patient_id"`
	AppointmentID string `json:"appointment_id"`
	SpecialistID  string `json:"specialist_id"`
}

func queueRedisOpts() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}
}

// Enqueuer pushes confirmation tasks onto the queue. It satisfies the
// booking flow's ConfirmationQueue.
type Enqueuer struct {
	client *asynq.Client
}

func NewEnqueuer() *Enqueuer {
	return &Enqueuer{client: asynq.NewClient(queueRedisOpts())}
}

func (e *Enqueuer) EnqueueBookingConfirmed(ctx context.Context, patientID, appointmentID, specialistID string) error {
	payload, err := json.Marshal(BookingConfirmedPayload{
		PatientID:     patientID,
		AppointmentID: appointmentID,
		SpecialistID:  specialistID,
	})
	if err != nil {
		return err
	}
	task := asynq.NewTask(TypeBookingConfirmed, payload)
	_, err = e.client.EnqueueContext(ctx, task, asynq.MaxRetry(5), asynq.Timeout(30*time.Second))
	return err
}

func (e *Enqueuer) Close() error {
	return e.client.Close()
}

// InitBookingWorker runs the async worker in background.
func InitBookingWorker(notifSvc notification.NotificationService) {
	srv := asynq.NewServer(
		queueRedisOpts(),
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeBookingConfirmed, handleBookingConfirmedTask(notifSvc))

	go monitorRedisConnection()

	go func() {
		log.Println("[BookingWorker] starting async worker...")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[BookingWorker] attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)

				if attempts == maxAttempts {
					log.Fatal("[BookingWorker] max retry attempts reached, exiting")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second)
			} else {
				break
			}
		}
	}()
}

func handleBookingConfirmedTask(notifSvc notification.NotificationService) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p BookingConfirmedPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			log.Printf("[BookingWorker] invalid payload: %v", err)
			return err
		}

		if err := notifSvc.NotifyBookingConfirmed(ctx, p.PatientID, p.AppointmentID, p.SpecialistID); err != nil {
			log.Printf("[BookingWorker] failed to send confirmation for appointment %s: %v", p.AppointmentID, err)
			return err
		}
		return nil
	}
}

// monitorRedisConnection pings Redis periodically to detect failures at runtime.
func monitorRedisConnection() {
	client := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	})

	ctx := context.Background()

	for {
		if err := client.Ping(ctx).Err(); err != nil {
			log.Printf("[BookingWorker] redis connection lost: %v", err)
		}
		time.Sleep(10 * time.Second)
	}
}
