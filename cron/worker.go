package cron

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"lacquer/config"
	"lacquer/services/payment"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
)

// InitAuthorizationWorker runs the async worker in background. It consumes the
// delayed cancel tasks enqueued when an authorization is created, releasing
// intents that were never confirmed before the hold expired.
func InitAuthorizationWorker(psp payment.PSPClient) {
	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(payment.TaskTypeAuthorizationCancel, handleCancelTask(psp))

	// Start Redis health monitor
	go monitorRedisConnection()

	// Start async worker with retry logic
	go func() {
		log.Println("[AuthorizationWorker] Starting async worker...")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[AuthorizationWorker] Attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)

				if attempts == maxAttempts {
					log.Fatal("[AuthorizationWorker] Max retry attempts reached. Exiting.")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second) // Exponential backoff
			} else {
				break
			}
		}
	}()
}

func handleCancelTask(psp payment.PSPClient) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p payment.CancelTaskPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			log.Printf("[AuthorizationWorker] Invalid payload: %v", err)
			return err
		}

		// Canceling an already-confirmed or already-canceled intent is a no-op
		// at the processor, so the sweep does not need to re-check status.
		if err := psp.CancelIntent(ctx, p.IntentID); err != nil {
			log.Printf("[AuthorizationWorker] Failed to cancel intent %s: %v", p.IntentID, err)
			return err
		}

		log.Printf("[AuthorizationWorker] Released expired intent %s", p.IntentID)
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
			log.Printf("[AuthorizationWorker] Redis connection lost: %v", err)
		}
		time.Sleep(10 * time.Second)
	}
}
