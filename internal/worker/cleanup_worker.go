package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"devconnect/internal/event"
	"devconnect/internal/repository"
)

// CleanupWorker consumes account-deletion events and removes what the
// synchronous delete left behind: the user's posts and their likes and
// comments on everyone else's posts.
type CleanupWorker struct {
	conn      *amqp.Connection
	postRepo  *repository.PostRepository
	queueName string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewCleanupWorker(conn *amqp.Connection, postRepo *repository.PostRepository, queueName string) *CleanupWorker {
	return &CleanupWorker{
		conn:      conn,
		postRepo:  postRepo,
		queueName: queueName,
	}
}

func (w *CleanupWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	_, err = ch.QueueDeclare(
		w.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("declare worker queue failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}

				var ev event.AccountDeleted
				if err := json.Unmarshal(d.Body, &ev); err != nil {
					log.Printf("worker decode cleanup event failed: %v", err)
					_ = d.Nack(false, false)
					continue
				}

				if err := w.cleanup(workerCtx, ev); err != nil {
					log.Printf("worker account cleanup failed: %v", err)
					_ = d.Nack(false, false)
					continue
				}

				_ = d.Ack(false)
			}
		}
	}()

	return nil
}

func (w *CleanupWorker) cleanup(ctx context.Context, ev event.AccountDeleted) error {
	uid, err := primitive.ObjectIDFromHex(ev.UserID)
	if err != nil {
		return fmt.Errorf("invalid user id in cleanup event: %w", err)
	}

	if err := w.postRepo.DeleteByAuthor(ctx, uid); err != nil {
		return err
	}
	return w.postRepo.PullAuthorActivity(ctx, uid)
}

func (w *CleanupWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
