package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"log"
	"time"

	"github.com/hibiken/asynq"
	"github.com/nfnt/resize"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"carmarket/api/internal/config"
	"carmarket/api/internal/email"
	"carmarket/api/internal/models"
	"carmarket/api/internal/services"
	"carmarket/api/internal/storage"
)

// Task types.
const (
	TypeRentalNotify = "rental:notify"
	TypeImageProcess = "image:process"
)

// Queues.
const (
	QueueDefault = "default"
	QueueImages  = "images"
)

func redisOpt(rdb *redis.Client) asynq.RedisClientOpt {
	opts := rdb.Options()
	return asynq.RedisClientOpt{Addr: opts.Addr, Password: opts.Password, DB: opts.DB}
}

// --- Task Client (Enqueuing tasks) ---

// Enqueuer is the subset of *asynq.Client used to enqueue tasks.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

func NewAsynqClient(rdb *redis.Client) *asynq.Client {
	return asynq.NewClient(redisOpt(rdb))
}

// Client enqueues background work. It satisfies services.IRentalNotifier.
type Client struct {
	enqueuer Enqueuer
}

func NewClient(enqueuer Enqueuer) *Client {
	return &Client{enqueuer: enqueuer}
}

// RentalNotifyPayload identifies the rental whose counterpart must be told.
type RentalNotifyPayload struct {
	RentalID string               `json:"rental_id"`
	Event    services.RentalEvent `json:"event"`
	Status   models.RentalStatus  `json:"status"`
}

// ImageTaskPayload identifies an uploaded image to normalise.
type ImageTaskPayload struct {
	S3Key string `json:"s3_key"`
	CarID string `json:"car_id"`
}

func (c *Client) NotifyRental(ctx context.Context, rental *models.RentalRequest, event services.RentalEvent) error {
	payload, err := json.Marshal(RentalNotifyPayload{RentalID: rental.ID.Hex(), Event: event, Status: rental.Status})
	if err != nil {
		return err
	}
	_, err = c.enqueuer.EnqueueContext(ctx, asynq.NewTask(TypeRentalNotify, payload),
		asynq.Queue(QueueDefault), asynq.MaxRetry(5), asynq.Timeout(30*time.Second))
	return err
}

// EnqueueImageProcess schedules normalisation of an uploaded car image.
func (c *Client) EnqueueImageProcess(ctx context.Context, carID primitive.ObjectID, key string) error {
	payload, err := json.Marshal(ImageTaskPayload{S3Key: key, CarID: carID.Hex()})
	if err != nil {
		return err
	}
	_, err = c.enqueuer.EnqueueContext(ctx, asynq.NewTask(TypeImageProcess, payload),
		asynq.Queue(QueueImages), asynq.MaxRetry(3), asynq.Timeout(2*time.Minute))
	return err
}

// --- Task Server (Processing tasks) ---

// TaskProcessor holds the dependencies of the task handlers.
type TaskProcessor struct {
	cfg         *config.Config
	emailSender email.Sender
	storage     storage.IS3Storage
	rentals     services.IRentalService
	cars        services.ICarService
	users       services.IUserService
}

func NewTaskProcessor(
	cfg *config.Config,
	emailSender email.Sender,
	storageService storage.IS3Storage,
	rentals services.IRentalService,
	cars services.ICarService,
	users services.IUserService,
) *TaskProcessor {
	return &TaskProcessor{
		cfg:         cfg,
		emailSender: emailSender,
		storage:     storageService,
		rentals:     rentals,
		cars:        cars,
		users:       users,
	}
}

// NewServer configures an Asynq server and its handler mux. The image handler
// is registered only when storage is configured.
func NewServer(rdb *redis.Client, processor *TaskProcessor) (*asynq.Server, *asynq.ServeMux) {
	srv := asynq.NewServer(
		redisOpt(rdb),
		asynq.Config{
			Queues: map[string]int{
				QueueDefault: 3,
				QueueImages:  2,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				log.Printf("[Asynq Error] Task Type: %s, Payload: %s, Error: %v", task.Type(), string(task.Payload()), err)
			}),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeRentalNotify, processor.HandleRentalNotifyTask)
	if processor.storage != nil {
		mux.HandleFunc(TypeImageProcess, processor.HandleImageProcessTask)
		log.Println("Registered rental notification and image processing task handlers.")
	} else {
		log.Println("Registered rental notification task handler (no image storage configured).")
	}
	return srv, mux
}

// --- Task Handlers ---

// noticeFor decides who hears about a rental change and what they are told.
func noticeFor(event services.RentalEvent, status models.RentalStatus, renter, owner *models.User) (recipient, other *models.User, topic string) {
	switch {
	case event == services.RentalEventCreated:
		return owner, renter, email.TopicRentalRequested
	case event == services.RentalEventExpired:
		return renter, owner, email.TopicRentalExpired
	case status == models.RentalCancelled:
		return owner, renter, email.TopicRentalStatus
	default:
		return renter, owner, email.TopicRentalStatus
	}
}

func (p *TaskProcessor) HandleRentalNotifyTask(ctx context.Context, t *asynq.Task) error {
	var payload RentalNotifyPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal rental notify payload: %v: %w", err, asynq.SkipRetry)
	}
	rentalID, err := primitive.ObjectIDFromHex(payload.RentalID)
	if err != nil {
		return fmt.Errorf("invalid rental ID in payload: %w", asynq.SkipRetry)
	}

	rental, err := p.rentals.FindByID(ctx, rentalID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			log.Printf("Rental %s no longer exists, dropping notification", payload.RentalID)
			return fmt.Errorf("rental not found: %w", asynq.SkipRetry)
		}
		return err
	}
	renter, err := p.users.FindByID(ctx, rental.RenterID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return fmt.Errorf("renter not found: %w", asynq.SkipRetry)
		}
		return err
	}
	owner, err := p.users.FindByID(ctx, rental.OwnerID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return fmt.Errorf("owner not found: %w", asynq.SkipRetry)
		}
		return err
	}
	carTitle := "your car"
	if car, err := p.cars.FindByID(ctx, rental.CarID); err == nil {
		carTitle = car.Title
	} else if !errors.Is(err, mongo.ErrNoDocuments) {
		return err
	}

	// The status at enqueue time is reported, not whatever it became since.
	status := payload.Status
	if status == "" {
		status = rental.Status
	}
	recipient, other, topic := noticeFor(payload.Event, status, renter, owner)
	msg, err := email.BuildRentalMessage(email.RentalNotice{
		AppName:       p.cfg.AppName,
		RecipientName: recipient.Name,
		RecipientMail: recipient.Email,
		Topic:         topic,
		CarTitle:      carTitle,
		OtherParty:    other.Name,
		Status:        string(status),
		StartDate:     rental.StartDate,
		EndDate:       rental.EndDate,
		TotalPrice:    rental.TotalPrice,
	})
	if err != nil {
		return fmt.Errorf("failed to build rental email: %v: %w", err, asynq.SkipRetry)
	}

	if err := p.emailSender.Send(ctx, msg); err != nil {
		log.Printf("Rental email to %s failed (will retry): %v", recipient.Email, err)
		return err
	}
	log.Printf("Rental %s notification (%s) sent to %s", payload.RentalID, topic, recipient.Email)
	return nil
}

func (p *TaskProcessor) HandleImageProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload ImageTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal image task payload: %v: %w", err, asynq.SkipRetry)
	}
	carID, err := primitive.ObjectIDFromHex(payload.CarID)
	if err != nil {
		return fmt.Errorf("invalid car ID in payload: %w", asynq.SkipRetry)
	}

	log.Printf("Processing image task: S3Key=%s, CarID=%s", payload.S3Key, payload.CarID)

	imgData, contentType, err := p.storage.Download(ctx, payload.S3Key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			log.Printf("S3 object %s not found, likely upload failed or key incorrect.", payload.S3Key)
			return fmt.Errorf("s3 object not found: %w", asynq.SkipRetry)
		}
		return err
	}

	maxSizeBytes := int64(p.cfg.ImageMaxSizeMB) * 1024 * 1024
	if int64(len(imgData)) > maxSizeBytes {
		log.Printf("Image %s exceeds max size (%d > %d bytes). Skipping.", payload.S3Key, len(imgData), maxSizeBytes)
		return fmt.Errorf("image exceeds max size: %w", asynq.SkipRetry)
	}

	img, format, err := image.Decode(bytes.NewReader(imgData))
	if err != nil {
		log.Printf("Error decoding image for key %s: %v", payload.S3Key, err)
		return fmt.Errorf("unsupported image format or corrupt image: %w", asynq.SkipRetry)
	}

	maxDim := uint(p.cfg.ImageMaxDimension)
	needsResize := uint(img.Bounds().Dx()) > maxDim || uint(img.Bounds().Dy()) > maxDim

	processed := imgData
	if needsResize || format != "jpeg" {
		if needsResize {
			img = resize.Thumbnail(maxDim, maxDim, img, resize.Lanczos3)
		}
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
			return fmt.Errorf("failed to re-encode image: %w", err)
		}
		processed = buf.Bytes()
		contentType = "image/jpeg"
		if int64(len(processed)) > maxSizeBytes {
			return fmt.Errorf("processed image still exceeds max size: %w", asynq.SkipRetry)
		}
		log.Printf("Normalised image %s (%s) to %dx%d JPEG", payload.S3Key, format, img.Bounds().Dx(), img.Bounds().Dy())
	}

	if err := p.storage.Upload(ctx, payload.S3Key, processed, contentType); err != nil {
		return err
	}

	if err := p.cars.AddImage(ctx, carID, payload.S3Key); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return fmt.Errorf("car %s no longer exists: %w", payload.CarID, asynq.SkipRetry)
		}
		return fmt.Errorf("failed to add processed image to car: %w", err)
	}

	log.Printf("Image task processed successfully: Key=%s, CarID=%s", payload.S3Key, payload.CarID)
	return nil
}
