package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"carmarket/api/internal/api"
	"carmarket/api/internal/api/handlers"
	"carmarket/api/internal/cache"
	"carmarket/api/internal/config"
	"carmarket/api/internal/db"
	"carmarket/api/internal/email"
	"carmarket/api/internal/scheduler"
	"carmarket/api/internal/services"
	"carmarket/api/internal/storage"
	"carmarket/api/internal/tasks"
)

var runMode = flag.String("m", "all", "Run mode: 'api', 'bg' (background worker and scheduler), 'all' (default)")

func main() {
	flag.Parse()

	cfg, err := config.Load(*runMode)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	switch cfg.RunMode {
	case "api", "bg", "all":
	default:
		log.Fatalf("Invalid run mode: %s.", cfg.RunMode)
	}

	mongoClient, mongoDb, err := db.ConnectDB(cfg.MongoURI, cfg.MongoDbName)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := db.DisconnectDB(mongoClient); err != nil {
			log.Printf("Error disconnecting from MongoDB: %v", err)
		}
	}()

	indexCtx, cancelIndexes := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.EnsureIndexes(indexCtx, mongoDb); err != nil {
		log.Fatalf("Failed to ensure indexes: %v", err)
	}
	cancelIndexes()

	// Redis is shared by the booking lock and asynq.
	// Without it the API still runs with an in-process lock and no worker.
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient, err = cache.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer func() {
			if err := cache.DisconnectRedis(redisClient); err != nil {
				log.Printf("Error disconnecting from Redis: %v", err)
			}
		}()
	} else if cfg.RunMode != "api" {
		log.Fatalf("Run mode '%s' needs Redis: set REDIS_ADDR.", cfg.RunMode)
	} else {
		log.Println("REDIS_ADDR empty: using in-process booking lock, notifications disabled.")
	}

	var locker cache.Locker = cache.NewLocalLocker()
	var notifier services.IRentalNotifier
	var imageQueue handlers.ImageQueue
	if redisClient != nil {
		locker = cache.NewRedisLocker(redisClient, cfg.BookingLockTTL)
		asynqClient := tasks.NewAsynqClient(redisClient)
		defer asynqClient.Close()
		taskClient := tasks.NewClient(asynqClient)
		notifier = taskClient
		imageQueue = taskClient
	}

	var imageStore storage.IS3Storage
	if cfg.AwsS3Bucket != "" {
		imageStore, err = storage.NewS3Storage(context.Background(), cfg)
		if err != nil {
			log.Fatalf("Failed to initialize S3 storage: %v", err)
		}
	} else {
		log.Println("AWS_S3_BUCKET empty: image uploads disabled.")
		imageQueue = nil
	}

	// Email: SMTP (or log output) plus the Redis mailbox when mocking.
	emailSender := email.NewCompositeEmailSender(email.NewSMTPSender(cfg))
	var mockMail *email.RedisSender
	if os.Getenv("MOCK_SERVICES") == "true" && redisClient != nil {
		log.Println("MOCK_SERVICES enabled: capturing emails in Redis.")
		mockMail = email.NewRedisSender(redisClient, cfg)
		emailSender.AddSender(mockMail)
	}

	userService, err := services.NewUserService(mongoDb, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize user service: %v", err)
	}
	brandService, err := services.NewBrandService(mongoDb, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize brand service: %v", err)
	}
	carService := services.NewCarService(mongoDb, userService)
	usedCarService := services.NewUsedCarService(mongoDb)
	rentalService := services.NewRentalService(mongoDb, locker, notifier)
	reviewService := services.NewReviewService(mongoDb, rentalService, cfg)

	var wg sync.WaitGroup
	shutdownChan := make(chan struct{}, 1)

	serviceSrv := &http.Server{
		Addr:    ":" + cfg.ServiceApiPort,
		Handler: api.SetupServiceRouter(mockMail, shutdownChan),
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Printf("Service API listening on :%s", cfg.ServiceApiPort)
		if err := serviceSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Service API ListenAndServe error: %v", err)
		}
		log.Println("Service API server stopped.")
	}()

	var mainApiSrv *http.Server
	var taskSrv *asynq.Server
	var sweeper *scheduler.Scheduler

	log.Printf("Starting application in '%s' mode...", cfg.RunMode)

	if cfg.RunMode == "api" || cfg.RunMode == "all" {
		mainApiSrv = &http.Server{
			Addr: ":" + cfg.ApiPort,
			Handler: api.SetupRouter(cfg, api.Services{
				Users:    userService,
				Brands:   brandService,
				Cars:     carService,
				UsedCars: usedCarService,
				Rentals:  rentalService,
				Reviews:  reviewService,
				Storage:  imageStore,
				Images:   imageQueue,
			}),
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Printf("Main API listening on :%s", cfg.ApiPort)
			if err := mainApiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Main API ListenAndServe error: %v", err)
			}
			log.Println("Main API server stopped.")
		}()
	}

	if (cfg.RunMode == "bg" || cfg.RunMode == "all") && redisClient != nil {
		processor := tasks.NewTaskProcessor(cfg, emailSender, imageStore, rentalService, carService, userService)
		var mux *asynq.ServeMux
		taskSrv, mux = tasks.NewServer(redisClient, processor)
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Println("Background task server starting...")
			if err := taskSrv.Run(mux); err != nil {
				log.Fatalf("Background task server error: %v", err)
			}
			log.Println("Background task server stopped.")
		}()

		sweeper, err = scheduler.New(rentalService, cfg.StaleRentalSweepCron)
		if err != nil {
			log.Fatalf("Failed to set up scheduler: %v", err)
		}
		sweeper.Start()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Printf("Received signal: %s. Shutting down gracefully...", sig)
	case <-shutdownChan:
		log.Println("Shutdown requested via Service API. Shutting down gracefully...")
	}

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()

	if err := serviceSrv.Shutdown(ctxShutdown); err != nil {
		log.Printf("Service API server shutdown error: %v", err)
	}
	if mainApiSrv != nil {
		if err := mainApiSrv.Shutdown(ctxShutdown); err != nil {
			log.Printf("Main API server shutdown error: %v", err)
		}
	}
	if sweeper != nil {
		sweeper.Stop()
	}
	if taskSrv != nil {
		taskSrv.Shutdown()
	}

	wg.Wait()
	log.Println("Server gracefully stopped")
}
