package bootstrap

import (
	"context"
	"log"
	"net/http"

	"genstudio-be/internal/config"
	"genstudio-be/internal/controller"
	"genstudio-be/internal/pkg/logger"
	"genstudio-be/internal/pkg/serverutils"
	"genstudio-be/internal/repository/unitofwork"
	"genstudio-be/internal/service"
	"genstudio-be/pkg/backfill"
	"genstudio-be/pkg/billing"
	"genstudio-be/pkg/blob"
	"genstudio-be/pkg/dispatch"
	"genstudio-be/pkg/ledgerevents"
	"genstudio-be/pkg/metrics"
	"genstudio-be/pkg/reconcile"
	"genstudio-be/pkg/taskpoller"
	"genstudio-be/pkg/taskstate"

	pktNats "genstudio-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const auditDurableName = "genstudio-ledger-audit"

type Container struct {
	// Controllers
	GenerationController controller.IGenerationController
	UserController       controller.IUserController
	LibraryController    controller.ILibraryController
	AdminController      controller.IAdminController

	JwtMiddleware         fiber.Handler
	OptionalJwtMiddleware fiber.Handler

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService
	TaskPoller      *taskpoller.Poller

	Logger logger.ILogger

	closers []func()
}

// Options lets tests swap infrastructure that would otherwise be dialled from config.
type Options struct {
	Logger       logger.ILogger
	HTTPClient   *http.Client
	Blobs        blob.Store
	TaskState    TaskState
	EventSink    ledgerevents.EventSink
	Metrics      *metrics.GenerationMetrics
	SkipExternal bool // no NATS or Redis
}

// TaskState is satisfied by taskstate.MemoryStore and taskstate.RedisStore.
type TaskState interface {
	taskstate.PendingStore
	taskstate.Guard
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	return NewContainerWithOptions(db, cfg, Options{})
}

func NewContainerWithOptions(db *gorm.DB, cfg *config.Config, opts Options) *Container {
	ctx := context.Background()
	c := &Container{}

	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := opts.Logger
	if sysLogger == nil {
		sysLogger = logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.IsProduction())
	}
	c.Logger = sysLogger

	genMetrics := opts.Metrics
	if genMetrics == nil {
		genMetrics = metrics.Generation(metrics.Config{Environment: cfg.App.Environment})
	}

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		watermillLogger,
	)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	// 3. Infrastructure
	// NATS: ledger events are best effort. Without a connection they are dropped.
	var eventSink ledgerevents.EventSink
	if opts.EventSink != nil {
		eventSink = opts.EventSink
	} else if !opts.SkipExternal {
		natsPub, err := pktNats.NewPublisher(ctx, cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		} else {
			eventSink = natsPub
			natsSub := pktNats.NewSubscriber(natsPub)
			if err := natsSub.Subscribe(ctx, pktNats.Subject(">"), auditDurableName, ledgerevents.AuditHandler(sysLogger)); err != nil {
				log.Printf("[WARN] Failed to start ledger audit subscriber: %v", err)
			}
			c.closers = append(c.closers, natsSub.Stop, natsPub.Close)
		}
	}
	ledgerPublisher := ledgerevents.NewNatsPublisher(eventSink, sysLogger)

	// Redis: pending tasks and guards. Falls back to process memory when unreachable.
	taskState := opts.TaskState
	if taskState == nil {
		taskState = newTaskState(ctx, cfg, opts.SkipExternal)
	}

	// Blob store
	blobs := opts.Blobs
	if blobs == nil {
		var err error
		blobs, err = newBlobStore(ctx, cfg)
		if err != nil {
			log.Fatalf("[FATAL] Failed to initialize blob store: %v", err)
		}
	}

	// 4. Domain components
	dispatcher := dispatch.NewDispatcher(dispatch.Config{
		BaseURL:        cfg.Backend.BaseURL,
		InternalSecret: cfg.Backend.InternalSecret,
		Timeout:        cfg.Backend.Timeout,
		TaskStatusPath: cfg.Backend.TaskStatusPath,
		TaskCancelPath: cfg.Backend.TaskCancelPath,
	}, opts.HTTPClient, sysLogger)

	gate := billing.NewGate(uowFactory, cfg.Billing.BypassUserID, ledgerPublisher, sysLogger)
	refunder := billing.NewRefunder(uowFactory, ledgerPublisher, sysLogger)
	adjuster := billing.NewAdjuster(uowFactory, ledgerPublisher, sysLogger)

	classifier := reconcile.NewClassifier(reconcile.DefaultRules)
	reconciler := reconcile.NewReconciler(uowFactory, blobs, classifier, ledgerPublisher, sysLogger)
	backfillRunner := backfill.NewRunner(uowFactory, classifier, sysLogger)

	// 5. Services
	publisherService := service.NewPublisherService(cfg.Events.GenerationTaskTopic, pubSub, sysLogger)
	poller := taskpoller.New(dispatcher, cfg.Backend.TaskPollInterval, publisherService.PublishTaskTerminal, sysLogger)
	c.TaskPoller = poller
	c.closers = append(c.closers, poller.Stop)

	generationService := service.NewGenerationService(service.GenerationServiceDeps{
		Gate:       gate,
		Refunder:   refunder,
		Backend:    dispatcher,
		Reconciler: reconciler,
		Pending:    taskState,
		Guard:      taskState,
		Tracker:    poller,
		Metrics:    genMetrics,
		Logger:     sysLogger,
		FreePaths:  cfg.Billing.FreePaths,
	})
	c.ConsumerService = service.NewConsumerService(pubSub, cfg.Events.GenerationTaskTopic, generationService, sysLogger)

	userService := service.NewUserService(uowFactory)
	libraryService := service.NewLibraryService(uowFactory, reconciler, sysLogger)
	adminService := service.NewAdminService(uowFactory, adjuster, backfillRunner, sysLogger)

	// 6. Controllers
	c.GenerationController = controller.NewGenerationController(generationService)
	c.UserController = controller.NewUserController(userService)
	c.LibraryController = controller.NewLibraryController(libraryService)
	c.AdminController = controller.NewAdminController(adminService)

	c.JwtMiddleware = serverutils.JwtMiddleware(cfg.Auth.JWTSecret)
	c.OptionalJwtMiddleware = serverutils.OptionalJwtMiddleware(cfg.Auth.JWTSecret)

	return c
}

// Close releases background resources in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
	if c.Logger != nil {
		_ = c.Logger.Sync()
	}
}

func newTaskState(ctx context.Context, cfg *config.Config, skipRedis bool) TaskState {
	if skipRedis || cfg.App.RedisURL == "" {
		return taskstate.NewMemoryStore()
	}

	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v. Tracking tasks in memory", err)
		_ = rdb.Close()
		return taskstate.NewMemoryStore()
	}
	return taskstate.NewRedisStore(rdb)
}

func newBlobStore(ctx context.Context, cfg *config.Config) (blob.Store, error) {
	if cfg.Storage.Driver == "s3" {
		s3cfg := cfg.Storage.S3
		log.Printf("[INFO] Using blob store: S3 (bucket %s)", s3cfg.Bucket)
		return blob.NewS3Store(ctx, blob.S3Config{
			AccessKey:     s3cfg.AccessKey,
			SecretKey:     s3cfg.SecretKey,
			Region:        s3cfg.Region,
			Bucket:        s3cfg.Bucket,
			Endpoint:      s3cfg.Endpoint,
			PublicBaseURL: s3cfg.PublicBaseURL,
			UsePathStyle:  s3cfg.UsePathStyle,
		})
	}
	log.Printf("[INFO] Using blob store: local (%s)", cfg.Storage.UploadDir)
	return blob.NewLocalStore(cfg.Storage.UploadDir, cfg.Storage.PublicPrefix)
}
