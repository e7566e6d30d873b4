package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rogerio-castellano/shopnesty/internal/alerts"
	"github.com/rogerio-castellano/shopnesty/internal/auth"
	"github.com/rogerio-castellano/shopnesty/internal/config"
	"github.com/rogerio-castellano/shopnesty/internal/db"
	"github.com/rogerio-castellano/shopnesty/internal/events"
	api "github.com/rogerio-castellano/shopnesty/internal/http"
	"github.com/rogerio-castellano/shopnesty/internal/http/handlers"
	mw "github.com/rogerio-castellano/shopnesty/internal/http/middleware"
	rl "github.com/rogerio-castellano/shopnesty/internal/http/rate_limiter"
	"github.com/rogerio-castellano/shopnesty/internal/idempotency"
	"github.com/rogerio-castellano/shopnesty/internal/logging"
	"github.com/rogerio-castellano/shopnesty/internal/metrics"
	"github.com/rogerio-castellano/shopnesty/internal/models"
	"github.com/rogerio-castellano/shopnesty/internal/outbox"
	"github.com/rogerio-castellano/shopnesty/internal/reconcile"
	"github.com/rogerio-castellano/shopnesty/internal/redissvc"
	"github.com/rogerio-castellano/shopnesty/internal/repo"
	"github.com/rogerio-castellano/shopnesty/internal/report"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// @title Shopnesty API
// @version 1.0
// @description Cart, checkout and inventory service keeping shopper reservations and stock consistent.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	configPath := flag.String("config", "config.yaml", "path to an optional config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

type backend struct {
	tx           repo.TxStore
	products     repo.ProductRepository
	movements    repo.MovementRepository
	transactions repo.TransactionRepository
	users        repo.UserRepository
	close        func()
}

func openBackend(ctx context.Context, cfg config.Config) (backend, error) {
	switch cfg.Store.Driver {
	case "postgres":
		database, err := db.Connect(ctx, cfg.Database.URL)
		if err != nil {
			return backend{}, err
		}
		if err := db.Migrate(ctx, database); err != nil {
			database.Close()
			return backend{}, err
		}
		return backend{
			tx:           repo.NewPostgresTxStore(database),
			products:     repo.NewPostgresProductRepository(database),
			movements:    repo.NewPostgresMovementRepository(database),
			transactions: repo.NewPostgresTransactionRepository(database),
			users:        repo.NewPostgresUserRepository(database),
			close:        func() { _ = database.Close() },
		}, nil

	case "firestore":
		client, err := db.ConnectFirestore(ctx, cfg.Firestore.ProjectID, cfg.Firestore.CredentialsFile)
		if err != nil {
			return backend{}, err
		}
		return backend{
			tx:           repo.NewFirestoreStore(client),
			products:     repo.NewFirestoreProductRepository(client),
			movements:    repo.NewFirestoreMovementRepository(client),
			transactions: repo.NewFirestoreTransactionRepository(client),
			users:        repo.NewFirestoreUserRepository(client),
			close:        func() { _ = client.Close() },
		}, nil
	}

	mem := repo.NewInMemoryDB()
	return backend{
		tx:           mem,
		products:     repo.NewInMemoryProductRepository(mem),
		movements:    repo.NewInMemoryMovementRepository(mem),
		transactions: repo.NewInMemoryTransactionRepository(mem),
		users:        repo.NewInMemoryUserRepository(mem),
		close:        func() {},
	}, nil
}

func openPublisher(cfg config.Config) (events.Publisher, error) {
	switch cfg.Events.Driver {
	case "rabbitmq":
		return events.NewRabbitPublisher(cfg.Events.RabbitMQURL, cfg.Events.Queue)
	case "kafka":
		return events.NewKafkaPublisher(strings.Join(cfg.Events.KafkaBrokers, ","), cfg.Events.KafkaTopic), nil
	}
	return events.NopPublisher{}, nil
}

func seedAdmin(ctx context.Context, users repo.UserRepository, username, password string) error {
	if username == "" || password == "" {
		return nil
	}
	if _, err := users.GetByUsername(ctx, username); err == nil {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	_, err = users.CreateUser(ctx, models.User{Username: username, Name: username, PasswordHash: string(hash), Role: models.RoleAdmin})
	if errors.Is(err, repo.ErrDuplicatedValueUnique) {
		return nil
	}
	return err
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	auth.Configure(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	be, err := openBackend(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Store.Driver, err)
	}
	defer be.close()
	if err := seedAdmin(ctx, be.users, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	reg := metrics.NewRegistry()

	var alertLog alerts.Log = alerts.NewMemoryLog(cfg.Alerts.MaxEntries)
	var idem idempotency.Store = idempotency.NewMemoryStore(cfg.Checkout.IdempotencyTTL)
	if cfg.Redis.Enabled {
		rs, err := redissvc.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		defer rs.Close()
		alertLog = alerts.NewRedisLog(rs.Rdb(), cfg.Alerts.MaxEntries)
		idem = idempotency.NewRedisStore(rs.Rdb(), cfg.Checkout.IdempotencyTTL)
	}

	policy, err := reconcile.ParseMissingProductPolicy(cfg.Checkout.MissingProductPolicy)
	if err != nil {
		return err
	}
	opts := []reconcile.Option{
		reconcile.WithLogger(logger),
		reconcile.WithObserver(reg),
		reconcile.WithStockObserver(alerts.NewWatcher(alertLog, logger, reg.LowStock)),
		reconcile.WithMaxRetries(cfg.Reconcile.MaxRetries),
		reconcile.WithMissingProductPolicy(policy),
	}

	var wg sync.WaitGroup
	if cfg.Events.Driver != "none" {
		pub, err := openPublisher(cfg)
		if err != nil {
			return fmt.Errorf("events publisher: %w", err)
		}
		defer pub.Close()
		ob, err := outbox.Open(cfg.Outbox.Dir, pub, outbox.WithLogger(logger), outbox.WithStats(reg))
		if err != nil {
			return err
		}
		defer ob.Close()
		wg.Add(1)
		go func() {
			defer wg.Done()
			ob.Run(ctx, cfg.Outbox.Interval)
		}()
		opts = append(opts, reconcile.WithCheckoutNotifier(ob))
	}
	// the relay only returns once ctx is done
	defer func() {
		stop()
		wg.Wait()
	}()

	engine := reconcile.New(be.tx, opts...)

	handlers.SetProductRepo(be.products)
	handlers.SetMovementRepo(be.movements)
	handlers.SetTransactionRepo(be.transactions)
	handlers.SetUserRepo(be.users)
	handlers.SetEngine(engine)
	handlers.SetReportService(report.NewService(be.products, be.transactions, be.movements))
	handlers.SetAlertLog(alertLog)
	handlers.SetIdempotencyStore(idem)
	handlers.SetLogger(logger)

	var verifier auth.Verifier = auth.JWTVerifier{}
	if cfg.Auth.FirebaseProjectID != "" {
		fv, err := auth.NewFirebaseVerifier(ctx, cfg.Auth.FirebaseProjectID, cfg.Firestore.CredentialsFile)
		if err != nil {
			return err
		}
		verifier = auth.Chain{auth.JWTVerifier{}, fv}
	}
	mw.SetVerifier(verifier)
	mw.SetLogger(logger)
	mw.SetMetrics(reg)
	mw.SetCORSOrigins(cfg.HTTP.CORSOrigins)

	rl.Configure(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	go rl.StartVisitorCleanupLoop(ctx.Done())

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.NewRouter(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("server running",
		zap.String("addr", cfg.HTTP.Addr),
		zap.String("store", cfg.Store.Driver),
		zap.String("events", cfg.Events.Driver))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
