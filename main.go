package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shuttle/internal/catalog"
	intconfig "shuttle/internal/config"
	router "shuttle/internal/http"
	"shuttle/internal/http/handlers"
	"shuttle/internal/lock"
	"shuttle/internal/mirror"
	"shuttle/internal/notify"
	"shuttle/internal/repositories"
	"shuttle/internal/services"
	"shuttle/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	env := intconfig.LoadEnv()
	utils.ConfigureLogger(env.LogLevel, env.LogFormat)
	if env.GinMode != "" {
		gin.SetMode(env.GinMode)
	}

	ctx := context.Background()

	// Local state: MySQL kalau DSN ada, selain itu in-process (tidak durable).
	var state repositories.StateStore
	if env.MySQLDSN != "" {
		db, err := intconfig.ConnectDB(env.MySQLDSN)
		if err != nil {
			logrus.Fatalf("mysql: %v", err)
		}
		defer intconfig.CloseDB()
		repo := repositories.StateRepository{DB: db}
		if err := repo.EnsureSchema(ctx); err != nil {
			logrus.Fatalf("local_state schema: %v", err)
		}
		state = repo
	} else {
		logrus.Warn("MYSQL_DSN not set, bookings are kept in memory only")
		state = repositories.NewMemoryStateStore()
	}

	store := repositories.NewBookingStore(state, env.LocalQuotaBytes)
	if err := store.Load(ctx); err != nil {
		logrus.Fatalf("load bookings: %v", err)
	}
	meta := store.Metadata()
	logrus.WithFields(logrus.Fields{
		"bookings":    store.Len(),
		"size_mb":     meta.DataSizeMB,
		"performance": meta.PerformanceLevel,
	}).Info("local state loaded")

	var remote mirror.Mirror = mirror.Disabled{}
	if env.MongoURI != "" {
		mdb, err := intconfig.ConnectMongo(env.MongoURI, env.MongoDatabase)
		if err != nil {
			logrus.Warnf("remote mirror disabled: %v", err)
		} else {
			defer func() { _ = mdb.Client().Disconnect(context.Background()) }()
			remote = mirror.NewMongo(mdb)
		}
	}

	var locker lock.Locker = lock.NewLocal()
	if env.RedisAddr != "" {
		rdb, err := intconfig.NewRedisClient(env.RedisAddr, env.RedisPassword)
		if err != nil {
			logrus.Fatalf("redis: %v", err)
		}
		defer rdb.Close()
		locker = lock.NewRedis(rdb)
	}

	var notifier notify.Notifier = notify.Log{}
	if env.MailerSendAPIKey != "" {
		notifier = notify.NewMailerSend(env.MailerSendAPIKey, env.MailerSendFromName, env.MailerSendFromEmail, env.MailerSendTemplateID, env.AdminEmail)
	}

	auth, err := services.NewAdminAuth(env.AdminPassword, env.AdminPasswordHash, env.JWTSecret)
	if err != nil {
		logrus.Fatalf("admin auth: %v", err)
	}
	if !auth.Configured() {
		logrus.Warn("no ADMIN_PASSWORD or ADMIN_PASSWORD_HASH set, admin commands are locked")
	}

	cat := catalog.Default()
	tasks := services.NewTasks(env.RemoteTimeout)
	syncSvc := services.NewSyncService(remote, store, cat, locker, tasks)
	capacity := services.CapacityService{Catalog: cat, Seats: store}
	admission := &services.AdmissionService{
		Catalog:       cat,
		Store:         store,
		Capacity:      capacity,
		Locker:        locker,
		Sync:          syncSvc,
		Notifier:      notifier,
		Tasks:         tasks,
		FareRate:      env.FarePerPassenger,
		MaxPassengers: env.MaxPassengers,
	}
	admin := &services.AdminService{
		Store:     store,
		Catalog:   cat,
		Admission: admission,
		Sync:      syncSvc,
		Locker:    locker,
		Auth:      auth,
	}

	r := router.NewRouter(env, &handlers.Handler{
		Catalog:   cat,
		Capacity:  capacity,
		Admission: admission,
		Admin:     admin,
		Auth:      auth,
		Bookings:  store,
		UploadDir: env.UploadDir,
	})

	srv := &http.Server{
		Addr:              env.AppAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       20 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logrus.Infof("server listening on http://localhost%s", env.AppAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logrus.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("server shutdown: %v", err)
	}
	if err := tasks.Drain(shutdownCtx); err != nil {
		logrus.Warnf("background sync still running at exit: %v", err)
	}

	logrus.Info("server stopped cleanly")
}
