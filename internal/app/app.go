// Package app assembles services and routes for the API server and the e2e suite.
package app

import (
	"net/http"

	"filmrental/internal/config"
	"filmrental/internal/middleware"
	"filmrental/internal/modules/allocation"
	"filmrental/internal/modules/availability"
	"filmrental/internal/modules/history"
	"filmrental/internal/modules/inventory"
	"filmrental/internal/modules/jobs"
	"filmrental/internal/modules/notification"
	"filmrental/internal/modules/repair"
	"filmrental/internal/modules/reservation"
	jwtsvc "filmrental/internal/pkg/jwt"
	"filmrental/internal/pkg/lock"
	"filmrental/internal/repository"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type App struct {
	Router        *gin.Engine
	JWT           *jwtsvc.Service
	Hub           *notification.Hub
	Store         *repository.Store
	Reservations  *reservation.Service
	Notifications *notification.Service
}

// New wires every module over db. locker serializes allocation across requests;
// pass lock.NewLocal() for a single instance.
func New(cfg *config.Config, db *gorm.DB, locker lock.Locker) *App {
	store := repository.NewStore(db)
	j := jwtsvc.New(cfg.JWTSecret, cfg.JWTTTL)

	recorder := history.NewRecorder()
	engine := allocation.NewEngine(store, locker, recorder)
	calc := availability.NewCalculator(store, cfg.AvailabilityMaxDays)

	hub := notification.NewHub()
	notifService := notification.NewService(store.Notifications, hub)

	reservationService := reservation.NewService(store, engine, calc, notifService)
	repairService := repair.NewService(store, recorder, notifService)
	inventoryService := inventory.NewService(store, locker, recorder, cfg.CatalogLocale)
	historyService := history.NewService(store)

	reservationHandler := reservation.NewHandler(reservationService)
	allocationHandler := allocation.NewHandler(engine)
	availabilityHandler := availability.NewHandler(calc)
	repairHandler := repair.NewHandler(repairService)
	inventoryHandler := inventory.NewHandler(inventoryService)
	historyHandler := history.NewHandler(historyService)
	notifHandler := notification.NewHandler(notifService, hub, cfg.CORSAllowedOrigins)
	jobsHandler := jobs.NewHandler(reservationService, notifService, cfg.NotificationKeep)

	if cfg.IsProdLike() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Logger())
	r.Use(middleware.ErrorLogger())
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")
	protected := v1.Group("")
	protected.Use(middleware.JWTAuth(j))
	{
		inventoryHandler.RegisterRoutes(protected)
		availabilityHandler.RegisterRoutes(protected)
		reservationHandler.RegisterRoutes(protected)
		notifHandler.RegisterRoutes(protected)
	}

	admin := protected.Group("/admin")
	admin.Use(middleware.AdminOnly())
	{
		reservationHandler.RegisterAdminRoutes(admin)
		allocationHandler.RegisterAdminRoutes(admin)
		inventoryHandler.RegisterAdminRoutes(admin)
		repairHandler.RegisterAdminRoutes(admin)
		historyHandler.RegisterAdminRoutes(admin)
	}

	internal := r.Group("/internal")
	internal.Use(middleware.InternalTokenAuth(cfg.InternalToken, cfg.InternalAllowedIPs))
	{
		jobsHandler.RegisterRoutes(internal)
	}

	return &App{
		Router:        r,
		JWT:           j,
		Hub:           hub,
		Store:         store,
		Reservations:  reservationService,
		Notifications: notifService,
	}
}
