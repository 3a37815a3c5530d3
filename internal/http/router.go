package api

import (
	stdhttp "net/http"

	intconfig "shuttle/internal/config"
	h "shuttle/internal/http/handlers"
	"shuttle/internal/http/middleware"
	"shuttle/internal/services"
	"shuttle/internal/utils"

	"github.com/gin-gonic/gin"
)

// maxBodyBytes bounds multipart uploads; the proof itself is capped lower.
const maxBodyBytes = 6 << 20

func NewRouter(env intconfig.Env, hd *h.Handler) *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = maxBodyBytes
	r.Use(middleware.RequestID(), middleware.Logger(), gin.Recovery(), middleware.CORS(env.CORSAllowedOrigins))

	if err := r.SetTrustedProxies(nil); err != nil {
		utils.LogWarn("", "http", "trusted_proxies", err.Error())
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(stdhttp.StatusNotFound, gin.H{
			"error":  "route not found",
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
	})

	api := r.Group("/api")
	{
		api.GET("/health", h.Health)
		api.GET("/db-check", h.DBCheck)
		api.GET("/routes", h.Routes)

		// Slots & fares
		api.GET("/slots", hd.ListSlots)
		api.GET("/slots/:id/capacity", hd.SlotCapacity)
		api.GET("/fare", hd.Fare)

		// Bookings
		bookings := api.Group("/bookings")
		bookings.POST("", hd.CreateBooking)
		bookings.GET("/:id", hd.GetBooking)
		bookings.GET("/:id/ticket", hd.BookingTicket)

		// Admin
		api.POST("/admin/login", hd.AdminLogin)
		admin := api.Group("/admin", middleware.BearerAuth(hd.Auth), middleware.RequireRoles(services.RoleAdmin))
		admin.GET("/export", hd.AdminExport)
		admin.GET("/stats", hd.AdminStats)
		admin.GET("/logs", hd.AdminLogs)
		admin.POST("/archive", hd.AdminArchive)
		admin.POST("/clear", hd.AdminClear)
		admin.POST("/bookings", hd.AdminInsertBooking)
		admin.POST("/bookings/:id/cancel", hd.AdminCancelBooking)
		admin.GET("/reconcile", hd.AdminReconcile)
		admin.POST("/resync", hd.AdminResync)
		admin.POST("/force-sync", hd.AdminForceSync)
	}

	h.SetRouter(r)
	return r
}
