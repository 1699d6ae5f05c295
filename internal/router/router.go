package router

import (
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/Digital-Mercenaries/zorp/internal/config"
	"github.com/Digital-Mercenaries/zorp/internal/handlers"
	"github.com/Digital-Mercenaries/zorp/internal/middleware"
)

// corsMiddleware CORS middleware
// Priority: Environment Variable > YAML Config > Default (*)
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		var allowedOrigins []string
		var allowCredentials = true
		var maxAge = 3600

		// Priority 1: Check environment variable (highest priority)
		envOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
		if envOrigins != "" {
			origins := strings.Split(envOrigins, ",")
			allowedOrigins = make([]string, 0, len(origins))
			for _, o := range origins {
				trimmed := strings.TrimSpace(o)
				if trimmed != "" {
					allowedOrigins = append(allowedOrigins, trimmed)
				}
			}
		} else if config.AppConfig != nil && len(config.AppConfig.CORS.AllowedOrigins) > 0 {
			// Priority 2: Read from YAML config
			allowedOrigins = config.AppConfig.CORS.AllowedOrigins
			allowCredentials = config.AppConfig.CORS.AllowCredentials
			if config.AppConfig.CORS.MaxAge > 0 {
				maxAge = config.AppConfig.CORS.MaxAge
			}
		} else {
			// Priority 3: Default - allow all origins
			allowedOrigins = []string{"*"}
		}

		originAllowed := func() bool {
			for _, allowedOrigin := range allowedOrigins {
				if strings.TrimSpace(allowedOrigin) == origin {
					return true
				}
			}
			return false
		}

		if len(allowedOrigins) == 1 && allowedOrigins[0] == "*" {
			c.Header("Access-Control-Allow-Origin", "*")
		} else if origin != "" {
			if originAllowed() {
				c.Header("Access-Control-Allow-Origin", origin)
			} else {
				logrus.WithFields(logrus.Fields{
					"request_origin":  origin,
					"allowed_origins": allowedOrigins,
					"path":            c.Request.URL.Path,
					"method":          c.Request.Method,
					"remote_addr":     c.ClientIP(),
				}).Warn("🚫 CORS: Request blocked - Origin not in whitelist")
			}
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization, Cache-Control, Accept")
		if allowCredentials {
			c.Header("Access-Control-Allow-Credentials", "true")
		}
		c.Header("Access-Control-Expose-Headers", "Content-Length, Content-Type")
		c.Header("Access-Control-Max-Age", strconv.Itoa(maxAge))

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Handlers groups the HTTP handlers wired into the router
type Handlers struct {
	Study      *handlers.StudyHandler
	Irys       *handlers.IrysHandler
	Session    *handlers.SessionHandler
	Submission *handlers.SubmissionHandler
}

// SetupRouter builds the gin engine with all API routes registered
func SetupRouter(h Handlers, logger *logrus.Logger) *gin.Engine {
	r := gin.Default()

	r.Use(corsMiddleware())

	// ============ Check ============
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	// ============ Health Check ============
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "zorp-backend",
		})
	})

	// ============ Prometheus Metrics ============
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// ============ API Routes ============
	api := r.Group("/api")
	{
		// Contract reads
		api.GET("/studies/:address", h.Study.GetStudy)
		api.GET("/studies/:address/participants/:participant", h.Study.GetParticipantStatus)
		api.GET("/studies/:address/submissions", h.Study.ListSubmittedData)
		api.GET("/factory/studies", h.Study.PaginateStudies)

		// Storage network
		api.GET("/irys/balance/:address", h.Irys.GetBalance)
		api.GET("/irys/content/:cid", h.Irys.FetchContent)

		// Submission sessions
		api.POST("/sessions", h.Session.CreateSession)
		api.GET("/sessions/:id/eligibility", h.Session.GetEligibility)
		api.PUT("/sessions/:id/target", h.Session.SetTarget)
		api.PUT("/sessions/:id/wallet", h.Session.SetWallet)
		api.DELETE("/sessions/:id", h.Session.CloseSession)

		// Submission pipeline
		api.POST("/sessions/:id/submit-data", h.Submission.SubmitData)
		api.POST("/sessions/:id/create-study", h.Submission.CreateStudy)

		// Owner-only contract writes require a bearer token when a JWT
		// secret is configured
		owner := api.Group("")
		if config.AppConfig != nil && config.AppConfig.Auth.JWTSecret != "" {
			auth := middleware.NewAuthMiddleware(config.AppConfig.Auth.JWTSecret, logger)
			owner.Use(auth.RequireAuth())
		}
		owner.POST("/sessions/:id/start-study", h.Submission.StartStudy)
		owner.POST("/sessions/:id/flag-invalid-submission", h.Submission.FlagInvalidSubmission)
	}

	// ============ NoRoute handler for 404 ============
	r.NoRoute(func(c *gin.Context) {
		path := c.Request.URL.Path

		if len(path) >= 4 && path[:4] != "/api" {
			c.JSON(http.StatusNotFound, gin.H{
				"message":    "Endpoint not found",
				"path":       path,
				"suggestion": "Check /api endpoints for available APIs",
			})
			return
		}

		c.JSON(http.StatusNotFound, gin.H{
			"message":    "API endpoint not found",
			"path":       path,
			"suggestion": "Check documentation for available /api endpoints",
		})
	})

	return r
}
