package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/GhostEsso/ahoefa-backend/internal/api/handlers"
	"github.com/GhostEsso/ahoefa-backend/internal/api/middleware"
	"github.com/GhostEsso/ahoefa-backend/internal/authz"
	"github.com/GhostEsso/ahoefa-backend/internal/config"
	"github.com/GhostEsso/ahoefa-backend/internal/services"
	"github.com/GhostEsso/ahoefa-backend/internal/storage"
)

// SetupRouter configures and returns the main Gin engine.
func SetupRouter(cfg *config.Config, db *mongo.Database, rdb *redis.Client, taskClient handlers.IAsynqClient) *gin.Engine {
	// Initialize services needed by API handlers
	userService := services.NewUserService(db, cfg)
	mediaStore, err := storage.NewS3Storage(cfg)
	if err != nil {
		log.Fatalf("CRITICAL: Failed to initialize S3 storage for API: %v", err)
	}
	listingService := services.NewListingService(db, cfg, mediaStore, userService)
	agentService := services.NewAgentService(db, cfg, rdb)
	messageService := services.NewMessageService(db, cfg)

	r := gin.Default()

	rateLimiter := middleware.NewRateLimiterMiddleware(cfg)

	r.Use(middleware.CORSMiddleware(cfg.FrontendOrigin))

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(cfg, userService, taskClient)
	userHandler := handlers.NewUserHandler(userService)
	agentHandler := handlers.NewAgentHandler(agentService)
	listingHandler := handlers.NewListingHandler(cfg, listingService)
	messageHandler := handlers.NewMessageHandler(messageService)

	r.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		// Credential endpoints get the brute-force rate limiter.
		authRoutes := api.Group("/auth")
		authRoutes.Use(rateLimiter.Limit())
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/superadmin", authHandler.SuperAdminLogin)
		}
		api.POST("/users/register", rateLimiter.Limit(), authHandler.Register)

		// Public routes are registered before the authenticated groups.
		api.GET("/listings/public", listingHandler.ListPublic)
		api.GET("/listings/:id", listingHandler.GetByID)
		api.GET("/agents/public", agentHandler.ListPublic)
		api.GET("/agents/:id", agentHandler.GetByID)

		authRequired := api.Group("/")
		authRequired.Use(middleware.AuthMiddleware(cfg.JwtSecret, userService))
		{
			authRequired.GET("/users/profile", userHandler.GetProfile)
			authRequired.PUT("/users/profile", userHandler.UpdateProfile)

			authRequired.POST("/listings", listingHandler.Create)
			authRequired.PUT("/listings/:id", listingHandler.Update)
			authRequired.DELETE("/listings/:id", listingHandler.Delete)
			authRequired.GET("/listings",
				middleware.RequireOperation(authz.OpListingListOwn), listingHandler.ListOwn)

			authRequired.POST("/messages/send", messageHandler.Send)
			authRequired.GET("/messages/conversations", messageHandler.ListConversations)

			authRequired.GET("/agents/all",
				middleware.RequireOperation(authz.OpAgentListAll), agentHandler.ListAll)
			authRequired.PUT("/agents/:id/premium",
				middleware.RequireOperation(authz.OpAgentSetPrem), agentHandler.SetPremium)
		}
	}

	return r
}
