package handlers

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/ulule/limiter/v3"
	memorystore "github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/docledger/docledger/cmd/docs"
	portssvc "github.com/docledger/docledger/internal/core/ports/services"
	"github.com/docledger/docledger/internal/middleware"
	"github.com/docledger/docledger/pkg/config"
)

// RegisterRoutes sets up all application routes, injecting service facades.
func RegisterRoutes(r *gin.Engine, cfg *config.Config, services *portssvc.ServiceContainer) {
	r.GET("/health", func(c *gin.Context) {
		c.String(200, "OK")
	})

	setupAPIV1Routes(r, cfg, services)
	setupSwaggerRoutes(r, cfg)
}

// setupAPIV1Routes configures the /api/v1 group and delegates to the
// per-entity route registrations.
func setupAPIV1Routes(r *gin.Engine, cfg *config.Config, services *portssvc.ServiceContainer) {
	rate, _ := limiter.NewRateFromFormatted(cfg.RateLimit)
	apiLimiter := limiter.New(memorystore.NewStore(), rate)

	v1 := r.Group("/api/v1",
		middleware.RateLimit(apiLimiter),
		middleware.AuthMiddleware(cfg.JWTSecret, cfg.JWTIssuer),
	)

	registerLedgerRoutes(v1, services.Ledger, services.Transaction)
	registerAccountRoutes(v1, services.Account, services.Balance)
	registerTransactionRoutes(v1, services.Transaction)
	registerEventRoutes(v1, services.Event)
	registerCurrencyRoutes(v1, services.Currency)
	registerSettingsRoutes(v1, services.Settings, services.Cleanup)
}

// setupSwaggerRoutes serves the API docs outside production.
func setupSwaggerRoutes(r *gin.Engine, cfg *config.Config) {
	if cfg.IsProduction {
		//no swagger in prod
		return
	}
	docs.SwaggerInfo.BasePath = "/api/v1"
	swagger := r.Group("/swagger")
	swagger.GET("/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}
