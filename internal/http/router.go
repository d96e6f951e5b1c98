// README: HTTP router registration.
package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"tripwise/internal/http/handlers"
	"tripwise/internal/http/middleware"
	"tripwise/internal/metrics"
	"tripwise/internal/modules/search"
)

type RouterDeps struct {
	Dialogue      handlers.Dialogue
	Conversations handlers.Conversations
	Sweeper       handlers.Sweeper
	Planner       handlers.Planner
	Search        handlers.Searcher
	Metrics       *metrics.Collectors
	// Gatherer backs /metrics; nil leaves the route out.
	Gatherer    prometheus.Gatherer
	RateLimiter *middleware.RateLimiter
	Logger      zerolog.Logger
	// GatewayTimeout bounds each LLM call made for a request.
	GatewayTimeout time.Duration
}

func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logging(deps.Logger), middleware.Recovery())

	r.GET("/health", handlers.Health)
	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api")
	if deps.RateLimiter != nil {
		api.Use(deps.RateLimiter.Middleware())
	}

	chat := handlers.NewChatHandler(deps.Dialogue, deps.Conversations, deps.GatewayTimeout)
	api.POST("/chat", chat.Chat)
	api.GET("/chat/:user_id/history", chat.History)
	api.GET("/chat/:user_id/plan", chat.Plan)
	api.POST("/chat/:user_id/plan/enhance", chat.EnhancePlan)

	chatbot := handlers.NewChatbotHandler(deps.Planner, deps.GatewayTimeout)
	bot := api.Group("/chatbot")
	bot.POST("/generate-plan-from-string", chatbot.GeneratePlanFromString)
	bot.POST("/process-natural-language", chatbot.ProcessNaturalLanguage)
	bot.POST("/complete-travel-plan", chatbot.CompleteTravelPlan)
	bot.POST("/enhance", chatbot.Enhance)
	bot.POST("/plan-with-data", chatbot.PlanWithData)

	searches := handlers.NewSearchHandler(deps.Search)
	for _, kind := range []search.Kind{search.KindFlights, search.KindHotels, search.KindCities, search.KindActivities} {
		api.GET("/"+string(kind)+"/search", searches.Search(kind))
	}

	admin := handlers.NewAdminHandler(deps.Sweeper, deps.Metrics)
	api.POST("/admin/sweep", admin.Sweep)

	return r
}
