package api

import (
	"net/http"

	"github.com/Rrens/voice-companion/internal/api/handler"
	customMiddleware "github.com/Rrens/voice-companion/internal/api/middleware"
	"github.com/Rrens/voice-companion/internal/config"
	"github.com/Rrens/voice-companion/internal/domain"
	"github.com/Rrens/voice-companion/internal/llm"
	"github.com/Rrens/voice-companion/internal/llm/anthropic"
	"github.com/Rrens/voice-companion/internal/llm/deepseek"
	"github.com/Rrens/voice-companion/internal/llm/gemini"
	"github.com/Rrens/voice-companion/internal/llm/ollama"
	"github.com/Rrens/voice-companion/internal/llm/openai"
	"github.com/Rrens/voice-companion/internal/naming"
	"github.com/Rrens/voice-companion/internal/repository/redis"
	"github.com/Rrens/voice-companion/internal/responder"
	"github.com/Rrens/voice-companion/internal/security"
	"github.com/Rrens/voice-companion/internal/service"
	"github.com/Rrens/voice-companion/internal/speech"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"
)

// NewRouter creates and configures the HTTP router. redisClient may be nil,
// in which case rate limiting and turn locking are off.
func NewRouter(cfg *config.Config, store domain.Store, redisClient *redis.Client) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Server.RequestTimeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	jwtManager := security.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL)
	llmRouter := NewLLMRouter(cfg.LLM)

	chat := service.NewChatService(
		store,
		store,
		naming.NewNamer(llmRouter, cfg.Naming),
		responder.NewClient(cfg.Responder),
		speech.NewTranscriber(cfg.Speech),
		speech.NewSynthesizer(cfg.Speech),
	)

	var cache handler.Pinger
	var rateLimitMiddleware *customMiddleware.RateLimitMiddleware
	if redisClient != nil {
		cache = redisClient
		chat.WithTurnLocker(redis.NewTurnLocker(redisClient, cfg.Security.TurnLockTTL))
		rateLimitMiddleware = customMiddleware.NewRateLimitMiddleware(redis.NewRateLimiter(
			redisClient,
			cfg.Security.RateLimit.RequestsPerMinute,
			cfg.Security.RateLimit.Burst,
		))
	} else {
		log.Warn().Msg("Redis disabled: no rate limiting or turn locking")
	}

	threadHandler := handler.NewThreadHandler(chat)
	turnHandler := handler.NewTurnHandler(chat, cfg.Server.MaxUploadBytes)
	speechHandler := handler.NewSpeechHandler(chat, cfg.Server.MaxUploadBytes)

	authMiddleware := customMiddleware.NewAuthMiddleware(jwtManager)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", handler.HealthCheck)
		r.Get("/ready", handler.ReadyCheck(store, cache))

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)
			if rateLimitMiddleware != nil {
				r.Use(rateLimitMiddleware.Limit)
			}

			r.Get("/llm-providers", handler.ListLLMProviders(llmRouter))

			r.Route("/threads", func(r chi.Router) {
				r.Get("/", threadHandler.List)
				r.Post("/", threadHandler.Create)
				r.Patch("/{threadID}", threadHandler.Rename)
				r.Get("/{threadID}/messages", threadHandler.Messages)
			})

			r.Post("/turns/text", turnHandler.Text)
			r.Post("/turns/voice", turnHandler.Voice)
			r.Post("/speech", speechHandler.Speak)
			r.Post("/transcriptions", speechHandler.Transcribe)
		})
	})

	return r
}

// NewLLMRouter registers every configured completion provider.
func NewLLMRouter(cfg config.LLMConfig) *llm.Router {
	router := llm.NewRouter(cfg.DefaultProvider)

	log.Info().Msgf("Initializing LLM providers. Default: %s", cfg.DefaultProvider)

	if cfg.Ollama.Host != "" {
		log.Info().Str("host", cfg.Ollama.Host).Msg("Registering Ollama provider")
		router.RegisterProvider(ollama.NewProvider(cfg.Ollama.Host, cfg.Ollama.DefaultModel))
	}
	if cfg.OpenAI.APIKey != "" {
		router.RegisterProvider(openai.NewProvider(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Model))
	}
	if cfg.Anthropic.APIKey != "" {
		router.RegisterProvider(anthropic.NewProvider(cfg.Anthropic.APIKey, cfg.Anthropic.Model))
	}
	if cfg.DeepSeek.APIKey != "" {
		router.RegisterProvider(deepseek.NewProvider(cfg.DeepSeek.APIKey, cfg.DeepSeek.Model))
	}
	if cfg.Gemini.APIKey != "" {
		router.RegisterProvider(gemini.NewProvider(cfg.Gemini))
	}

	if _, err := router.GetProvider(""); err != nil {
		log.Warn().Str("provider", cfg.DefaultProvider).Msg("Default LLM provider not configured; threads will get fallback names")
	}
	return router
}
