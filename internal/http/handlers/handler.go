package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"musomatch/backend/internal/applications"
	"musomatch/backend/internal/config"
	authmw "musomatch/backend/internal/http/middleware"
	"musomatch/backend/internal/postcode"
	"musomatch/backend/internal/rate"
	"musomatch/backend/internal/repository"
	"musomatch/backend/internal/reviews"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
)

type Handler struct {
	repo          *repository.Repository
	resolver      *postcode.Resolver
	ledger        *applications.Ledger
	reviews       *reviews.Aggregator
	cfg           *config.Config
	logger        *slog.Logger
	validator     *validator.Validate
	applyLimiter  *rate.WindowLimiter
	reviewLimiter *rate.WindowLimiter
}

func New(repo *repository.Repository, resolver *postcode.Resolver, cfg *config.Config, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		repo:          repo,
		resolver:      resolver,
		ledger:        applications.New(repo, logger),
		reviews:       reviews.New(repo, logger),
		cfg:           cfg,
		logger:        logger,
		validator:     validator.New(),
		applyLimiter:  rate.NewWindowLimiter(20, time.Minute),
		reviewLimiter: rate.NewWindowLimiter(5, time.Minute),
	}
}

func (h *Handler) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, 5*time.Second)
}

func (h *Handler) loggerForRequest(r *http.Request) *slog.Logger {
	logger := h.logger
	if logger == nil {
		return slog.Default()
	}
	if reqID := chimw.GetReqID(r.Context()); reqID != "" {
		logger = logger.With("request_id", reqID)
	}
	if userID, ok := authmw.UserIDFromContext(r.Context()); ok {
		logger = logger.With("user_id", userID.String())
	}
	return logger
}
