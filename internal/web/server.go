package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"poison-machine/internal/config"
	"poison-machine/internal/search"
	"poison-machine/internal/security"
	"poison-machine/internal/store"
	"poison-machine/internal/twitterapi"
)

type Server struct {
	log      *slog.Logger
	cfg      config.Config
	accounts *store.AccountStore
	history  *store.HistoryStore
	cache    *store.UserCacheStore
	orch     *search.Orchestrator
	api      *twitterapi.Client
	limiter  *security.LimiterStore
	router   *gin.Engine
}

func NewServer(log *slog.Logger, cfg config.Config, accounts *store.AccountStore, history *store.HistoryStore, cache *store.UserCacheStore, orch *search.Orchestrator, api *twitterapi.Client, templatesGlob string) *Server {
	s := &Server{
		log:      log,
		cfg:      cfg,
		accounts: accounts,
		history:  history,
		cache:    cache,
		orch:     orch,
		api:      api,
		limiter:  security.NewLimiterStore(2, 10, 10*time.Minute),
		router:   gin.New(),
	}

	gin.SetMode(gin.ReleaseMode)
	r := s.router
	r.Use(gin.Recovery())
	r.Use(s.loggingMiddleware())
	r.Use(s.rateLimitMiddleware())
	r.LoadHTMLGlob(templatesGlob)

	// open routes
	r.GET("/healthz", s.health)
	r.GET("/switch-user", s.switchUser)

	// search and read routes, guest and admin
	reader := r.Group("/", s.requireRole(RoleGuest))
	{
		reader.GET("/", s.index)
		reader.POST("/search", s.doSearch)
		reader.POST("/export", s.exportCSV)
		reader.POST("/export/xlsx", s.exportXLSX)
		reader.GET("/avatar", s.avatar)
	}

	// poison-list curation and audit trail, admin only
	admin := r.Group("/", s.requireRole(RoleAdmin))
	{
		admin.GET("/accounts", s.accountsView)
		admin.POST("/accounts/add", s.accountsAdd)
		admin.POST("/accounts/remove", s.accountsRemove)
		admin.POST("/accounts/bulk", s.accountsBulk)
		admin.GET("/accounts/export", s.accountsExport)
		admin.GET("/history", s.historyView)
	}

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}
