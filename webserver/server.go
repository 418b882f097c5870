package webserver

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/Masterminds/sprig/v3"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/goatplatform/edge-chat/chat"
	"github.com/goatplatform/edge-chat/internal/configuration"
)

//go:embed templates
var templatesFS embed.FS

const shutdownTimeout = 10 * time.Second

// Opts for a server.
type Opts struct {
	// UserID owning the chats served.
	UserID string
	// DefaultModel used by sends that do not name one.
	DefaultModel   string
	AllowedOrigins []string
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// NewServeCmd instantiates and returns the serve command.
func NewServeCmd(o *chat.Orchestrator, config *configuration.Config, logger *slog.Logger) *cobra.Command {
	var opts struct {
		Port int
	}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the chat web interface and API",
		Long:  "Serve the chat web interface and API",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			server, err := New(o, &Opts{
				UserID:         config.UserID,
				DefaultModel:   config.Chat.DefaultModel,
				AllowedOrigins: config.Server.AllowedOrigins,
				Logger:         logger,
			})
			if err != nil {
				return err
			}
			return server.Start(cmd.Context(), opts.Port)
		},
	}
	cmd.Flags().IntVarP(&opts.Port, "port", "p", config.Server.Port, "Port to serve on")
	return cmd
}

// Server exposes the orchestrator and its live queries over HTTP.
type Server struct {
	orchestrator *chat.Orchestrator
	opts         *Opts
	log          *slog.Logger
	tmpl         *template.Template
	router       *gin.Engine
}

// New server.
func New(o *chat.Orchestrator, opts *Opts) (*Server, error) {
	funcMap := sprig.HtmlFuncMap()
	funcMap["formatMessage"] = formatMessage
	funcMap["messageRole"] = messageRole

	tmpl, err := template.New("").Funcs(funcMap).ParseFS(templatesFS,
		"templates/*.tmpl",
		"templates/pages/*.tmpl",
	)
	if err != nil {
		return nil, errors.Wrap(err, "parsing template")
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		orchestrator: o,
		opts:         opts,
		log:          log.With("component", "webserver"),
		tmpl:         tmpl,
	}
	s.router = s.newRouter()
	return s, nil
}

func (s *Server) newRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.logRequests())
	if len(s.opts.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins: s.opts.AllowedOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost},
			AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
			MaxAge:       12 * time.Hour,
		}))
	}
	router.SetHTMLTemplate(s.tmpl)

	router.GET("/", s.handleIndex)
	api := router.Group("/api")
	{
		api.GET("/models", s.handleListModels)
		api.GET("/chats", s.handleListChats)
		api.POST("/chats", s.handleCreateChat)
		api.POST("/chats/:chat/select", s.handleToggleSelection)
		api.GET("/chats/:chat/messages", s.handleListMessages)
		api.POST("/chats/:chat/messages", s.handleSendMessage)
		api.GET("/chats/:chat/status", s.handleStatus)
		api.GET("/chats/:chat/events", s.handleEvents)
	}
	return router
}

// Handler serving the interface and the API.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serving until the context is done.
func (s *Server) Start(ctx context.Context, port int) error {
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.router,
	}
	errs := make(chan error, 1)
	go func() {
		s.log.Info("server starting", "address", "http://localhost"+httpServer.Addr)
		errs <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return errors.Wrap(err, "serving")
	case <-ctx.Done():
	}
	s.log.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutting down")
	}
	return nil
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debug("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
