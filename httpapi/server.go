// Package httpapi exposes the command and query sides over HTTP with
// gin. Every request gets its own message bus and unit of work from
// the factory; the query side goes through the Views facade.
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bugline/bugline"
	"github.com/bugline/bugline/service"
)

// AccessValidator checks bearer tokens. The security package's
// JWTManager satisfies it.
type AccessValidator interface {
	ValidateAccessToken(token string) (service.Claims, error)
}

// Server holds the wiring shared by all request handlers.
type Server struct {
	factory *bugline.BusFactory[service.Deps]
	views   *service.Views
	auth    AccessValidator
	logger  bugline.Logger
}

// NewServer creates the HTTP server wiring. logger may be nil.
func NewServer(factory *bugline.BusFactory[service.Deps], views *service.Views, auth AccessValidator, logger bugline.Logger) *Server {
	if logger == nil {
		logger = bugline.NopLogger()
	}
	return &Server{factory: factory, views: views, auth: auth, logger: logger}
}

// Router builds the gin engine with all routes mounted.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", s.health)

	v1 := r.Group("/api/v1")
	v1.POST("/users", s.createUser)
	v1.POST("/auth/login", s.login)
	v1.POST("/auth/refresh", s.refresh)

	authed := v1.Group("")
	authed.Use(s.requireAuth())

	authed.GET("/users", s.listUsers)
	authed.GET("/users/:id", s.getUser)
	authed.PATCH("/users/:id", s.updateUser)
	authed.DELETE("/users/:id", s.deleteUser)

	authed.POST("/bugs", s.createBug)
	authed.GET("/bugs", s.listBugs)
	authed.GET("/bugs/:id", s.getBug)
	authed.PATCH("/bugs/:id", s.updateBug)
	authed.DELETE("/bugs/:id", s.deleteBug)
	authed.GET("/bugs/:id/history", s.bugHistory)

	authed.POST("/bugs/:id/comments", s.createComment)
	authed.PATCH("/bugs/:id/comments/:commentID", s.updateComment)
	authed.DELETE("/bugs/:id/comments/:commentID", s.deleteComment)
	authed.POST("/bugs/:id/comments/:commentID/upvote", s.upvoteComment)
	authed.POST("/bugs/:id/comments/:commentID/downvote", s.downvoteComment)

	authed.POST("/tags", s.createTag)
	authed.GET("/tags", s.listTags)
	authed.POST("/bugs/:id/tags/:tagID", s.addTag)
	authed.DELETE("/bugs/:id/tags/:tagID", s.removeTag)

	return r
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": bugline.Version()})
}

// dispatch runs one command on a fresh bus.
func (s *Server) dispatch(c *gin.Context, cmd bugline.Command) (any, bool) {
	res, err := s.factory.New().Handle(c.Request.Context(), cmd)
	if err != nil {
		s.fail(c, err)
		return nil, false
	}
	return res, true
}
