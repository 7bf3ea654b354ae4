package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/bugline/bugline/domain"
	"github.com/bugline/bugline/service"
)

type createUserRequest struct {
	Username         string `json:"username"`
	Email            string `json:"email"`
	Password         string `json:"password"`
	UserType         string `json:"user_type"`
	IsAdmin          bool   `json:"is_admin"`
	SecurityQuestion string `json:"security_question"`
	SecurityAnswer   string `json:"security_answer"`
}

func (s *Server) createUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	res, ok := s.dispatch(c, service.CreateUser{
		Username:         req.Username,
		Email:            req.Email,
		Password:         req.Password,
		UserType:         domain.UserType(req.UserType),
		IsAdmin:          req.IsAdmin,
		SecurityQuestion: req.SecurityQuestion,
		SecurityAnswer:   req.SecurityAnswer,
	})
	if !ok {
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": res})
}

type updateUserRequest struct {
	Username         *string `json:"username"`
	Email            *string `json:"email"`
	Password         *string `json:"password"`
	UserType         *string `json:"user_type"`
	IsAdmin          *bool   `json:"is_admin"`
	SecurityQuestion *string `json:"security_question"`
	SecurityAnswer   *string `json:"security_answer"`
}

func (s *Server) updateUser(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, err)
		return
	}
	if !s.allowSelfOrAdmin(c, id) {
		return
	}

	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	cmd := service.UpdateUser{
		ID:               id,
		Username:         req.Username,
		Email:            req.Email,
		Password:         req.Password,
		IsAdmin:          req.IsAdmin,
		SecurityQuestion: req.SecurityQuestion,
		SecurityAnswer:   req.SecurityAnswer,
	}
	if req.UserType != nil {
		ut := domain.UserType(*req.UserType)
		cmd.UserType = &ut
	}

	if _, ok := s.dispatch(c, cmd); !ok {
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) deleteUser(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, err)
		return
	}
	if !s.allowSelfOrAdmin(c, id) {
		return
	}

	if _, ok := s.dispatch(c, service.SoftDeleteUser{ID: id}); !ok {
		return
	}
	c.Status(http.StatusNoContent)
}

// allowSelfOrAdmin gates account mutations: a caller may change their
// own account, admins may change anyone's.
func (s *Server) allowSelfOrAdmin(c *gin.Context, id uuid.UUID) bool {
	claims := callerClaims(c)
	if claims.Subject == id || claims.Admin {
		return true
	}
	c.JSON(http.StatusForbidden, errorBody{Error: "not allowed to modify this account"})
	return false
}

func (s *Server) getUser(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, err)
		return
	}

	m, err := s.views.User(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (s *Server) listUsers(c *gin.Context) {
	users, err := s.views.Users(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	res, ok := s.dispatch(c, service.Login{Email: req.Email, Password: req.Password})
	if !ok {
		return
	}
	lr := res.(service.LoginResult)
	c.JSON(http.StatusOK, gin.H{
		"token":         lr.Token,
		"refresh_token": lr.RefreshToken,
		"token_type":    "bearer",
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
	GrantType    string `json:"grant_type"`
}

func (s *Server) refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	res, ok := s.dispatch(c, service.RefreshToken{
		RefreshToken: req.RefreshToken,
		GrantType:    req.GrantType,
	})
	if !ok {
		return
	}
	rr := res.(service.RefreshResult)
	c.JSON(http.StatusOK, gin.H{"token": rr.Token, "token_type": "bearer"})
}
