package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/microgrid/internal/auth/domain"
)

type addOperatorRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Hamlet   string `json:"hamlet" binding:"required"`
}

type removeOperatorRequest struct {
	Username string `json:"username" binding:"required"`
}

func (s *Server) ListOperators(c *gin.Context) {
	users, err := s.authsvc.ListOperators(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (s *Server) AddOperator(c *gin.Context) {
	var req addOperatorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequest("user", "username, password and hamlet are required"))
		return
	}
	user, err := s.authsvc.AddOperator(c.Request.Context(), authdomain.CreateUserRequest{
		Username: req.Username,
		Password: req.Password,
		Hamlet:   req.Hamlet,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	ok(c, gin.H{"user": user})
}

func (s *Server) RemoveOperator(c *gin.Context) {
	var req removeOperatorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequest("username", "username is required"))
		return
	}
	if err := s.authsvc.RemoveOperator(c.Request.Context(), req.Username); err != nil {
		AbortWithError(c, err)
		return
	}
	ok(c, nil)
}
