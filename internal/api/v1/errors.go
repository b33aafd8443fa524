package v1

import "github.com/gin-gonic/gin"

// ErrorResponse represents the API error response structure
type ErrorResponse struct {
	Error string `json:"error" example:"invalid signature"`
}

func NewErrorResponse(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, ErrorResponse{
		Error: message,
	})
}
