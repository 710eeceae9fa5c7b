package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Envelope is the body of every API response.
type Envelope struct {
	Status bool   `json:"status"`
	Data   any    `json:"data,omitempty"`
	Msg    string `json:"msg,omitempty"`
}

func success(c *gin.Context, data any) {
	c.AbortWithStatusJSON(http.StatusOK, Envelope{Status: true, Data: data})
}

func fail(c *gin.Context, code int, err error) {
	c.AbortWithStatusJSON(code, Envelope{Status: false, Msg: err.Error()})
}
