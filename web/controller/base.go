// Package controller provides the HTTP handlers of the admin API: users, traffic
// policies, remote accounts and service status.
package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// BaseController provides common functionality for all controllers.
type BaseController struct{}

// bind decodes the request body into form and answers 400 when it does not fit.
func (a *BaseController) bind(c *gin.Context, form any) bool {
	if err := c.ShouldBind(form); err != nil {
		pureJsonMsg(c, http.StatusBadRequest, false, "invalid request: "+err.Error())
		return false
	}
	return true
}

// id reads the :id path parameter and answers 400 when it is malformed.
func (a *BaseController) id(c *gin.Context) (int, bool) {
	id, err := paramId(c)
	if err != nil {
		pureJsonMsg(c, http.StatusBadRequest, false, err.Error())
		return 0, false
	}
	return id, true
}
