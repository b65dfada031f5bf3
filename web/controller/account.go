package controller

import (
	"net/http"

	"github.com/mhsanaei/3x-accounts/database/model"
	"github.com/mhsanaei/3x-accounts/web/entity"
	"github.com/mhsanaei/3x-accounts/web/service"

	"github.com/gin-gonic/gin"
)

// AccountController exposes the remote proxy accounts of users.
type AccountController struct {
	BaseController

	accountService *service.AccountService
}

// NewAccountController creates a new AccountController and sets up its routes under the users group.
func NewAccountController(g *gin.RouterGroup, accountService *service.AccountService) *AccountController {
	a := &AccountController{accountService: accountService}
	a.initRouter(g)
	return a
}

func (a *AccountController) initRouter(g *gin.RouterGroup) {
	g.GET("/:id/account", a.getAccount)

	g.POST("/:id/account/rotate", a.rotateCredential)
	g.POST("/reset", a.bulkReset)
}

// getAccount returns the remote account of a user, creating it on first access.
func (a *AccountController) getAccount(c *gin.Context) {
	id, ok := a.id(c)
	if !ok {
		return
	}
	remote, err := a.accountService.GetOrCreateRemoteAccount(c.Request.Context(), id)
	if err != nil {
		jsonMsg(c, "get account", err)
		return
	}
	jsonObj(c, entity.AccountView{
		Username:        remote.Username,
		Status:          remote.Status,
		UsedTraffic:     remote.UsedTraffic,
		DataLimit:       remote.DataLimit,
		ProxyConfig:     remote.ProxyConfig(),
		SubscriptionURL: remote.SubscriptionURL,
	}, nil)
}

func (a *AccountController) rotateCredential(c *gin.Context) {
	id, ok := a.id(c)
	if !ok {
		return
	}
	err := a.accountService.RotateCredential(c.Request.Context(), id)
	jsonMsg(c, "rotate credential", err)
}

// bulkReset resets the usage counters of the selected users and reports a single summary.
func (a *AccountController) bulkReset(c *gin.Context) {
	form := &entity.BulkResetForm{}
	if !a.bind(c, form) {
		return
	}
	result, err := a.accountService.BulkReset(c.Request.Context(), form.Ids)
	if err != nil {
		jsonMsg(c, "reset usage", err)
		return
	}

	failed := make([]int, len(result.Failed))
	for i, f := range result.Failed {
		failed[i] = f.User.Id
	}
	summary := entity.BatchSummary{
		Succeeded: userIds(result.Succeeded),
		Skipped:   userIds(result.Skipped),
		Failed:    failed,
	}
	c.JSON(http.StatusOK, entity.Msg{
		Success: len(result.Failed) == 0,
		Msg:     result.Summary("reset"),
		Obj:     summary,
	})
}

func userIds(users []*model.User) []int {
	ids := make([]int, len(users))
	for i, u := range users {
		ids[i] = u.Id
	}
	return ids
}
