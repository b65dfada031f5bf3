package controller

import (
	"github.com/mhsanaei/3x-accounts/web/entity"
	"github.com/mhsanaei/3x-accounts/web/service"

	"github.com/gin-gonic/gin"
)

// UserController handles subscriber management: creation, activation, policy assignment
// and account names. Every change that affects the remote account is synchronized through
// the sync queue by the user service.
type UserController struct {
	BaseController

	userService *service.UserService
}

// NewUserController creates a new UserController and sets up its routes.
func NewUserController(g *gin.RouterGroup, userService *service.UserService) *UserController {
	a := &UserController{userService: userService}
	a.initRouter(g)
	return a
}

func (a *UserController) initRouter(g *gin.RouterGroup) {
	g.GET("", a.getUsers)
	g.GET("/:id", a.getUser)

	g.POST("", a.addUser)
	g.PATCH("/:id/active", a.setActive)
	g.PATCH("/:id/policy", a.setPolicy)
	g.PATCH("/:id/account-name", a.setAccountName)
}

func (a *UserController) getUsers(c *gin.Context) {
	users, err := a.userService.GetUsers(c.Request.Context())
	if err != nil {
		jsonMsg(c, "get users", err)
		return
	}
	jsonObj(c, users, nil)
}

func (a *UserController) getUser(c *gin.Context) {
	id, ok := a.id(c)
	if !ok {
		return
	}
	user, err := a.userService.GetUser(c.Request.Context(), id)
	if err != nil {
		jsonMsg(c, "get user", err)
		return
	}
	jsonObj(c, user, nil)
}

func (a *UserController) addUser(c *gin.Context) {
	form := &entity.UserForm{}
	if !a.bind(c, form) {
		return
	}
	user, err := a.userService.CreateUser(c.Request.Context(), service.CreateUserRequest{
		Email:           form.Email,
		AccountName:     form.AccountName,
		Password:        form.Password,
		TrafficPolicyId: form.TrafficPolicyId,
		IsActive:        form.IsActive,
	})
	jsonMsgObj(c, "create user", user, err)
}

func (a *UserController) setActive(c *gin.Context) {
	id, ok := a.id(c)
	if !ok {
		return
	}
	form := &entity.ActiveForm{}
	if !a.bind(c, form) {
		return
	}
	user, err := a.userService.SetActive(c.Request.Context(), id, *form.IsActive)
	jsonMsgObj(c, "update user", user, err)
}

func (a *UserController) setPolicy(c *gin.Context) {
	id, ok := a.id(c)
	if !ok {
		return
	}
	form := &entity.PolicyAssignForm{}
	if !a.bind(c, form) {
		return
	}
	user, err := a.userService.SetPolicy(c.Request.Context(), id, form.TrafficPolicyId)
	jsonMsgObj(c, "assign policy", user, err)
}

func (a *UserController) setAccountName(c *gin.Context) {
	id, ok := a.id(c)
	if !ok {
		return
	}
	form := &entity.AccountNameForm{}
	if !a.bind(c, form) {
		return
	}
	user, err := a.userService.SetAccountName(c.Request.Context(), id, form.AccountName)
	jsonMsgObj(c, "set account name", user, err)
}
