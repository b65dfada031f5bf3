package controller

import (
	"github.com/mhsanaei/3x-accounts/web/entity"
	"github.com/mhsanaei/3x-accounts/web/service"

	"github.com/gin-gonic/gin"
)

// PolicyController handles traffic policy management. Quota changes are pushed to every
// attached user through the sync queue.
type PolicyController struct {
	BaseController

	policyService *service.PolicyService
}

// NewPolicyController creates a new PolicyController and sets up its routes.
func NewPolicyController(g *gin.RouterGroup, policyService *service.PolicyService) *PolicyController {
	a := &PolicyController{policyService: policyService}
	a.initRouter(g)
	return a
}

func (a *PolicyController) initRouter(g *gin.RouterGroup) {
	g.GET("", a.getPolicies)
	g.GET("/:id", a.getPolicy)

	g.POST("", a.addPolicy)
	g.PUT("/:id", a.updatePolicy)
	g.DELETE("/:id", a.delPolicy)
}

func (a *PolicyController) getPolicies(c *gin.Context) {
	policies, err := a.policyService.GetPolicies(c.Request.Context())
	if err != nil {
		jsonMsg(c, "get policies", err)
		return
	}
	jsonObj(c, policies, nil)
}

func (a *PolicyController) getPolicy(c *gin.Context) {
	id, ok := a.id(c)
	if !ok {
		return
	}
	policy, err := a.policyService.GetPolicy(c.Request.Context(), id)
	if err != nil {
		jsonMsg(c, "get policy", err)
		return
	}
	jsonObj(c, policy, nil)
}

func (a *PolicyController) addPolicy(c *gin.Context) {
	form := &entity.PolicyForm{}
	if !a.bind(c, form) {
		return
	}
	policy, err := a.policyService.CreatePolicy(c.Request.Context(), form.Name, *form.Quota)
	jsonMsgObj(c, "create policy", policy, err)
}

func (a *PolicyController) updatePolicy(c *gin.Context) {
	id, ok := a.id(c)
	if !ok {
		return
	}
	form := &entity.PolicyForm{}
	if !a.bind(c, form) {
		return
	}
	policy, err := a.policyService.UpdatePolicy(c.Request.Context(), id, form.Name, *form.Quota)
	jsonMsgObj(c, "update policy", policy, err)
}

func (a *PolicyController) delPolicy(c *gin.Context) {
	id, ok := a.id(c)
	if !ok {
		return
	}
	err := a.policyService.DeletePolicy(c.Request.Context(), id)
	jsonMsg(c, "delete policy", err)
}
