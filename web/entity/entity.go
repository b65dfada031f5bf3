// Package entity defines the request and response bodies of the admin API.
package entity

// Msg represents a standard API response message with success status, message text, and optional data object.
type Msg struct {
	Success bool   `json:"success"` // Indicates if the operation was successful
	Msg     string `json:"msg"`     // Response message text
	Obj     any    `json:"obj"`     // Optional data object
}

// UserForm is the body of a user creation request.
type UserForm struct {
	Email           string `json:"email" form:"email" binding:"required"`
	AccountName     string `json:"accountName" form:"accountName"`
	Password        string `json:"password" form:"password"`
	TrafficPolicyId *int   `json:"trafficPolicyId" form:"trafficPolicyId"`
	IsActive        *bool  `json:"isActive" form:"isActive"`
}

// ActiveForm toggles a user's active flag.
type ActiveForm struct {
	IsActive *bool `json:"isActive" form:"isActive" binding:"required"`
}

// PolicyAssignForm assigns a traffic policy to a user; a null id falls back to the default quota.
type PolicyAssignForm struct {
	TrafficPolicyId *int `json:"trafficPolicyId" form:"trafficPolicyId"`
}

// AccountNameForm sets the remote account name of a user.
type AccountNameForm struct {
	AccountName string `json:"accountName" form:"accountName" binding:"required"`
}

// BulkResetForm selects the users whose usage counters are reset.
type BulkResetForm struct {
	Ids []int `json:"ids" form:"ids" binding:"required"`
}

// PolicyForm is the body of policy create and update requests.
type PolicyForm struct {
	Name  string  `json:"name" form:"name" binding:"required"`
	Quota *uint64 `json:"quota" form:"quota" binding:"required"`
}

// BatchSummary reports the outcome counts of a batch operation.
type BatchSummary struct {
	Succeeded []int `json:"succeeded"`
	Skipped   []int `json:"skipped"`
	Failed    []int `json:"failed"`
}

// AccountView is the remote account of a user as exposed by the API.
type AccountView struct {
	Username        string `json:"username"`
	Status          string `json:"status"`
	UsedTraffic     uint64 `json:"usedTraffic"`
	DataLimit       uint64 `json:"dataLimit"`
	ProxyConfig     string `json:"proxyConfig"`
	SubscriptionURL string `json:"subscriptionUrl"`
}
