package common

type Role string

const (
	RoleCustomer Role = "customer"
	RoleMerchant Role = "merchant"
	RoleAdmin    Role = "admin"
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID   string
	Role Role
}

// SystemActor is used for writes that no user initiated, such as webhooks.
var SystemActor = Actor{ID: "", Role: "system"}
