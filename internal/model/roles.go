package model

// Role identifies one of the privileged identities in the protocol
type Role string

const (
	RoleOwner      Role = "owner"
	RoleArbitrator Role = "arbitrator"
	RoleRelayer    Role = "relayer"
	RoleExecutor   Role = "executor"
)

// ValidRole checks whether the role name is one of the defined roles
func ValidRole(r Role) bool {
	switch r {
	case RoleOwner, RoleArbitrator, RoleRelayer, RoleExecutor:
		return true
	default:
		return false
	}
}

// Roles holds the single identity assigned to each role. Rotation is
// owner-only and takes effect immediately for subsequent calls.
type Roles struct {
	Owner      string `json:"owner"`
	Arbitrator string `json:"arbitrator"`
	Relayer    string `json:"relayer"`
	Executor   string `json:"executor"`
}

// Holder returns the identity currently assigned to the role
func (r *Roles) Holder(role Role) string {
	switch role {
	case RoleOwner:
		return r.Owner
	case RoleArbitrator:
		return r.Arbitrator
	case RoleRelayer:
		return r.Relayer
	case RoleExecutor:
		return r.Executor
	default:
		return ""
	}
}

// Assign sets the identity for the role
func (r *Roles) Assign(role Role, identity string) {
	switch role {
	case RoleOwner:
		r.Owner = identity
	case RoleArbitrator:
		r.Arbitrator = identity
	case RoleRelayer:
		r.Relayer = identity
	case RoleExecutor:
		r.Executor = identity
	}
}
