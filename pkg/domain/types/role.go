package types

import "github.com/m-mizutani/goerr/v2"

// Role is the author kind of a conversation message
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Validate checks if the role is one of the known values
func (r Role) Validate() error {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant, RoleTool:
		return nil
	default:
		return goerr.New("invalid message role", goerr.V("role", string(r)))
	}
}

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}
