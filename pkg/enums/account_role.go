package enums

import (
	"fmt"
	"strings"
)

// AccountRole is carried in access tokens and on account rows.
type AccountRole string

const (
	AccountRoleUser  AccountRole = "user"
	AccountRoleStaff AccountRole = "staff"
	AccountRoleHouse AccountRole = "house"
)

var validAccountRoles = []AccountRole{
	AccountRoleUser,
	AccountRoleStaff,
	AccountRoleHouse,
}

func (r AccountRole) String() string {
	return string(r)
}

func (r AccountRole) IsValid() bool {
	for _, candidate := range validAccountRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

func ParseAccountRole(value string) (AccountRole, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validAccountRoles {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid account role %q", value)
}
