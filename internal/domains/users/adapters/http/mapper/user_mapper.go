package mapper

import userdomain "github.com/Apurer/go-retail-ops/internal/domains/users/domain"

// User represents the transport-level directory entry.
type User struct {
	ID          string   `json:"id"`
	DisplayName string   `json:"displayName"`
	Email       string   `json:"email,omitempty"`
	Roles       []string `json:"roles"`
	Active      *bool    `json:"active,omitempty"`
}

// ToDomainUser converts a transport user to its domain counterpart. Users are active unless stated.
func ToDomainUser(model User) (*userdomain.User, error) {
	roles := make([]userdomain.Role, 0, len(model.Roles))
	for _, raw := range model.Roles {
		role, err := userdomain.ParseRole(raw)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	user, err := userdomain.NewUser(model.ID, model.DisplayName, roles...)
	if err != nil {
		return nil, err
	}
	if err := user.SetEmail(model.Email); err != nil {
		return nil, err
	}
	if model.Active != nil {
		user.Active = *model.Active
	}
	return user, nil
}

// FromDomainUser converts a domain user into a transport representation.
func FromDomainUser(user *userdomain.User) User {
	if user == nil {
		return User{}
	}
	roles := make([]string, 0, len(user.Roles))
	for _, role := range user.Roles {
		roles = append(roles, string(role))
	}
	active := user.Active
	return User{
		ID:          user.ID,
		DisplayName: user.DisplayName,
		Email:       user.Email,
		Roles:       roles,
		Active:      &active,
	}
}
