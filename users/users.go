package users

// Role is a named role assigned to a user by the backend.
type Role struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// User is the denormalized identity snapshot returned by the backend API.
// It is cached client-side for display purposes only; the backend remains
// the authority on identity and roles.
type User struct {
	ID            string `json:"id,omitempty"`
	FirstName     string `json:"firstName,omitempty"`
	LastName      string `json:"lastName,omitempty"`
	Email         string `json:"email,omitempty"`
	EmailVerified bool   `json:"emailVerified,omitempty"`
	Picture       string `json:"picture,omitempty"`
	Roles         []Role `json:"roles,omitempty"`
}

func (u *User) FullName() string {
	if u.FirstName == "" {
		return u.LastName
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// HasRole checks whether the user carries a role with the given name.
func (u *User) HasRole(name string) bool {
	for _, role := range u.Roles {
		if role.Name == name {
			return true
		}
	}
	return false
}

// RoleNames returns the plain role names, which is what gets embedded in
// the session claims.
func (u *User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, role := range u.Roles {
		names = append(names, role.Name)
	}
	return names
}

// Page is one page of a paginated users query.
type Page struct {
	Users []User `json:"data,omitempty"`
	Meta  Meta   `json:"meta,omitempty"`
}

// Meta carries the backend's pagination metadata.
type Meta struct {
	Page  int `json:"page,omitempty"`
	Limit int `json:"limit,omitempty"`
	Pages int `json:"pages,omitempty"`
	Total int `json:"total,omitempty"`
}
