package users

// Repo is the identity directory consulted when the external authority
// confirms a login and by the admin user-management operations.
type Repo interface {
	GetByID(id string) (*User, error)
	Upsert(user *User) error
	List(offset, limit int) ([]*User, error)
	SetBlocked(id string, blocked bool) error
	Delete(id string) error
}
