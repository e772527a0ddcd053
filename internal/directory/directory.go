// Package directory holds the assignable-user snapshot the assistant
// resolves numeric selections against. The snapshot is fetched once per
// session and frozen: the 1-based menu indexes shown to the user stay valid
// for the whole wizard run.
package directory

type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Snapshot is an ordered, immutable view of the user directory. Index 0 in
// the wizard menu always means "unassigned"; menu index i maps to Users()[i-1].
type Snapshot struct {
	users []User
}

func NewSnapshot(users []User) Snapshot {
	frozen := make([]User, len(users))
	copy(frozen, users)
	return Snapshot{users: frozen}
}

func (s Snapshot) Len() int { return len(s.users) }

func (s Snapshot) Users() []User {
	out := make([]User, len(s.users))
	copy(out, s.users)
	return out
}

// At returns the user behind 1-based menu index i.
func (s Snapshot) At(i int) (User, bool) {
	if i < 1 || i > len(s.users) {
		return User{}, false
	}
	return s.users[i-1], true
}

// NameByID resolves a user id to a display name, or "Unassigned" when the id
// is empty or unknown.
func (s Snapshot) NameByID(id string) string {
	if id == "" {
		return "Unassigned"
	}
	for _, u := range s.users {
		if u.ID == id {
			return u.Name
		}
	}
	return "Unassigned"
}
