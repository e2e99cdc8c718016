package model

// UserID is the local identifier of a user
type UserID int64

// User is a locally stored user. Users created by directory sync have no password.
type User struct {
	ID           UserID
	ExternalID   *ExternalID
	Email        *string
	FullName     string
	PasswordHash *string
	JobTitleID   JobTitleID
}

// CreateUserArgs holds the fields of a new user
type CreateUserArgs struct {
	ExternalID   *ExternalID
	Email        *string
	FullName     string
	PasswordHash *string
	JobTitleID   JobTitleID
}

// UpdateUserArgs holds the directory-owned fields of an existing user.
// Fields that are not listed here (password hash) are left untouched by an update.
type UpdateUserArgs struct {
	ID         UserID
	ExternalID *ExternalID
	Email      *string
	FullName   string
	JobTitleID JobTitleID
}

// MatchesRoster reports whether the directory-owned fields of u already equal rec and jobTitleID
func (u *User) MatchesRoster(rec RosterRecord, jobTitleID JobTitleID) bool {
	if u.ExternalID == nil || *u.ExternalID != rec.ExternalID {
		return false
	}
	if u.Email == nil || *u.Email != rec.Email {
		return false
	}
	return u.FullName == rec.FullName && u.JobTitleID == jobTitleID
}

// UserSyncResult summarizes user reconciliation of one pass
type UserSyncResult struct {
	Total     int
	Created   int
	Updated   int
	Unchanged int
	Failed    int
}
