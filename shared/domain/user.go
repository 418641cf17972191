package domain

import "time"

type User struct {
	Id        UserId
	Email     Email
	Name      string
	PassHash  string
	Admin     bool
	CreatedAt time.Time
}

type ConfirmationData struct {
	Email                Email
	Name                 string
	NewPassHash          string
	ConfirmationCodeHash string
	Expires              time.Time
}

// DirectoryEntry is the public part of a user visible to other users.
type DirectoryEntry struct {
	Email Email
	Name  string
}

type Credentials struct {
	Email    Email
	Password Password
}
