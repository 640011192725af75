package entity

// User is an identity-provider account as seen by billing.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}
