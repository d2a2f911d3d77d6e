package domain

// User represents a registered user.
type User struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	HashedPassword string `json:"-"`
	DateCreated    string `json:"date_created"`
}

// Identity is the authenticated caller extracted from a verified access token.
type Identity struct {
	Username string `json:"username"`
	UserID   string `json:"id"`
}

// Token holds an issued bearer access token.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}
