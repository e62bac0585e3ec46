package core

// SignUpInput contains the data needed to register a new user
type SignUpInput struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Password2   string `json:"password2"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
	Location    string `json:"location"`
}

// SignInInput contains the credentials for authentication
type SignInInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SocialSignInInput carries a raw provider ID token.
//
// Name is only consulted for Apple, whose tokens never include one.
type SocialSignInInput struct {
	Provider  Provider `json:"-"`
	AuthToken string   `json:"auth_token"`
	Name      string   `json:"name"`
}

// SuperuserInput seeds a staff account with full privileges.
type SuperuserInput struct {
	Email    string
	Password string
	Name     string
}
