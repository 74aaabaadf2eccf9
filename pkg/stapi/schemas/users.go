package schemas

type User struct {
	ID        string `json:"id" doc:"Unique identifier of the user"`
	Username  string `json:"username" doc:"Login name"`
	Email     string `json:"email" doc:"Email address"`
	FirstName string `json:"first_name,omitempty" doc:"Given name"`
	LastName  string `json:"last_name,omitempty" doc:"Family name"`
}

type Tokens struct {
	Access  string `json:"access" doc:"Short-lived access token"`
	Refresh string `json:"refresh" doc:"Long-lived refresh token"`
}

type AuthResponse struct {
	Body struct {
		User   User   `json:"user"`
		Tokens Tokens `json:"tokens"`
	}
}

type LoginRequest struct {
	Body struct {
		Username string `json:"username" minLength:"1" doc:"Username or email address"`
		Password string `json:"password" minLength:"1" doc:"Account password"`
	}
}

type RegisterRequest struct {
	Body struct {
		Username        string `json:"username,omitempty" doc:"Login name, derived from the email when empty"`
		Email           string `json:"email" doc:"Email address"`
		Password        string `json:"password" doc:"Account password"`
		PasswordConfirm string `json:"password_confirm" doc:"Must equal password"`
		FirstName       string `json:"first_name,omitempty" maxLength:"150"`
		LastName        string `json:"last_name,omitempty" maxLength:"150"`
	}
}

type ProfileRequest struct {
	Authorization string `header:"Authorization" doc:"Bearer access token"`
}

type ProfileResponse struct {
	Body User
}
