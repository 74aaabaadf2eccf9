package schemas

// RefreshTokenRequest carries the refresh token to exchange.
type RefreshTokenRequest struct {
	Body struct {
		Refresh string `json:"refresh" doc:"Refresh token issued at login"`
	}
}

// RefreshTokenResponse contains a new access token, and a new refresh token
// when the server rotates them.
type RefreshTokenResponse struct {
	Body struct {
		Access  string `json:"access" doc:"New short-lived access token"`
		Refresh string `json:"refresh,omitempty" doc:"Rotated refresh token"`
	}
}

type LogoutRequest struct {
	Authorization string `header:"Authorization" doc:"Bearer access token"`
	Body          struct {
		Refresh string `json:"refresh" doc:"Refresh token to revoke"`
	}
}
