package routes

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/quatton/skintwin/pkg/stapi/schemas"
	"github.com/quatton/skintwin/pkg/stapi/services/accounts"
)

func RegisterUsers(api huma.API, svc *accounts.Service) {
	huma.Register(api, huma.Operation{
		OperationID: "users-login",
		Method:      http.MethodPost,
		Path:        PathLogin,
		Summary:     "Log in",
		Description: "Checks a username or email and password and issues an access/refresh token pair",
		Tags:        []string{TagUsers.String()},
	}, func(ctx context.Context, input *schemas.LoginRequest) (*schemas.AuthResponse, error) {
		user, err := svc.Authenticate(ctx, input.Body.Username, input.Body.Password)
		if err != nil {
			if errors.Is(err, accounts.ErrInvalidCredentials) {
				return nil, huma.Error400BadRequest("invalid username or password")
			}
			return nil, huma.Error500InternalServerError(fmt.Sprintf("failed to authenticate: %v", err))
		}
		return authResponse(svc, user)
	})

	huma.Register(api, huma.Operation{
		OperationID:   "users-register",
		Method:        http.MethodPost,
		Path:          PathRegister,
		Summary:       "Register",
		Description:   "Creates an account and issues an access/refresh token pair",
		Tags:          []string{TagUsers.String()},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *schemas.RegisterRequest) (*schemas.AuthResponse, error) {
		user, err := svc.Register(ctx, accounts.Registration{
			Username:        input.Body.Username,
			Email:           input.Body.Email,
			Password:        input.Body.Password,
			PasswordConfirm: input.Body.PasswordConfirm,
			FirstName:       input.Body.FirstName,
			LastName:        input.Body.LastName,
		})
		if err != nil {
			var verr *accounts.ValidationError
			if errors.As(err, &verr) {
				details := fieldDetails(verr.Fields)
				if verr.Duplicate {
					return nil, huma.Error409Conflict("account already exists", details...)
				}
				return nil, huma.Error400BadRequest("validation failed", details...)
			}
			return nil, huma.Error500InternalServerError(fmt.Sprintf("failed to register: %v", err))
		}
		return authResponse(svc, user)
	})

	huma.Register(api, huma.Operation{
		OperationID:   "users-logout",
		Method:        http.MethodPost,
		Path:          PathLogout,
		Summary:       "Log out",
		Description:   "Revokes the given refresh token",
		Tags:          []string{TagUsers.String()},
		Security:      BearerAuth,
		DefaultStatus: http.StatusResetContent,
	}, func(ctx context.Context, input *schemas.LogoutRequest) (*struct{}, error) {
		user, err := authorize(ctx, svc, input.Authorization)
		if err != nil {
			return nil, err
		}
		if err := svc.Logout(ctx, user, input.Body.Refresh); err != nil {
			if errors.Is(err, accounts.ErrInvalidToken) || errors.Is(err, accounts.ErrRevokedToken) {
				return nil, huma.Error400BadRequest("invalid refresh token")
			}
			return nil, huma.Error500InternalServerError(fmt.Sprintf("failed to log out: %v", err))
		}
		return nil, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "users-profile",
		Method:      http.MethodGet,
		Path:        PathProfile,
		Summary:     "Get current user",
		Description: "Returns the profile of the authenticated user",
		Tags:        []string{TagUsers.String()},
		Security:    BearerAuth,
	}, func(ctx context.Context, input *schemas.ProfileRequest) (*schemas.ProfileResponse, error) {
		user, err := authorize(ctx, svc, input.Authorization)
		if err != nil {
			return nil, err
		}
		return &schemas.ProfileResponse{Body: toSchemaUser(user)}, nil
	})
}

func authResponse(svc *accounts.Service, user *accounts.User) (*schemas.AuthResponse, error) {
	pair, err := svc.IssueTokens(user)
	if err != nil {
		return nil, huma.Error500InternalServerError(fmt.Sprintf("failed to issue tokens: %v", err))
	}
	resp := &schemas.AuthResponse{}
	resp.Body.User = toSchemaUser(user)
	resp.Body.Tokens = schemas.Tokens{Access: pair.Access, Refresh: pair.Refresh}
	return resp, nil
}

// authorize resolves the user behind an "Authorization: Bearer" header.
func authorize(ctx context.Context, svc *accounts.Service, header string) (*accounts.User, error) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return nil, huma.Error401Unauthorized("authentication credentials were not provided")
	}
	user, err := svc.Authorize(ctx, strings.TrimSpace(token))
	if err != nil {
		if errors.Is(err, accounts.ErrInvalidToken) {
			return nil, huma.Error401Unauthorized("token is invalid or expired")
		}
		return nil, huma.Error500InternalServerError(fmt.Sprintf("failed to authorize: %v", err))
	}
	return user, nil
}

func toSchemaUser(u *accounts.User) schemas.User {
	return schemas.User{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}

func fieldDetails(fields map[string][]string) []error {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []error
	for _, name := range names {
		for _, msg := range fields[name] {
			out = append(out, &huma.ErrorDetail{Location: "body." + name, Message: msg})
		}
	}
	return out
}
