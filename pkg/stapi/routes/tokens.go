package routes

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/quatton/skintwin/pkg/stapi/schemas"
	"github.com/quatton/skintwin/pkg/stapi/services/accounts"
)

func RegisterTokens(api huma.API, svc *accounts.Service) {
	huma.Register(api, huma.Operation{
		OperationID: "token-refresh",
		Method:      http.MethodPost,
		Path:        PathRefresh,
		Summary:     "Refresh access token",
		Description: "Exchanges a valid refresh token for a new access token",
		Tags:        []string{TagTokens.String()},
	}, func(ctx context.Context, input *schemas.RefreshTokenRequest) (*schemas.RefreshTokenResponse, error) {
		if input.Body.Refresh == "" {
			return nil, huma.Error400BadRequest("refresh is required")
		}

		pair, err := svc.Refresh(ctx, input.Body.Refresh)
		if err != nil {
			if errors.Is(err, accounts.ErrInvalidToken) || errors.Is(err, accounts.ErrRevokedToken) {
				return nil, huma.Error401Unauthorized("token is invalid or expired")
			}
			return nil, huma.Error500InternalServerError(fmt.Sprintf("failed to refresh token: %v", err))
		}

		resp := &schemas.RefreshTokenResponse{}
		resp.Body.Access = pair.Access
		resp.Body.Refresh = pair.Refresh
		return resp, nil
	})
}
