package routes

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/quatton/skintwin/pkg/stapi/services"
)

// RegisterAPI registers every operation. A nil svcs registers the operations
// for OpenAPI generation only.
func RegisterAPI(api huma.API, svcs *services.Services) {
	if svcs == nil {
		svcs = services.EmptyServices()
	}
	RegisterHealth(api)
	RegisterUsers(api, svcs.Accounts)
	RegisterTokens(api, svcs.Accounts)
}
