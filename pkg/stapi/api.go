package stapi

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Api struct {
	Api    huma.API
	Router *chi.Mux
}

type options struct {
	requestLog bool
}

type Option func(*options)

// WithoutRequestLog drops the per-request access log.
func WithoutRequestLog() Option {
	return func(o *options) { o.requestLog = false }
}

func NewApi(opts ...Option) *Api {
	o := options{requestLog: true}
	for _, opt := range opts {
		opt(&o)
	}

	router := chi.NewMux()
	if o.requestLog {
		router.Use(middleware.Logger)
	}
	router.Use(middleware.Recoverer)

	config := huma.DefaultConfig("SkinTwin API", "1.0.0")

	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "JWT",
			Description:  "Access token from /api/users/login/",
		},
	}

	api := humachi.New(router, config)

	return &Api{Api: api, Router: router}
}
