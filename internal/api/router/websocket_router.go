package router

import (
	"net/http"

	"livechat-backend/internal/api"
	"livechat-backend/internal/api/endpoints"
	"livechat-backend/internal/api/middleware"
)

func WebsocketRoutes(prefix string) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		wsEndpoints := endpoints.NewWebsocketEndpoints(s.Handler(), prefix)

		mux.HandleFunc(prefix+"/rooms/", s.MakeHTTPHandleFunc(wsEndpoints.Room))
		mux.HandleFunc(prefix+"/users/", s.MakeHTTPHandleFunc(wsEndpoints.User))
		mux.HandleFunc(prefix+"/channels", s.MakeHTTPHandleFunc(wsEndpoints.Channels, middleware.ValidateAdminJWT))
	}
}
