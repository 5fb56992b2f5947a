package router

import (
	"net/http"

	"livechat-backend/internal/api"
	"livechat-backend/internal/api/endpoints"
	"livechat-backend/internal/api/middleware"
)

func LivechatRoutes(prefix string) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		livechatEndpoints := endpoints.NewLivechatEndpoints(s.Livechat(), prefix)

		mux.HandleFunc(prefix+"/rooms/", s.MakeHTTPHandleFunc(livechatEndpoints.Rooms, middleware.ValidateAgentJWT))
		mux.HandleFunc(prefix+"/agents/", s.MakeHTTPHandleFunc(livechatEndpoints.Agents, middleware.ValidateAgentJWT))
		mux.HandleFunc(prefix+"/availability", s.MakeHTTPHandleFunc(livechatEndpoints.Availability, middleware.ValidateAgentJWT))
	}
}
