// internal/handlers/routes.go
package handlers

import (
	"net/http"

	"github.com/jason-s-yu/fourcolor/internal/middleware"
)

// Handler returns the server's full route tree wrapped in request logging.
//
// The socket lives on its own mux: "/tables/ws/{id}" and "/tables/{id}/state" overlap on
// "/tables/ws/state", which a single ServeMux refuses to register.
func (ts *TableServer) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("POST /auth/guest", GuestHandler(ts.Logger))
	api.HandleFunc("GET /tables", ts.ListTablesHandler)
	api.HandleFunc("POST /tables/create", ts.CreateTableHandler)
	api.HandleFunc("POST /tables/{id}/join", ts.JoinTableHandler)
	api.HandleFunc("POST /tables/{id}/leave", ts.LeaveTableHandler)
	api.HandleFunc("POST /tables/{id}/start", ts.StartTableHandler)
	api.HandleFunc("GET /tables/{id}/state", ts.TableStateHandler)
	api.HandleFunc("POST /tables/{id}/actions", ts.SubmitActionHandler)

	ws := http.NewServeMux()
	ws.HandleFunc("GET /tables/ws/{id}", ts.TableWSHandler)

	root := http.NewServeMux()
	root.Handle("/tables/ws/", ws)
	root.Handle("/", api)
	return middleware.LogMiddleware(ts.Logger)(root)
}
