// Package mmghttp is the HTTP façade of spec §6: a thin JSON-in/JSON-out
// layer over mmgdb.Registry and the query/exec pipeline, with permissive
// CORS. cmd/mmgd serves it on 127.0.0.1:16655 unless --addr says
// otherwise.
//
// Grounded on the teacher's rpcdaemon transport family — httprouter for
// routing, rs/cors for the browser-facing CORS policy — reused here for
// a handful of REST-ish endpoints instead of a JSON-RPC 2.0 dispatcher,
// since the DSL string itself is already the request envelope.
package mmghttp

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/ledgerwatch/minimongo/mmgdb"
	"github.com/rs/cors"
)

// Server bundles the registry and clock every handler needs.
type Server struct {
	Registry *mmgdb.Registry
	Clock    Clock
}

// NewServer returns a Server with the system clock.
func NewServer(reg *mmgdb.Registry) *Server {
	return &Server{Registry: reg, Clock: systemClock{}}
}

// Router builds the full handler chain: httprouter routes wrapped by a
// permissive CORS policy (spec §6.1 "CORS is permissive").
func (s *Server) Router() http.Handler {
	r := httprouter.New()
	r.GET("/mmg/hello/:name", s.handleHello)
	r.POST("/mmg/create_collection", s.handleCreateCollection)
	r.POST("/mmg/update_collection", s.handleUpdateCollection)
	r.POST("/mmg/query", s.handleQuery)
	r.POST("/mmg/query_raw", s.handleQueryRaw)
	r.GET("/", s.handleRoot)
	return cors.AllowAll().Handler(r)
}
