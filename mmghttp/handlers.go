package mmghttp

import (
	"encoding/json"
	"net/http"

	"github.com/c2h5oh/datasize"
	"github.com/julienschmidt/httprouter"
	"github.com/ledgerwatch/minimongo/exec"
	"github.com/ledgerwatch/minimongo/mmgdb"
	"github.com/ledgerwatch/minimongo/mmglog"
	"github.com/ledgerwatch/minimongo/query"
)

// maxRequestBody bounds every handler's request body the same way
// stage_log_index.go bounds its in-memory bitmap staging: a datasize
// constant rather than a bare integer literal.
const maxRequestBody = 8 * datasize.MB

func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxRequestBody))
	return json.NewDecoder(r.Body).Decode(v)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		mmglog.Error("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.writeJSON(w, statusFor(err), map[string]interface{}{
		"state":     statusFor(err),
		"message":   err.Error(),
		"timestamp": s.Clock.NowMillis(),
	})
}

// handleHello serves GET /mmg/hello/:name (spec §6.1).
func (s *Server) handleHello(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"mmg":       ps.ByName("name"),
		"timestamp": s.Clock.NowMillis(),
	})
}

// handleRoot serves GET / (spec §6.1).
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":   "minimongo",
		"timestamp": s.Clock.NowMillis(),
	})
}

type schemaDTO struct {
	PrimaryKey          string   `json:"primary_key"`
	IndexesF64          []string `json:"indexes_f64"`
	IndexesString       []string `json:"indexes_string"`
	IndexesStringUnique []string `json:"indexes_string_unique"`
}

type createCollectionRequest struct {
	WorkspaceID    string    `json:"workspace_id"`
	CollectionName string    `json:"collection_name"`
	Schema         schemaDTO `json:"schema"`
}

// handleCreateCollection serves POST /mmg/create_collection (spec
// §6.1).
func (s *Server) handleCreateCollection(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req createCollectionRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, &mmgdb.SchemaError{Reason: "malformed request body"})
		return
	}

	db, err := s.Registry.Open(req.WorkspaceID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	def := mmgdb.CollectionDef{
		Name:                req.CollectionName,
		PrimaryKey:          req.Schema.PrimaryKey,
		IndexesF64:          req.Schema.IndexesF64,
		IndexesString:       req.Schema.IndexesString,
		IndexesStringUnique: req.Schema.IndexesStringUnique,
	}
	if err := db.CreateCollection(def); err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"state":       http.StatusOK,
		"message":     "collection created",
		"collections": db.ListCollections(),
		"timestamp":   s.Clock.NowMillis(),
	})
}

type updateCollectionRequest struct {
	WorkspaceID    string            `json:"workspace_id"`
	CollectionName string            `json:"collection_name"`
	Collections    []json.RawMessage `json:"collections"`
	UpdateType     string            `json:"update_type"`
}

func parseUpdateType(s string) mmgdb.UpdateMode {
	switch s {
	case "CreateOnly", "CREATEONLY":
		return mmgdb.CreateOnly
	case "UpdateOnly", "UPDATEONLY":
		return mmgdb.UpdateOnly
	default:
		return mmgdb.Merge
	}
}

// handleUpdateCollection serves POST /mmg/update_collection (spec
// §6.1). num_created/num_updated are real counts from BatchReport,
// keeping the legacy advisory field names (§9 item 3).
func (s *Server) handleUpdateCollection(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req updateCollectionRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, &mmgdb.DocumentError{Reason: "malformed request body"})
		return
	}

	db, err := s.Registry.Open(req.WorkspaceID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	report, err := db.UpdateRecords(req.CollectionName, req.Collections, parseUpdateType(req.UpdateType))
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"state":       http.StatusOK,
		"message":     "update applied",
		"num_created": report.Created,
		"num_updated": report.Updated,
		"timestamp":   s.Clock.NowMillis(),
	})
}

type queryRequest struct {
	WorkspaceID string                 `json:"workspace_id"`
	Query       string                 `json:"query"`
	Params      map[string]interface{} `json:"params"`
}

func (s *Server) runQuery(req queryRequest) (map[string]interface{}, error) {
	db, err := s.Registry.Open(req.WorkspaceID)
	if err != nil {
		return nil, err
	}
	prog, err := query.ParseProgram(query.Tokenize(req.Query))
	if err != nil {
		return nil, err
	}
	env := exec.NewEnvironment(req.Params)
	return exec.Execute(db, prog, env)
}

// handleQuery serves POST /mmg/query (spec §6.1).
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req queryRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, &query.ParseError{Reason: "malformed request body"})
		return
	}

	result, err := s.runQuery(req)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"state":        http.StatusOK,
		"message":      "ok",
		"final_result": result,
		"timestamp":    s.Clock.NowMillis(),
	})
}

// handleQueryRaw serves POST /mmg/query_raw: same request shape as
// /mmg/query, but the response is the bare final_result map with no
// envelope (spec §6.1's table lists this endpoint's response as
// "final_result only").
func (s *Server) handleQueryRaw(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req queryRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, &query.ParseError{Reason: "malformed request body"})
		return
	}

	result, err := s.runQuery(req)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}
