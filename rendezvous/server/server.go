// Package server implements the rendezvous HTTP service: a per-project
// operation descriptor, a participant signup counter, and a mailbox the
// DKG and signing engines broadcast and poll through. It is the Go
// counterpart of the original Rocket-based single-project server,
// generalized to host any number of named projects concurrently.
package server

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/bfix/gospel/logger"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	gorpc "github.com/gorilla/rpc"
	gorpcjson "github.com/gorilla/rpc/json"

	"dit/errs"
	"dit/rendezvous"
	"dit/rendezvous/store"
	"dit/util"
)

// project holds one project's live operation state: its current
// operation descriptor, the signup counter for that operation, and the
// mailbox entries parties have broadcast or sent p2p during it. mu
// serializes transitions that must be checked-then-changed atomically:
// starting an operation, ending one, and claiming a signup slot.
type project struct {
	mu      sync.Mutex
	op      rendezvous.Operation
	count   int
	mailbox store.Mailbox
}

func newProject(mailbox store.Mailbox) *project {
	return &project{op: rendezvous.Idle(), mailbox: mailbox}
}

// Server is the rendezvous service. The zero value is not usable; use New
// or NewWithStore.
type Server struct {
	projects  *util.Map[string, *project]
	storeSpec string

	statsMu sync.Mutex
	started util.Counter[rendezvous.Kind]
}

// New allocates a rendezvous server whose project mailboxes live only in
// process memory.
func New() *Server {
	return &Server{projects: util.NewMap[string, *project](), started: util.Counter[rendezvous.Kind]{}}
}

// NewWithStore allocates a rendezvous server whose project mailboxes are
// each opened against spec (see store.Open) instead of defaulting to an
// in-process map — e.g. a redis or SQL spec so mailbox state survives a
// dit-server restart mid-protocol. An empty spec is equivalent to New.
func NewWithStore(spec string) (*Server, error) {
	if _, err := store.Open(spec); err != nil {
		return nil, err
	}
	s := New()
	s.storeSpec = spec
	return s, nil
}

// Router builds the gorilla/mux router exposing the seven protocol
// endpoints plus a read-only JSON-RPC admin endpoint for operators.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/start-operation", s.handleStartOperation).Methods(http.MethodPost)
	r.HandleFunc("/get-operation", s.handleGetOperation).Methods(http.MethodPost)
	r.HandleFunc("/end-operation", s.handleEndOperation).Methods(http.MethodPost)
	r.HandleFunc("/signupkeygen", s.handleSignup).Methods(http.MethodPost)
	r.HandleFunc("/signupsign", s.handleSignup).Methods(http.MethodPost)
	r.HandleFunc("/get", s.handleGet).Methods(http.MethodPost)
	r.HandleFunc("/set", s.handleSet).Methods(http.MethodPost)

	admin := gorpc.NewServer()
	admin.RegisterCodec(gorpcjson.NewCodec(), "application/json")
	if err := admin.RegisterService(&statsService{s}, "Stats"); err != nil {
		// only fails for a malformed service shape, which is a
		// programming error caught the first time this runs.
		panic(err)
	}
	r.Handle("/admin/rpc", admin).Methods(http.MethodPost)
	return r
}

// project returns the named project, creating it on first reference. The
// get-or-create is done inside a single locked Map.Process call so two
// concurrent first-touches can't race and allocate two projects.
func (s *Server) project(name string) (*project, error) {
	var p *project
	var openErr error
	_ = s.projects.Process(func(pid int) error {
		if existing, ok := s.projects.Get(name, pid); ok {
			p = existing
			return nil
		}
		mailbox, err := store.Open(s.storeSpec)
		if err != nil {
			openErr = err
			return nil
		}
		p = newProject(mailbox)
		s.projects.Put(name, p, pid)
		return nil
	}, false)
	return p, openErr
}

func (s *Server) handleStartOperation(w http.ResponseWriter, r *http.Request) {
	var req rendezvous.StartOperationRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := s.project(req.ProjectName)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}

	p.mu.Lock()
	if p.op.Kind != rendezvous.KindIdle {
		p.mu.Unlock()
		writeErr(w, http.StatusConflict, errs.Newf(errs.Protocol, "project %q already has an operation in progress", req.ProjectName))
		return
	}
	op := req.Operation
	op.ID = uuid.NewString()
	p.op = op
	p.count = 0
	p.mu.Unlock()

	s.statsMu.Lock()
	s.started.Add(op.Kind)
	s.statsMu.Unlock()

	logger.Printf(logger.INFO, "[rendezvous] project %q: operation %s (%s) started\n", req.ProjectName, op.ID, op.Kind)
	writeJSON(w, rendezvous.OperationResponse{Operation: op})
}

func (s *Server) handleGetOperation(w http.ResponseWriter, r *http.Request) {
	var req rendezvous.ProjectRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := s.project(req.ProjectName)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	p.mu.Lock()
	op := p.op
	p.mu.Unlock()
	writeJSON(w, rendezvous.OperationResponse{Operation: op})
}

// handleEndOperation returns the project to Idle, unless the caller
// reports a protocol failure (req.Blame), in which case the project is
// left in the terminal Blame state instead: a peer polling
// /get-operation mid-abort must be able to observe that the operation
// failed, not silently find the project back at Idle as if nothing had
// been running.
func (s *Server) handleEndOperation(w http.ResponseWriter, r *http.Request) {
	var req rendezvous.EndOperationRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := s.project(req.ProjectName)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	p.mu.Lock()
	ended := p.op
	if req.Blame {
		p.op = rendezvous.Operation{Kind: rendezvous.KindBlame, ID: ended.ID}
	} else {
		p.op = rendezvous.Idle()
	}
	next := p.op
	p.count = 0
	p.mu.Unlock()

	logger.Printf(logger.INFO, "[rendezvous] project %q: operation %s ended (%s)\n", req.ProjectName, ended.ID, next.Kind)
	writeJSON(w, rendezvous.OperationResponse{Operation: next})
}

// handleSignup serves both /signupkeygen and /signupsign: the quota it
// enforces comes from the project's current operation (Quota), so the
// same handler works for either endpoint without knowing which kind of
// operation it's signing up for.
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req rendezvous.SignupRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := s.project(req.ProjectName)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.op.Kind == rendezvous.KindIdle {
		writeErr(w, http.StatusConflict, errs.ErrNoOperation)
		return
	}
	quota := p.op.Quota()
	if p.count >= quota {
		writeErr(w, http.StatusConflict, errs.ErrFull)
		return
	}
	p.count++
	number := p.count
	logger.Printf(logger.DBG, "[rendezvous] project %q: signup %d/%d for operation %s\n", req.ProjectName, number, quota, p.op.ID)
	writeJSON(w, rendezvous.SignupResponse{Number: number, OperationID: p.op.ID})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	var req rendezvous.GetRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := s.project(req.ProjectName)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	value, found, err := p.mailbox.Get(req.Key)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, errs.New(errs.Connection, "reading mailbox entry", err))
		return
	}
	writeJSON(w, rendezvous.GetResponse{Value: value, Found: found})
}

func (s *Server) handleSet(w http.ResponseWriter, r *http.Request) {
	var req rendezvous.SetRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := s.project(req.ProjectName)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if err := p.mailbox.Put(req.Key, req.Value); err != nil {
		writeErr(w, http.StatusInternalServerError, errs.New(errs.Connection, "writing mailbox entry", err))
		return
	}
	writeJSON(w, struct{}{})
}

// statsService is the read-only JSON-RPC admin surface mounted at
// /admin/rpc: an operator watching a rendezvous server from outside the
// protocol can poll it for how many operations of each kind have been
// started, without needing a project name or taking part in anything.
type statsService struct {
	s *Server
}

// StatsArgs is empty: the single RPC method takes no parameters.
type StatsArgs struct{}

// StatsReply reports the number of operations started per kind, across
// every project this server has ever hosted.
type StatsReply struct {
	Started map[string]int `json:"started"`
}

// Get implements the gorilla/rpc method contract: func(*http.Request,
// *Args, *Reply) error.
func (svc *statsService) Get(_ *http.Request, _ *StatsArgs, reply *StatsReply) error {
	svc.s.statsMu.Lock()
	defer svc.s.statsMu.Unlock()
	reply.Started = make(map[string]int, len(svc.s.started))
	for kind := range svc.s.started {
		reply.Started[string(kind)] = svc.s.started.Num(kind)
	}
	return nil
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeErr(w, http.StatusBadRequest, errs.New(errs.Decode, "decoding request body", err))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Printf(logger.ERROR, "[rendezvous] encoding response: %s\n", err)
	}
}

func writeErr(w http.ResponseWriter, status int, err error) {
	logger.Printf(logger.WARN, "[rendezvous] %s\n", err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(struct {
		Error string `json:"error"`
	}{Error: err.Error()})
}
