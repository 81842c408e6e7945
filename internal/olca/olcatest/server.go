// Package olcatest provides an in-memory openLCA IPC server for tests.
package olcatest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/rshade/lcaprommis/internal/olca"
)

// Server is a fake IPC server backed by maps. Entities are stored as raw JSON
// keyed by @type and @id.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	entities  map[olca.EntityType]map[string]json.RawMessage
	providers []olca.TechFlow
	impacts   []olca.ImpactValue
	calls     []string
	ids       []int64
	setups    []olca.CalculationSetup
	results   map[string]int
	putCount  int

	// ReadyAfter is how many state polls a result needs before it is ready.
	ReadyAfter int
	// CalcError, when set, is reported by every result state.
	CalcError string
}

// NewServer starts a fake server and closes it when the test ends.
func NewServer(t *testing.T) *Server {
	t.Helper()
	s := &Server{
		entities: make(map[olca.EntityType]map[string]json.RawMessage),
		results:  make(map[string]int),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// Client returns an olca client pointed at the server.
func (s *Server) Client(t *testing.T, opts ...olca.Option) *olca.Client {
	t.Helper()
	c, err := olca.NewClient(s.URL, append([]olca.Option{olca.WithPollInterval(1)}, opts...)...)
	if err != nil {
		t.Fatalf("creating client: %v", err)
	}
	return c
}

// Add stores an entity. v must marshal to an object with "@id".
func (s *Server) Add(typ olca.EntityType, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	var head struct {
		ID string `json:"@id"`
	}
	if err := json.Unmarshal(data, &head); err != nil || head.ID == "" {
		panic(fmt.Sprintf("olcatest: entity without @id: %s", data))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store(typ, head.ID, data)
}

func (s *Server) store(typ olca.EntityType, id string, data json.RawMessage) {
	if s.entities[typ] == nil {
		s.entities[typ] = make(map[string]json.RawMessage)
	}
	s.entities[typ][id] = data
}

// AddProvider registers a provider of a technosphere flow.
func (s *Server) AddProvider(provider, flow olca.Ref) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.providers = append(s.providers, olca.TechFlow{Provider: &provider, Flow: &flow})
}

// SetImpacts sets what result/total-impacts returns.
func (s *Server) SetImpacts(values []olca.ImpactValue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.impacts = values
}

// Stored decodes a stored entity into out and reports whether it exists.
func (s *Server) Stored(typ olca.EntityType, id string, out any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.entities[typ][id]
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		panic(err)
	}
	return true
}

// Count returns how many entities of a type are stored.
func (s *Server) Count(typ olca.EntityType) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entities[typ])
}

// Calls returns the methods called so far, in order.
func (s *Server) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// RequestIDs returns the JSON-RPC request ids received so far, in order.
func (s *Server) RequestIDs() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.ids...)
}

// Setups returns the calculation setups received so far.
func (s *Server) Setups() []olca.CalculationSetup {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]olca.CalculationSetup(nil), s.setups...)
}

// Puts returns how many data/put calls were made.
func (s *Server) Puts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putCount
}

type request struct {
	ID     int64           `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.calls = append(s.calls, req.Method)
	s.ids = append(s.ids, req.ID)
	result, rpcErr := s.dispatch(req)
	s.mu.Unlock()

	resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
	if rpcErr != nil {
		resp["error"] = rpcErr
	} else {
		resp["result"] = result
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) dispatch(req request) (any, *olca.RPCError) {
	var ref olca.Ref
	if len(req.Params) > 0 && string(req.Params) != "null" {
		_ = json.Unmarshal(req.Params, &ref)
	}

	switch req.Method {
	case "data/get":
		data, ok := s.entities[ref.Type][ref.ID]
		if !ok {
			return nil, nil
		}
		return data, nil
	case "data/get/all":
		all := make([]json.RawMessage, 0, len(s.entities[ref.Type]))
		for _, data := range s.entities[ref.Type] {
			all = append(all, data)
		}
		return all, nil
	case "data/get/descriptors":
		refs := make([]olca.Ref, 0, len(s.entities[ref.Type]))
		for _, data := range s.entities[ref.Type] {
			var d olca.Ref
			_ = json.Unmarshal(data, &d)
			d.Type = ref.Type
			refs = append(refs, d)
		}
		return refs, nil
	case "data/put":
		if ref.Type == "" || ref.ID == "" {
			return nil, &olca.RPCError{Code: -32602, Message: "entity needs @type and @id"}
		}
		s.putCount++
		s.store(ref.Type, ref.ID, req.Params)
		return olca.Ref{Type: ref.Type, ID: ref.ID, Name: ref.Name}, nil
	case "data/get/providers":
		if ref.ID == "" {
			return s.providers, nil
		}
		var out []olca.TechFlow
		for _, tf := range s.providers {
			if tf.Flow.ID == ref.ID {
				out = append(out, tf)
			}
		}
		return out, nil
	case "result/calculate":
		var setup olca.CalculationSetup
		_ = json.Unmarshal(req.Params, &setup)
		s.setups = append(s.setups, setup)
		id := fmt.Sprintf("result-%d", len(s.setups))
		s.results[id] = 0
		return s.state(id), nil
	case "result/state":
		if _, ok := s.results[ref.ID]; !ok {
			return nil, &olca.RPCError{Code: 404, Message: "result not found"}
		}
		s.results[ref.ID]++
		return s.state(ref.ID), nil
	case "result/total-impacts":
		return s.impacts, nil
	case "result/dispose":
		delete(s.results, ref.ID)
		return nil, nil
	default:
		return nil, &olca.RPCError{Code: -32601, Message: "method not found"}
	}
}

func (s *Server) state(id string) olca.ResultState {
	polls := s.results[id]
	return olca.ResultState{
		ID:          id,
		Error:       s.CalcError,
		IsScheduled: true,
		IsReady:     s.CalcError == "" && polls >= s.ReadyAfter,
	}
}
