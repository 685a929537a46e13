package test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
)

const (
	ServiceToken  = "service-token"
	Oauth2Token   = "oauth2-token"
	ClientId      = "client-id"
	ClientSecret  = "client-secret"
	TokenEndpoint = "/oauth2/token"
)

// SourceServer imitates the patient api, responses are registered per path and patient id
type SourceServer struct {
	*httptest.Server

	mu            sync.Mutex
	responses     map[string]interface{}
	statuses      map[string]int
	authorization []string
}

func ServerStub() *SourceServer {
	server := &SourceServer{
		responses: map[string]interface{}{},
		statuses:  map[string]int{},
	}
	server.Server = httptest.NewServer(http.HandlerFunc(server.serveHTTP))
	return server
}

// SetCollection responds to requests for the patient with an Ok envelope holding the records
func (s *SourceServer) SetCollection(path, patientId, collection string, records []map[string]interface{}) {
	s.SetResponse(path, patientId, http.StatusOK, map[string]interface{}{
		"status": "Ok",
		"data": map[string]interface{}{
			collection: records,
		},
	})
}

func (s *SourceServer) SetResponse(path, patientId string, status int, body interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[path+"?"+patientId] = body
	s.statuses[path+"?"+patientId] = status
}

// Authorization returns the authorization headers of the data requests received so far
func (s *SourceServer) Authorization() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.authorization...)
}

func (s *SourceServer) serveHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost && r.URL.Path == TokenEndpoint {
		user, password, ok := r.BasicAuth()
		if !ok || user != ClientId || password != ClientSecret {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"access_token": Oauth2Token,
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
		return
	}

	s.mu.Lock()
	s.authorization = append(s.authorization, r.Header.Get("Authorization"))
	key := r.URL.Path + "?" + r.URL.Query().Get("patientId")
	body, ok := s.responses[key]
	status := s.statuses[key]
	s.mu.Unlock()

	if r.Method != http.MethodGet || !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	data, err := json.Marshal(body)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Add("content-type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
