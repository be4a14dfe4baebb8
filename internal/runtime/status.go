package runtime

import (
	"net/http"

	jsoncodec "github.com/drblury/matchwire/internal/runtime/jsoncodec"
)

const defaultStatusPort = 8081

type catalogEntry struct {
	Tag       string   `json:"tag"`
	Name      string   `json:"name"`
	Direction string   `json:"direction"`
	Topic     string   `json:"topic"`
	Fields    []string `json:"fields"`
}

// StartStatusServer registers the status endpoints when enabled:
// /api/handlers (handler stats), /api/catalog (tags this relay understands)
// and /api/protocol (codec counters).
func (s *Service) StartStatusServer() {
	if !s.Conf.StatusEnabled {
		return
	}

	port := s.Conf.StatusPort
	if port == 0 {
		port = defaultStatusPort
	}

	s.RegisterHTTPHandler(port, "/api/handlers", http.HandlerFunc(s.handleGetHandlers))
	s.RegisterHTTPHandler(port, "/api/catalog", http.HandlerFunc(s.handleGetCatalog))
	s.RegisterHTTPHandler(port, "/api/protocol", http.HandlerFunc(s.handleGetProtocol))
}

func (s *Service) handleGetHandlers(w http.ResponseWriter, _ *http.Request) {
	s.handlersMu.RLock()
	defer s.handlersMu.RUnlock()
	s.writeJSON(w, s.handlers)
}

func (s *Service) handleGetCatalog(w http.ResponseWriter, _ *http.Request) {
	registry := s.codec.Registry()
	entries := make([]catalogEntry, 0, registry.Len())
	for _, tag := range registry.Tags() {
		entry, _ := registry.Lookup(tag)
		entries = append(entries, catalogEntry{
			Tag:       tag.String(),
			Name:      entry.Name,
			Direction: entry.Direction().String(),
			Topic:     s.TopicFor(tag),
			Fields:    entry.Fields,
		})
	}
	s.writeJSON(w, entries)
}

func (s *Service) handleGetProtocol(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, s.metrics.Snapshot())
}

func (s *Service) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := jsoncodec.Encode(w, v); err != nil {
		s.Logger.Error("Failed to encode status response", err, nil)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
