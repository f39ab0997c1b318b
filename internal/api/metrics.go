package api

import (
	"net/http"
	"runtime"
	"time"
)

// metricsResponse is the body of GET /api/metrics. Sections for optional
// dependencies are omitted when the dependency is not wired.
type metricsResponse struct {
	Timestamp     string         `json:"timestamp"`
	Version       string         `json:"version"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	Runtime       runtimeMetrics `json:"runtime"`
	Push          pushMetrics    `json:"websocket"`
	Remote        *remoteMetrics `json:"remote,omitempty"`
	Broker        *brokerMetrics `json:"mqtt,omitempty"`
	Store         *storeMetrics  `json:"database,omitempty"`
}

type runtimeMetrics struct {
	Goroutines  int     `json:"goroutines"`
	HeapAllocMB float64 `json:"heap_alloc_mb"`
	NumGC       uint32  `json:"num_gc"`
}

type pushMetrics struct {
	Clients int `json:"connected_clients"`
}

type remoteMetrics struct {
	ActiveSessions int `json:"active_sessions"`
	MaxSessions    int `json:"max_sessions"`
}

type brokerMetrics struct {
	Connected bool `json:"connected"`
}

type storeMetrics struct {
	OpenConnections int   `json:"open_connections"`
	InUse           int   `json:"in_use"`
	WaitCount       int64 `json:"wait_count"`
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	resp := metricsResponse{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: runtimeMetrics{
			Goroutines:  runtime.NumGoroutine(),
			HeapAllocMB: float64(mem.HeapAlloc) / (1 << 20),
			NumGC:       mem.NumGC,
		},
		Push: pushMetrics{Clients: s.hub.ClientCount()},
	}

	if s.sessions != nil {
		resp.Remote = &remoteMetrics{
			ActiveSessions: s.sessions.ActiveSessions(),
			MaxSessions:    s.sessions.MaxSessions(),
		}
	}
	if s.mqtt != nil {
		resp.Broker = &brokerMetrics{Connected: s.mqtt.IsConnected()}
	}
	if s.db != nil {
		st := s.db.Stats()
		resp.Store = &storeMetrics{
			OpenConnections: st.OpenConnections,
			InUse:           st.InUse,
			WaitCount:       st.WaitCount,
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
