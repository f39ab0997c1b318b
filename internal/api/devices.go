package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/smarthome-core/internal/device"
)

type createDeviceRequest struct {
	Name   string `json:"name"`
	RoomID string `json:"roomId"`
	Type   string `json:"type"`
}

type temperatureRequest struct {
	Temperature *float64 `json:"temperature"`
}

type temperatureResponse struct {
	ID          string  `json:"id"`
	Temperature float64 `json:"temperature"`
}

// deviceResponse is the wire form of a device. IsOn is set for bulbs
// only and Temperature for sensors that have reported.
type deviceResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	RoomID      string    `json:"roomId"`
	RoomName    string    `json:"roomName"`
	Type        string    `json:"type"`
	IsOn        *bool     `json:"isOn,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toDeviceResponse(d *device.Device) deviceResponse {
	resp := deviceResponse{
		ID:          d.ID,
		Name:        d.Name,
		RoomID:      d.RoomID,
		RoomName:    d.RoomLabel(),
		Type:        d.Kind.Label(),
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
	switch {
	case d.Bulb != nil:
		on := d.Bulb.On
		resp.IsOn = &on
	case d.Sensor != nil:
		resp.Temperature = d.Sensor.Reading
	}
	return resp
}

// handleListDevices returns the caller's devices.
//
// Query parameters:
//   - room_id: only devices filed under this room
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.devices.GetAllDevicesForUser(r.Context(), callerID(r))
	if err != nil {
		s.writeServiceError(w, r, "list devices", err)
		return
	}

	roomID := r.URL.Query().Get("room_id")
	out := make([]deviceResponse, 0, len(devices))
	for i := range devices {
		if roomID != "" && devices[i].RoomID != roomID {
			continue
		}
		out = append(out, toDeviceResponse(&devices[i]))
	}

	writeJSON(w, http.StatusOK, map[string]any{"devices": out, "count": len(out)})
}

// handleCreateDevice adds a device for the caller.
func (s *Server) handleCreateDevice(w http.ResponseWriter, r *http.Request) {
	var req createDeviceRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	d, err := s.devices.AddDevice(r.Context(), req.Name, req.RoomID, req.Type, callerID(r))
	if err != nil {
		s.writeServiceError(w, r, "create device", err)
		return
	}
	writeJSON(w, http.StatusCreated, toDeviceResponse(d))
}

// handleGetDevice returns one of the caller's devices.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	d, err := s.devices.GetDeviceForUser(r.Context(), chi.URLParam(r, "id"), callerID(r))
	if err != nil {
		s.writeServiceError(w, r, "get device", err)
		return
	}
	writeJSON(w, http.StatusOK, toDeviceResponse(d))
}

// handleDeleteDevice removes one of the caller's devices.
func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	ok, err := s.devices.DeleteDevice(r.Context(), chi.URLParam(r, "id"), callerID(r))
	if err != nil {
		s.writeServiceError(w, r, "delete device", err)
		return
	}
	if !ok {
		s.writeServiceError(w, r, "delete device", device.ErrDeviceNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTurnOn(w http.ResponseWriter, r *http.Request) {
	s.switchDevice(w, r, true)
}

func (s *Server) handleTurnOff(w http.ResponseWriter, r *http.Request) {
	s.switchDevice(w, r, false)
}

// switchDevice sets a bulb's power state and returns the device.
func (s *Server) switchDevice(w http.ResponseWriter, r *http.Request, on bool) {
	ctx, id, userID := r.Context(), chi.URLParam(r, "id"), callerID(r)

	// TurnOn and TurnOff report a sensor and a missing device alike.
	d, err := s.devices.GetDeviceForUser(ctx, id, userID)
	if err != nil {
		s.writeServiceError(w, r, "switch device", err)
		return
	}
	if !d.IsBulb() {
		s.writeServiceError(w, r, "switch device", device.ErrNotBulb)
		return
	}

	switchFn := s.devices.TurnOff
	if on {
		switchFn = s.devices.TurnOn
	}
	ok, err := switchFn(ctx, id, userID)
	if err != nil {
		s.writeServiceError(w, r, "switch device", err)
		return
	}
	if !ok {
		s.writeServiceError(w, r, "switch device", device.ErrDeviceNotFound)
		return
	}

	d.Bulb.On = on
	writeJSON(w, http.StatusOK, toDeviceResponse(d))
}

// handleToggle flips a bulb and returns its new state.
func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	ctx, id, userID := r.Context(), chi.URLParam(r, "id"), callerID(r)

	if _, err := s.devices.Toggle(ctx, id, userID); err != nil {
		s.writeServiceError(w, r, "toggle device", err)
		return
	}

	d, err := s.devices.GetDeviceForUser(ctx, id, userID)
	if err != nil {
		s.writeServiceError(w, r, "toggle device", err)
		return
	}
	writeJSON(w, http.StatusOK, toDeviceResponse(d))
}

// handleGetTemperature returns a sensor's last reading.
func (s *Server) handleGetTemperature(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	celsius, err := s.devices.GetTemperature(r.Context(), id, callerID(r))
	if err != nil {
		s.writeServiceError(w, r, "get temperature", err)
		return
	}
	writeJSON(w, http.StatusOK, temperatureResponse{ID: id, Temperature: celsius})
}

// handleSetTemperature overrides a sensor's reading.
func (s *Server) handleSetTemperature(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req temperatureRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Temperature == nil {
		writeBadRequest(w, "temperature is required")
		return
	}

	if err := s.devices.SetTemperature(r.Context(), id, callerID(r), *req.Temperature); err != nil {
		s.writeServiceError(w, r, "set temperature", err)
		return
	}
	writeJSON(w, http.StatusOK, temperatureResponse{ID: id, Temperature: *req.Temperature})
}
