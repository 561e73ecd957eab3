package server

import (
	"bufio"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"maps"
	"net"
	"strings"
	"time"

	"github.com/jmylchreest/volctrld/internal/errors"
	"github.com/jmylchreest/volctrld/internal/utils"
)

func (s *Server) acceptConnections() {
	defer s.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic in acceptConnections", "recover", r)
		}
	}()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.shutdown:
				s.logger.Info("Socket listener shutting down")
				return
			default:
				s.logger.Error("Failed to accept connection", "error", err)
				if stderrors.Is(err, net.ErrClosed) {
					return
				}
				continue
			}
		}
		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()
	defer s.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic in connection handler", "recover", r)
		}
	}()

	ctx, cancel := context.WithCancel(s.rootCtx)
	defer cancel()

	go func() {
		select {
		case <-s.shutdown:
			if uc, ok := conn.(*net.UnixConn); ok {
				uc.CloseRead() // unblock ReadBytes
			}
			cancel()
		case <-ctx.Done():
		}
	}()

	reader := bufio.NewReader(conn)
	for {
		if ctx.Err() != nil {
			return
		}

		line, err := reader.ReadBytes('\n')
		if err != nil {
			if stderrors.Is(err, io.EOF) || stderrors.Is(err, net.ErrClosed) {
				s.logger.Debug("Client disconnected")
			} else {
				s.logger.Error("Failed to read from connection", "error", err)
			}
			return
		}

		var req struct {
			Action string         `json:"action"`
			ID     string         `json:"id"`
			Data   map[string]any `json:"data"`
		}
		if err := json.Unmarshal(line, &req); err != nil {
			s.logger.Error("Failed to unmarshal request", "error", err, "request", string(line))
			s.sendError(conn, "", errors.InvalidInputf("invalid JSON request: %v", err))
			continue
		}
		if req.Data == nil {
			req.Data = map[string]any{}
		}

		s.logger.Debug("Received request", "action", req.Action, "id", req.ID, "data", req.Data)

		result, err := s.handleAction(ctx, req.Action, req.Data)
		if err != nil {
			s.sendError(conn, req.ID, err)
			continue
		}
		s.sendResponse(conn, req.ID, result)
	}
}

// handleAction runs one socket action and returns the fields to merge into
// the response.
func (s *Server) handleAction(ctx context.Context, action string, data map[string]any) (map[string]any, error) {
	switch action {
	case "ping":
		return map[string]any{"message": "pong"}, nil

	case "health":
		return map[string]any{"health": "ok"}, nil

	case "status":
		snap := s.loop.Snapshot()
		result := map[string]any{"mode": snap.Mode, "devices": snap.Devices}
		if snap.Companion != nil {
			result["companion"] = snap.Companion
		}
		return result, nil

	case "devices":
		return map[string]any{"devices": s.loop.Snapshot().Devices}, nil

	case "device":
		address := stringFromMap(data, "address")
		if address == "" {
			return nil, errors.InvalidInputf("missing address for device")
		}
		for _, d := range s.loop.Snapshot().Devices {
			if d.Address == address {
				return map[string]any{"device": d}, nil
			}
		}
		return nil, errors.NotFoundf("device %s", address)

	case "mode":
		return map[string]any{"mode": s.loop.Snapshot().Mode}, nil

	case "set_volume":
		volume, ok := numberFromMap(data, "volume")
		if !ok {
			return nil, errors.InvalidInputf("missing or non-numeric volume for set_volume")
		}
		if err := s.loop.SetVolume(ctx, stringFromMap(data, "address"), volume); err != nil {
			return nil, err
		}
		return nil, nil

	case "adjust_volume":
		delta, ok := numberFromMap(data, "delta")
		if !ok {
			return nil, errors.InvalidInputf("missing or non-numeric delta for adjust_volume")
		}
		return nil, s.loop.AdjustVolume(ctx, int(delta))

	case "toggle_mute":
		return nil, s.loop.ToggleMute(ctx)

	case "encoder":
		delta, ok := numberFromMap(data, "delta")
		if !ok {
			return nil, errors.InvalidInputf("missing or non-numeric delta for encoder")
		}
		if err := s.loop.Encoder(ctx, int(delta), time.Time{}); err != nil {
			return nil, err
		}
		return map[string]any{"mode": s.loop.Snapshot().Mode}, nil

	case "button":
		pressed, ok := data["pressed"].(bool)
		if !ok {
			return nil, errors.InvalidInputf("missing or non-boolean pressed for button")
		}
		if err := s.loop.Button(ctx, pressed, time.Time{}); err != nil {
			return nil, err
		}
		return map[string]any{"mode": s.loop.Snapshot().Mode}, nil

	case "companion":
		command := stringFromMap(data, "command")
		if command == "" {
			return nil, errors.InvalidInputf("missing command for companion")
		}
		st, err := s.loop.Companion(ctx, command, stringFromMap(data, "input"))
		if err != nil {
			return nil, err
		}
		return map[string]any{"companion": st}, nil

	case "set_auto_standby":
		address := stringFromMap(data, "address")
		minutes, ok := numberFromMap(data, "minutes")
		if address == "" || !ok {
			return nil, errors.InvalidInputf("set_auto_standby needs address and minutes")
		}
		return nil, s.loop.SetAutoStandby(ctx, address, int(minutes))

	case "get_level":
		return map[string]any{"level": utils.LevelToString(s.level.Level())}, nil

	case "set_level":
		level := stringFromMap(data, "level")
		if level == "" {
			return nil, errors.InvalidInputf("missing level for set_level")
		}
		validated := utils.ValidateLogLevel(level)
		if validated != level {
			return nil, errors.InvalidInputf("invalid log level %q; must be debug, info, warn, or error", level)
		}
		s.level.Set(utils.GetLogLevel(validated))
		s.logger.Info("Log level changed via socket", "level", validated)
		return map[string]any{"level": validated}, nil

	default:
		s.logger.Warn("received unknown action", "action", action)
		return nil, errors.InvalidInputf("unknown action: %s", action)
	}
}

func (s *Server) sendResponse(conn net.Conn, id string, data map[string]any) {
	response := map[string]any{"status": "ok"}
	if id != "" {
		response["id"] = id
	}
	maps.Copy(response, data)
	if err := json.NewEncoder(conn).Encode(response); err != nil {
		s.logger.Error("Failed to send response", "error", err)
	}
}

// sendError reports err with the HTTP status it maps to, so socket clients
// can classify failures the same way API clients do.
func (s *Server) sendError(conn net.Conn, id string, err error) {
	s.logger.Debug("Sending error response to client", "id", id, "error", err)
	response := map[string]any{
		"error": err.Error(),
		"code":  errors.HTTPStatus(err),
	}
	if id != "" {
		response["id"] = id
	}
	if err := json.NewEncoder(conn).Encode(response); err != nil {
		s.logger.Error("Failed to send error response", "error", err)
	}
}

// stringFromMap extracts a string from a map[string]any, returning "" if missing or wrong type.
func stringFromMap(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return strings.TrimSpace(v)
}

// numberFromMap extracts a JSON number from a map[string]any.
func numberFromMap(m map[string]any, key string) (float64, bool) {
	switch v := m[key].(type) {
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
