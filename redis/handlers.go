package main

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dronm/gowinsvc/logger"
	"github.com/dronm/gowinsvc/startmode"
)

var (
	errPoolNotInitialized = errors.New("pool not initialized")
	errNameRequired       = errors.New("params.name is required")
	errModeRequired       = errors.New("params.mode is required")
)

// RedisCommand structure for Redis commands
type RedisCommand struct {
	Command   string          `json:"command"`
	Params    json.RawMessage `json:"params"`
	RequestID string          `json:"request_id"`
	Channel   string          `json:"channel"` // Response channel override
}

// CommandParams are the arguments accepted by the service commands.
type CommandParams struct {
	Name    string `json:"name"`
	Pattern string `json:"pattern"`
	Mode    string `json:"mode"`
	Text    string `json:"text"`
}

// RedisResponse structure for Redis responses
type RedisResponse struct {
	RequestID string    `json:"request_id"`
	Success   bool      `json:"success"`
	Payload   any       `json:"payload,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Channel   string    `json:"channel,omitempty"` // Response channel
}

// handleCommand processes a single Redis command
func (s *RedisServer) handleCommand(commandJSON string) {
	var cmd RedisCommand
	if err := json.Unmarshal([]byte(commandJSON), &cmd); err != nil {
		logger.Logger.Errorf("Failed to unmarshal command: %v", err)
		return
	}

	if cmd.RequestID == "" {
		cmd.RequestID = generateRequestID()
	}

	logger.Logger.Debugf("Processing command: %s, RequestID: %s", cmd.Command, cmd.RequestID)

	response := s.executeCommand(&cmd)

	// Set response channel from command if provided
	if cmd.Channel != "" {
		response.Channel = cmd.Channel
	}

	logger.Logger.Debugf("Sending response for RequestID: %s, Success: %v",
		response.RequestID, response.Success)

	s.sendResponse(response)
}

// executeCommand runs one command and builds its response
func (s *RedisServer) executeCommand(cmd *RedisCommand) *RedisResponse {
	response := &RedisResponse{
		RequestID: cmd.RequestID,
		Timestamp: time.Now(),
	}

	startTime := time.Now()
	payload, err := s.dispatch(cmd)
	duration := time.Since(startTime)

	if err != nil {
		logger.Logger.Errorf("Command execution failed: %s, error: %v, duration: %v",
			cmd.Command, err, duration)
		response.Success = false
		response.Error = err.Error()
		return response
	}

	logger.Logger.Infof("Command executed successfully: %s, duration: %v",
		cmd.Command, duration)

	response.Success = true
	response.Payload = payload
	return response
}

func (s *RedisServer) dispatch(cmd *RedisCommand) (any, error) {
	var p CommandParams
	if len(cmd.Params) > 0 && string(cmd.Params) != "null" {
		if err := json.Unmarshal(cmd.Params, &p); err != nil {
			return nil, errors.New("invalid params")
		}
	}

	// commands that do not need the pool
	switch cmd.Command {
	case "health":
		return "OK", nil
	case "status":
		return s.getPoolStatus(), nil
	case "pool_start":
		return nil, s.startPool()
	case "pool_stop":
		return nil, s.stopPool()
	case "modes":
		return startmode.Startup().Entries(), nil
	case "canonicalize":
		return startmode.Canonicalize(p.Text)
	}

	svcs := s.services()
	if svcs == nil {
		return nil, errPoolNotInitialized
	}

	if cmd.Command == "list" {
		return svcs.List(p.Pattern)
	}

	if p.Name == "" {
		if isServiceCommand(cmd.Command) {
			return nil, errNameRequired
		}
		return nil, errors.New("unknown command: " + cmd.Command)
	}

	switch cmd.Command {
	case "get":
		return svcs.Get(p.Name)
	case "exists":
		if p.Mode != "" {
			return svcs.ExistsWithMode(p.Name, p.Mode)
		}
		return svcs.Exists(p.Name)
	case "start":
		return svcs.Start(s.ctx, p.Name)
	case "stop":
		return svcs.Stop(s.ctx, p.Name)
	case "restart":
		return svcs.Restart(s.ctx, p.Name)
	case "startup":
		if p.Mode == "" {
			return nil, errModeRequired
		}
		return svcs.ChangeStartup(s.ctx, p.Name, p.Mode)
	default:
		return nil, errors.New("unknown command: " + cmd.Command)
	}
}

func isServiceCommand(command string) bool {
	switch command {
	case "get", "exists", "start", "stop", "restart", "startup":
		return true
	}
	return false
}

// getPoolStatus returns WMI pool status
func (s *RedisServer) getPoolStatus() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := make(map[string]any)
	if s.pool != nil {
		status["status"] = "running"
		status["connStatuses"] = s.pool.ConnStatuses()
		status["connCount"] = s.pool.ActiveCount()
	} else if s.svcs != nil {
		status["status"] = "running"
	} else {
		status["status"] = "stopped"
	}
	return status
}

// sendResponse publishes the response. When nobody listens on the channel
// the response is queued with RPUSH instead.
func (s *RedisServer) sendResponse(response *RedisResponse) {
	responseJSON, err := json.Marshal(response)
	if err != nil {
		logger.Logger.Errorf("Failed to marshal response: %v", err)
		return
	}

	channel := response.Channel
	if channel == "" {
		channel = s.cfg.Redis.ResponseQueue
	}

	client := s.client()
	if client == nil {
		logger.Logger.Warnf("Redis connection closed, dropping response %s", response.RequestID)
		return
	}

	receivers, err := client.Publish(s.ctx, channel, responseJSON).Result()
	if err == nil && receivers > 0 {
		logger.Logger.Debugf("Response %s published to %s", response.RequestID, channel)
		return
	}
	if err != nil {
		logger.Logger.Warnf("Failed to publish to channel %s: %v, falling back to queue", channel, err)
	}

	if err := client.RPush(s.ctx, channel, responseJSON).Err(); err != nil {
		logger.Logger.Errorf("Failed to queue response %s to %s: %v", response.RequestID, channel, err)
		return
	}
	logger.Logger.Debugf("Response %s queued to %s", response.RequestID, channel)
}

// generateRequestID generates a unique request ID
func generateRequestID() string {
	return "req_" + uuid.NewString()
}
