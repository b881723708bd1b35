// Package mcp implements the protocol transport: one MCP server subprocess
// per session, speaking line-framed JSON-RPC over stdin/stdout with
// correlated request/response pairs.
package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/harun/farebridge/pkg/envelope"
)

const (
	protocolVersion = "2024-11-05"
	clientName      = "farebridge"
	clientVersion   = "0.1.0"

	// DefaultCallTimeout bounds each in-flight call
	DefaultCallTimeout = 10 * time.Second
	// DefaultHandshakeTimeout bounds the initialize exchange after spawn
	DefaultHandshakeTimeout = 15 * time.Second
)

// State is the session lifecycle phase. Transitions are the only legal
// mutation path; Closed is terminal.
type State int

const (
	StateUnconnected State = iota
	StateConnecting
	StateReady
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnconnected:
		return "unconnected"
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Session owns exactly one MCP server subprocess and its message stream.
// Calls may only be dispatched while the session is Ready; the read loop is
// the only resolver of pending results. Safe for concurrent use.
type Session struct {
	command          []string
	callTimeout      time.Duration
	handshakeTimeout time.Duration
	logger           zerolog.Logger

	mu       sync.Mutex
	state    State
	closeErr error
	cmd      *exec.Cmd
	stdin    io.WriteCloser
	nextID   int64
	pending  map[int64]chan *rpcResponse
	done     chan struct{}

	// writeMu serializes frame writes to the subprocess pipe. Pipe writes
	// beyond PIPE_BUF are not atomic, so without it two concurrent large
	// requests could interleave bytes mid-frame and corrupt the stream.
	writeMu sync.Mutex
}

// SessionOption configures a Session
type SessionOption func(*Session)

// WithCallTimeout overrides the per-call timeout
func WithCallTimeout(d time.Duration) SessionOption {
	return func(s *Session) { s.callTimeout = d }
}

// WithHandshakeTimeout overrides the initialize handshake timeout
func WithHandshakeTimeout(d time.Duration) SessionOption {
	return func(s *Session) { s.handshakeTimeout = d }
}

// NewSession creates an unconnected session for the given server command
func NewSession(command []string, opts ...SessionOption) *Session {
	id, err := gonanoid.New(8)
	if err != nil {
		id = "session"
	}

	s := &Session{
		command:          command,
		callTimeout:      DefaultCallTimeout,
		handshakeTimeout: DefaultHandshakeTimeout,
		logger:           log.With().Str("mcp_session", id).Logger(),
		state:            StateUnconnected,
		pending:          make(map[int64]chan *rpcResponse),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current lifecycle phase
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Ready reports whether calls may be dispatched
func (s *Session) Ready() bool {
	return s.State() == StateReady
}

// CloseErr returns the error that terminated the session, if any
func (s *Session) CloseErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeErr
}

// Open spawns the server subprocess and performs the initialize handshake.
// On any failure the session transitions to Closed and must be recreated;
// there is no retry inside the session.
func (s *Session) Open(ctx context.Context) error {
	if len(s.command) == 0 {
		return fmt.Errorf("mcp server command is empty")
	}

	s.mu.Lock()
	if s.state != StateUnconnected {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("session already %s", state)
	}
	s.state = StateConnecting
	s.done = make(chan struct{})
	s.mu.Unlock()

	cmd := exec.Command(s.command[0], s.command[1:]...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return s.abortOpen(fmt.Errorf("failed to open stdin pipe: %w", err))
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return s.abortOpen(fmt.Errorf("failed to open stdout pipe: %w", err))
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return s.abortOpen(fmt.Errorf("failed to open stderr pipe: %w", err))
	}

	if err := cmd.Start(); err != nil {
		return s.abortOpen(fmt.Errorf("failed to spawn mcp server: %w", err))
	}

	s.mu.Lock()
	s.cmd = cmd
	s.stdin = stdin
	s.mu.Unlock()

	go s.drainStderr(stderr)
	go s.readLoop(stdout)

	if err := s.handshake(ctx); err != nil {
		return s.abortOpen(err)
	}

	s.mu.Lock()
	if s.state != StateConnecting {
		// Server died between handshake response and here
		err := s.closeErr
		s.mu.Unlock()
		return fmt.Errorf("session lost during handshake: %v", err)
	}
	s.state = StateReady
	s.mu.Unlock()

	s.logger.Info().Strs("command", s.command).Msg("MCP session ready")
	return nil
}

func (s *Session) handshake(ctx context.Context) error {
	params := map[string]interface{}{
		"protocolVersion": protocolVersion,
		"capabilities":    map[string]interface{}{},
		"clientInfo": map[string]interface{}{
			"name":    clientName,
			"version": clientVersion,
		},
	}

	resp, failed := s.call(ctx, "initialize", params, s.handshakeTimeout, StateConnecting)
	if failed != nil {
		return fmt.Errorf("initialize handshake failed: %s", failed.Error)
	}
	if resp.Error != nil {
		return fmt.Errorf("initialize rejected by server (%d): %s", resp.Error.Code, resp.Error.Message)
	}
	return nil
}

// abortOpen tears the session down after a failed open and records the
// cause. Returns the error for the caller to propagate.
func (s *Session) abortOpen(err error) error {
	s.mu.Lock()
	s.state = StateClosed
	if s.closeErr == nil {
		s.closeErr = err
	}
	cmd := s.cmd
	stdin := s.stdin
	s.mu.Unlock()

	if stdin != nil {
		_ = stdin.Close()
	}
	if cmd != nil && cmd.Process != nil {
		_ = cmd.Process.Kill()
	}

	s.logger.Error().Err(err).Msg("MCP session open failed")
	return err
}

// Close tears down the subprocess. Pending calls are resolved as failed by
// the read loop's exit path. Idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	switch s.state {
	case StateClosed:
		s.mu.Unlock()
		return nil
	case StateUnconnected:
		s.state = StateClosed
		s.mu.Unlock()
		return nil
	case StateClosing:
		done := s.done
		s.mu.Unlock()
		s.awaitTeardown(done)
		return nil
	}
	s.state = StateClosing
	stdin := s.stdin
	cmd := s.cmd
	done := s.done
	s.mu.Unlock()

	if stdin != nil {
		_ = stdin.Close()
	}
	if cmd != nil && cmd.Process != nil {
		_ = cmd.Process.Kill()
	}

	s.awaitTeardown(done)
	return nil
}

func (s *Session) awaitTeardown(done chan struct{}) {
	if done == nil {
		return
	}
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		s.logger.Warn().Msg("Timed out waiting for MCP server teardown")
	}
}

// readLoop parses framed messages from the server's stdout and resolves the
// matching pending call by correlation id. It is the only writer to pending
// results. When the stream ends it reaps the process and finalizes state.
func (s *Session) readLoop(stdout io.Reader) {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		var resp rpcResponse
		if err := json.Unmarshal(line, &resp); err != nil {
			s.logger.Warn().Err(err).Msg("Discarding unparseable message from MCP server")
			continue
		}

		id, ok := responseID(&resp)
		if !ok {
			// Server-initiated notifications have no numeric id
			s.logger.Debug().Msg("Ignoring message without correlation id")
			continue
		}

		s.mu.Lock()
		ch, exists := s.pending[id]
		if exists {
			delete(s.pending, id)
		}
		s.mu.Unlock()

		if !exists {
			// Protocol violation: response for an id we never issued, or
			// one already timed out. Non-fatal.
			s.logger.Warn().Int64("id", id).Msg("Dropping response with unknown correlation id")
			continue
		}

		ch <- &resp
	}

	waitErr := s.cmd.Wait()
	s.processExited(waitErr)
}

// processExited finalizes the session once the subprocess is gone: fails
// every pending call and transitions to Closed.
func (s *Session) processExited(waitErr error) {
	s.mu.Lock()
	prev := s.state
	s.state = StateClosed
	if s.closeErr == nil && prev != StateClosing && waitErr != nil {
		s.closeErr = waitErr
	}
	orphaned := s.pending
	s.pending = make(map[int64]chan *rpcResponse)
	done := s.done
	s.mu.Unlock()

	for _, ch := range orphaned {
		close(ch)
	}

	if prev == StateClosing || prev == StateClosed {
		s.logger.Debug().Msg("MCP server exited")
	} else {
		s.logger.Error().Err(waitErr).Int("orphaned_calls", len(orphaned)).Msg("MCP server exited unexpectedly")
	}

	if done != nil {
		close(done)
	}
}

func (s *Session) drainStderr(stderr io.Reader) {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		s.logger.Debug().Str("stream", "stderr").Msg(scanner.Text())
	}
}

// call allocates a fresh correlation id, registers the pending slot, writes
// the framed request and suspends until response, timeout or session loss.
// Removal on timeout is atomic with respect to the read loop: whichever
// side deletes the table entry first wins, so a late response for a timed
// out id is dropped rather than resolved.
func (s *Session) call(ctx context.Context, method string, params interface{}, timeout time.Duration, required State) (*rpcResponse, *envelope.Envelope) {
	s.mu.Lock()
	if s.state != required {
		state := s.state
		s.mu.Unlock()
		env := envelope.Failf(envelope.KindNotConnected, "session is %s, calls require %s", state, required)
		return nil, &env
	}
	s.nextID++
	id := s.nextID
	ch := make(chan *rpcResponse, 1)
	s.pending[id] = ch
	stdin := s.stdin
	s.mu.Unlock()

	req := rpcRequest{JSONRPC: "2.0", Method: method, Params: params, ID: id}
	data, err := json.Marshal(req)
	if err != nil {
		s.removePending(id)
		env := envelope.Failf(envelope.KindInvalidArgument, "failed to encode request: %v", err)
		return nil, &env
	}

	if err := s.writeFrame(stdin, data); err != nil {
		s.removePending(id)
		env := envelope.Failf(envelope.KindSessionLost, "failed to write request: %v", err)
		return nil, &env
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case resp, ok := <-ch:
		if !ok {
			env := envelope.Fail(envelope.KindSessionLost, sessionLostMessage(s.CloseErr()))
			return nil, &env
		}
		return resp, nil
	case <-ctx.Done():
		s.removePending(id)
		if errors.Is(ctx.Err(), context.Canceled) {
			env := envelope.Failf(envelope.KindTimeout, "%s call canceled by caller", method)
			return nil, &env
		}
		env := envelope.Failf(envelope.KindTimeout, "%s call abandoned: %v", method, ctx.Err())
		return nil, &env
	case <-timer.C:
		s.removePending(id)
		env := envelope.Failf(envelope.KindTimeout, "no response to %s after %s", method, timeout)
		return nil, &env
	}
}

// writeFrame writes one complete framed request under the write lock so
// concurrent calls never splice their bytes into each other's frame.
func (s *Session) writeFrame(stdin io.Writer, data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err := stdin.Write(append(data, '\n'))
	return err
}

func sessionLostMessage(closeErr error) string {
	if closeErr != nil {
		return fmt.Sprintf("mcp server exited: %v", closeErr)
	}
	return "session closed before response arrived"
}

func (s *Session) removePending(id int64) {
	s.mu.Lock()
	_, exists := s.pending[id]
	delete(s.pending, id)
	s.mu.Unlock()

	if !exists {
		// The read loop resolved this id concurrently; the buffered
		// response is dropped, the caller already gave up.
		s.logger.Debug().Int64("id", id).Msg("Late response discarded")
	}
}

// Invoke calls a named tool on the server. Requires Ready.
func (s *Session) Invoke(ctx context.Context, tool string, args map[string]interface{}) envelope.Envelope {
	params := map[string]interface{}{
		"name":      tool,
		"arguments": args,
	}
	resp, failed := s.call(ctx, "tools/call", params, s.callTimeout, StateReady)
	if failed != nil {
		return *failed
	}
	return toolResult(resp)
}

// ReadResource reads a named resource from the server. Requires Ready.
func (s *Session) ReadResource(ctx context.Context, uri string) envelope.Envelope {
	params := map[string]interface{}{"uri": uri}
	resp, failed := s.call(ctx, "resources/read", params, s.callTimeout, StateReady)
	if failed != nil {
		return *failed
	}
	return plainResult(resp)
}

// ListTools fetches the server's tool catalog. Requires Ready.
func (s *Session) ListTools(ctx context.Context) envelope.Envelope {
	resp, failed := s.call(ctx, "tools/list", nil, s.callTimeout, StateReady)
	if failed != nil {
		return *failed
	}
	return plainResult(resp)
}

// ListResources fetches the server's resource catalog. Requires Ready.
func (s *Session) ListResources(ctx context.Context) envelope.Envelope {
	resp, failed := s.call(ctx, "resources/list", nil, s.callTimeout, StateReady)
	if failed != nil {
		return *failed
	}
	return plainResult(resp)
}

func plainResult(resp *rpcResponse) envelope.Envelope {
	if resp.Error != nil {
		return envelope.Failf(envelope.KindRemoteRejected, "server error (%d): %s", resp.Error.Code, resp.Error.Message)
	}

	result, env := decodeResult(resp.Result)
	if env != nil {
		return *env
	}
	return envelope.OK(result)
}

// toolResult additionally honors the MCP tool-level error flag: a response
// with isError set is an application failure, not a success.
func toolResult(resp *rpcResponse) envelope.Envelope {
	if resp.Error != nil {
		return envelope.Failf(envelope.KindRemoteRejected, "server error (%d): %s", resp.Error.Code, resp.Error.Message)
	}

	result, env := decodeResult(resp.Result)
	if env != nil {
		return *env
	}

	if isError, ok := result["isError"].(bool); ok && isError {
		detail, _ := json.Marshal(result["content"])
		return envelope.Failf(envelope.KindRemoteRejected, "tool failed: %s", string(detail))
	}

	return envelope.OK(result)
}

func decodeResult(raw json.RawMessage) (map[string]interface{}, *envelope.Envelope) {
	result := map[string]interface{}{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &result); err != nil {
			env := envelope.Failf(envelope.KindRemoteRejected, "failed to decode result: %v", err)
			return nil, &env
		}
	}
	return result, nil
}
