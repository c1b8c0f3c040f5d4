package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/MrWong99/mnemosyne/internal/observe"
	"github.com/MrWong99/mnemosyne/pkg/memory"
	"github.com/MrWong99/mnemosyne/pkg/memory/shape"
)

const (
	// protocolVersion is the MCP protocol revision reported by initialize.
	protocolVersion = "2024-11-05"

	serverName    = "mnemosyne"
	serverVersion = "2.0.0"

	// fallbackRequestID is echoed when the request body cannot be parsed
	// and no request id is recoverable.
	fallbackRequestID = 1
)

// Server dispatches JSON-RPC requests on POST /mcp to a [memory.Store]. It
// implements [http.Handler] and is safe for concurrent use.
type Server struct {
	store   memory.Store
	metrics *observe.Metrics
}

// NewServer returns a dispatcher backed by store. A nil metrics falls back
// to [observe.DefaultMetrics].
func NewServer(store memory.Store, metrics *observe.Metrics) *Server {
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	return &Server{store: store, metrics: metrics}
}

// ServeHTTP handles one JSON-RPC exchange. Paths other than /mcp answer 404;
// error envelopes ride on HTTP 500 with the usual CORS and content-type
// headers either way.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/mcp" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx := r.Context()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.metrics.RecordRPCError(ctx, ParseError)
		writeJSON(w, http.StatusInternalServerError,
			errorResponse(fallbackRequestID, ParseError, "failed to read request body"))
		return
	}
	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		s.metrics.RecordRPCError(ctx, ParseError)
		writeJSON(w, http.StatusInternalServerError,
			errorResponse(fallbackRequestID, ParseError, "invalid JSON: "+err.Error()))
		return
	}

	s.metrics.RecordRPCRequest(ctx, req.Method)
	resp := s.handle(ctx, &req, r.Header)

	status := http.StatusOK
	if resp.Error != nil {
		s.metrics.RecordRPCError(ctx, resp.Error.Code)
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, resp)
}

// handle routes a parsed request to its method handler. A panic anywhere in
// dispatch is converted into an internal-error response instead of tearing
// down the connection.
func (s *Server) handle(ctx context.Context, req *Request, header http.Header) (resp Response) {
	defer func() {
		if p := recover(); p != nil {
			observe.Logger(ctx).Error("request handling panicked", "method", req.Method, "panic", p)
			resp = errorResponse(req.ID, InternalError, fmt.Sprintf("internal error: %v", p))
		}
	}()

	switch req.Method {
	case "initialize":
		return resultResponse(req.ID, map[string]any{
			"protocolVersion": protocolVersion,
			"capabilities":    map[string]any{"tools": map[string]any{}},
			"serverInfo":      map[string]any{"name": serverName, "version": serverVersion},
		})
	case "notifications/initialized", "initialized":
		return resultResponse(req.ID, map[string]any{})
	case "ping":
		return resultResponse(req.ID, map[string]any{})
	case "tools/list":
		return resultResponse(req.ID, map[string]any{"tools": Tools()})
	case "tools/call":
		return s.handleToolsCall(ctx, req, header)
	default:
		return errorResponse(req.ID, MethodNotFound, "unknown method: "+req.Method)
	}
}

// handleToolsCall decodes the tool name and arguments, derives the caller's
// tenant context from headers, and wraps the tool result in the MCP content
// envelope.
func (s *Server) handleToolsCall(ctx context.Context, req *Request, header http.Header) Response {
	var p struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	}
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return errorResponse(req.ID, InvalidParams, "invalid params: "+err.Error())
		}
	}
	if p.Arguments == nil {
		p.Arguments = map[string]any{}
	}

	caller := callerFromHeaders(header)

	start := time.Now()
	result, err := s.callTool(ctx, p.Name, p.Arguments, caller)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	s.metrics.RecordToolCall(ctx, p.Name, outcome)
	s.metrics.RecordToolCallDuration(ctx, p.Name, outcome, time.Since(start).Seconds())

	if err != nil {
		observe.Logger(ctx).Error("tool call failed", "tool", p.Name, "error", err)
		code := InternalError
		var ce *callError
		if errors.As(err, &ce) {
			code = ce.code
		}
		return errorResponse(req.ID, code, err.Error())
	}

	text, err := encodeJSON(result)
	if err != nil {
		return errorResponse(req.ID, InternalError, "failed to encode result: "+err.Error())
	}
	return resultResponse(req.ID, map[string]any{
		"content": []map[string]any{{"type": "text", "text": text}},
	})
}

// callTool routes one tool invocation to the store, applying the documented
// per-argument defaults.
func (s *Server) callTool(ctx context.Context, name string, args map[string]any, caller *memory.RequestContext) (any, error) {
	switch name {
	case "mnemosyne_bootstrap":
		p := memory.BootstrapParams{
			LimitPinned:     argInt(args, "limit_pinned", 8),
			LimitRecent:     argInt(args, "limit_recent", 10),
			WorkspaceHint:   argString(args, "workspace_hint", "global"),
			Mode:            shape.Mode(argString(args, "mode", "full")),
			MaxTokens:       argInt(args, "max_tokens", 0),
			MaxItems:        argInt(args, "max_items", 15),
			IncludeSessions: argBool(args, "include_sessions", false),
			Caller:          caller,
		}
		return s.timed(ctx, "bootstrap", func() (any, error) {
			return s.store.Bootstrap(ctx, p)
		})

	case "mnemosyne_write":
		kind, err := requireString(args, "kind")
		if err != nil {
			return nil, err
		}
		title, err := requireString(args, "title")
		if err != nil {
			return nil, err
		}
		content, err := requireString(args, "content")
		if err != nil {
			return nil, err
		}
		p := memory.WriteParams{
			Kind:           kind,
			Title:          title,
			Content:        content,
			Tags:           ensureList(args["tags_json"]),
			Pinned:         argBool(args, "pinned", false),
			ContentCompact: argStringPtr(args, "content_compact"),
			WorkspaceHint:  argString(args, "workspace_hint", ""),
			Importance:     argIntPtr(args, "importance"),
			Source:         argString(args, "source", ""),
			Caller:         caller,
		}
		return s.timed(ctx, "write_memory", func() (any, error) {
			return s.store.WriteMemory(ctx, p)
		})

	case "mnemosyne_read":
		id, err := requireString(args, "id")
		if err != nil {
			return nil, err
		}
		prefer := shape.Prefer(argString(args, "prefer", "full"))
		return s.timed(ctx, "read_memory", func() (any, error) {
			return s.store.ReadMemory(ctx, id, prefer)
		})

	case "mnemosyne_search":
		query, err := requireString(args, "query")
		if err != nil {
			return nil, err
		}
		p := memory.SearchParams{
			Query:        query,
			Limit:        argInt(args, "limit", 8),
			Prefer:       shape.Prefer(argString(args, "prefer", "full")),
			SnippetChars: argInt(args, "snippet_chars", 400),
			Caller:       caller,
		}
		return s.timed(ctx, "search_memory", func() (any, error) {
			return s.store.SearchMemory(ctx, p)
		})

	case "mnemosyne_commit_session":
		workspace, err := requireString(args, "workspace_hint")
		if err != nil {
			return nil, err
		}
		summary, err := requireString(args, "summary")
		if err != nil {
			return nil, err
		}
		p := memory.CommitParams{
			WorkspaceHint: workspace,
			Summary:       summary,
			Decisions:     ensureList(args["decisions_json"]),
			NextSteps:     ensureList(args["next_steps_json"]),
			Caller:        caller,
		}
		return s.timed(ctx, "commit_session", func() (any, error) {
			if err := s.store.CommitSession(ctx, p); err != nil {
				return nil, err
			}
			return map[string]any{"ok": true}, nil
		})

	case "mnemosyne_last_session":
		p := memory.LastSessionParams{
			WorkspaceHint: argString(args, "workspace_hint", "global"),
			Limit:         argInt(args, "limit", 3),
			Caller:        caller,
		}
		return s.timed(ctx, "last_session", func() (any, error) {
			return s.store.LastSession(ctx, p)
		})

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// timed runs one store operation and records its latency under op.
func (s *Server) timed(ctx context.Context, op string, fn func() (any, error)) (any, error) {
	start := time.Now()
	out, err := fn()
	s.metrics.RecordStoreQuery(ctx, op, time.Since(start).Seconds())
	return out, err
}

// callerFromHeaders derives the tenant context from the optional X-User-Id
// and X-Space-Id headers. These are unauthenticated hints; a deployment that
// needs real identity must front the service with an authenticator that
// rewrites them. A claimed space is also the only allowed space; a bare user
// id grants the personal space.
func callerFromHeaders(h http.Header) *memory.RequestContext {
	userID := h.Get("X-User-Id")
	spaceID := h.Get("X-Space-Id")
	switch {
	case spaceID != "":
		return &memory.RequestContext{
			UserID:        userID,
			SpaceID:       spaceID,
			AllowedSpaces: []string{spaceID},
		}
	case userID != "":
		return &memory.RequestContext{
			UserID:        userID,
			AllowedSpaces: []string{"personal:" + userID},
		}
	default:
		return nil
	}
}

// encodeJSON marshals v into the text payload of a tool result. HTML
// characters are emitted verbatim; tool output is consumed by agents, not
// browsers, and the exact byte shape is part of the wire contract.
func encodeJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// writeJSON emits resp with the protocol's fixed headers.
func writeJSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
