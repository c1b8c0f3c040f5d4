// Command mnemosyne-bridge exposes the Mnemosyne HTTP server to MCP clients
// that only speak stdio, such as desktop agent frontends. It declares the
// full tool catalogue from [mcp.Tools] and forwards every tools/call to
// POST /mcp, returning the server's text payload verbatim.
//
// The endpoint defaults to http://localhost:8010/mcp and can be overridden
// with -url or the MNEMOSYNE_URL environment variable.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/MrWong99/mnemosyne/internal/mcp"
)

const (
	defaultEndpoint = "http://localhost:8010/mcp"
	callTimeout     = 30 * time.Second
)

func main() {
	os.Exit(run())
}

func run() int {
	endpoint := flag.String("url", envOr("MNEMOSYNE_URL", defaultEndpoint), "Mnemosyne server endpoint")
	flag.Parse()

	// Stdout belongs to the MCP transport; everything else goes to stderr.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	b := &bridge{
		endpoint: *endpoint,
		client:   &http.Client{Timeout: callTimeout},
	}

	server := mcpsdk.NewServer(&mcpsdk.Implementation{
		Name:    "mnemosyne",
		Version: "2.0.0",
	}, nil)

	if err := registerTools(server, b); err != nil {
		slog.Error("tool registration failed", "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("bridge ready", "endpoint", b.endpoint)

	if err := server.Run(ctx, &mcpsdk.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("bridge stopped", "error", err)
		return 1
	}
	return 0
}

// registerTools declares every Mnemosyne tool on the stdio server, wiring
// each one to an HTTP forward of the same name.
func registerTools(server *mcpsdk.Server, b *bridge) error {
	for _, def := range mcp.Tools() {
		schema, err := toSchema(def.InputSchema)
		if err != nil {
			return fmt.Errorf("tool %s: %w", def.Name, err)
		}
		name := def.Name
		server.AddTool(&mcpsdk.Tool{
			Name:        name,
			Description: def.Description,
			InputSchema: schema,
		}, func(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
			return b.call(ctx, name, req)
		})
	}
	return nil
}

// toSchema converts a wire-form schema map into the SDK's schema type.
func toSchema(m map[string]any) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode schema: %w", err)
	}
	var s jsonschema.Schema
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	return &s, nil
}

// bridge forwards tool calls to the Mnemosyne HTTP endpoint.
type bridge struct {
	endpoint string
	client   *http.Client
	seq      atomic.Int64
}

// call runs one tool invocation. Failures are reported back to the client as
// text content rather than a protocol error, so a flaky server degrades into
// a readable message instead of breaking the session.
func (b *bridge) call(ctx context.Context, tool string, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
	text, err := b.forward(ctx, tool, req.Params.Arguments)
	if err != nil {
		return textResult(fmt.Sprintf("Error calling %s: %v", tool, err)), nil
	}
	return textResult(text), nil
}

func textResult(text string) *mcpsdk.CallToolResult {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: text}},
	}
}

type rpcRequest struct {
	JSONRPC string     `json:"jsonrpc"`
	ID      int64      `json:"id"`
	Method  string     `json:"method"`
	Params  callParams `json:"params"`
}

type callParams struct {
	Name      string `json:"name"`
	Arguments any    `json:"arguments"`
}

type rpcEnvelope struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// forward posts a tools/call request and unwraps the text payload from the
// result envelope.
func (b *bridge) forward(ctx context.Context, tool string, args any) (string, error) {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      b.seq.Add(1),
		Method:  "tools/call",
		Params:  callParams{Name: tool, Arguments: normalizeArgs(args)},
	})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var env rpcEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode >= 400 {
			return "", fmt.Errorf("HTTP %s", resp.Status)
		}
		return "", fmt.Errorf("decode response: %w", err)
	}
	if env.Error != nil {
		return "", errors.New(env.Error.Message)
	}

	return unwrapText(env.Result), nil
}

// normalizeArgs maps absent arguments onto an empty object; the server
// treats the two identically but an explicit object keeps the wire shape
// uniform.
func normalizeArgs(v any) any {
	switch t := v.(type) {
	case nil:
		return map[string]any{}
	case json.RawMessage:
		if len(t) == 0 || string(t) == "null" {
			return map[string]any{}
		}
		return t
	default:
		return v
	}
}

// unwrapText extracts the text payload from a standard tool-result envelope.
// Anything with a different shape is pretty-printed as-is so the client
// still sees the full result.
func unwrapText(result json.RawMessage) string {
	var envelope struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(result, &envelope); err == nil &&
		len(envelope.Content) > 0 && envelope.Content[0].Type == "text" {
		return envelope.Content[0].Text
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, result, "", "  "); err != nil {
		return string(result)
	}
	return buf.String()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
