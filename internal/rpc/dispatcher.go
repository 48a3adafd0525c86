package rpc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/rcliao/rag-mcp/internal/model"
	"github.com/rcliao/rag-mcp/internal/service"
)

// Dispatcher is the single-threaded JSON-RPC loop over stdio (spec §4.4).
// One request is processed to completion before the next is read; the only
// concurrency is the background line reader and the shutdown signal, both
// of which communicate with the loop only through channels (spec §5).
type Dispatcher struct {
	svc      *service.Service
	log      *slog.Logger
	defaultK int

	shutdownOnce sync.Once
	shutdownCh   chan struct{}
}

// New returns a Dispatcher serving svc. defaultK is used for search_memory
// calls that omit k.
func New(svc *service.Service, log *slog.Logger, defaultK int) *Dispatcher {
	if defaultK <= 0 {
		defaultK = 5
	}
	return &Dispatcher{svc: svc, log: log, defaultK: defaultK, shutdownCh: make(chan struct{})}
}

// RequestShutdown signals the run loop to exit at its next opportunity, even
// if it is currently blocked reading the next line (spec §8 property 8,
// "graceful shutdown ... within a bounded time"). Safe to call from a signal
// handler (spec §9 "avoid running arbitrary code inside the signal
// handler") since it only closes a channel.
func (d *Dispatcher) RequestShutdown() {
	d.shutdownOnce.Do(func() { close(d.shutdownCh) })
}

// scanResult is one event from the background reader goroutine: either a
// line (eof=false, err=nil), or the terminal event when the input is
// exhausted (eof=true; err is non-nil only on a genuine read failure).
type scanResult struct {
	line string
	eof  bool
	err  error
}

// Run reads newline-delimited JSON-RPC messages from r and writes responses
// to w until EOF or a shutdown request is observed between requests. The
// scanner runs in a background goroutine so that a pending shutdown request
// is honored even while the loop would otherwise block waiting on stdin;
// that goroutine may outlive Run when shutdown wins the race, which is fine
// since the process exits shortly after.
func (d *Dispatcher) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	out := bufio.NewWriter(w)

	lines := make(chan scanResult)
	go func() {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			lines <- scanResult{line: scanner.Text()}
		}
		lines <- scanResult{eof: true, err: scanner.Err()}
	}()

	for {
		select {
		case <-d.shutdownCh:
			d.log.Info("shutdown requested, exiting read loop")
			return nil
		case res := <-lines:
			if res.eof {
				return res.err
			}
			// A shutdown request that is already pending wins over a line
			// that arrived at the same time.
			select {
			case <-d.shutdownCh:
				d.log.Info("shutdown requested, exiting read loop")
				return nil
			default:
			}
			d.processLine(ctx, res.line, out)
		}
	}
}

// processLine handles a single input line: a blank line is skipped, a
// malformed line produces a parse-error response, a notification produces
// no response, and anything else is dispatched and its response written.
func (d *Dispatcher) processLine(ctx context.Context, rawLine string, out *bufio.Writer) {
	line := strings.TrimSpace(rawLine)
	if line == "" {
		return
	}
	d.log.Debug("received", "line", line)

	var req Request
	if err := json.Unmarshal([]byte(line), &req); err != nil {
		d.log.Error("parse error", "error", err)
		if werr := writeResponse(out, errorResponse(nil, CodeParseError, fmt.Sprintf("parse error: %v", err))); werr != nil {
			d.log.Error("write response", "error", werr)
		}
		return
	}

	if req.IsNotification() {
		d.log.Debug("notification", "method", req.Method)
		return
	}

	resp := d.handleRequest(ctx, req)
	if werr := writeResponse(out, resp); werr != nil {
		d.log.Error("write response", "error", werr)
	}
}

func writeResponse(out *bufio.Writer, resp Response) error {
	b, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	if _, err := out.Write(b); err != nil {
		return err
	}
	if err := out.WriteByte('\n'); err != nil {
		return err
	}
	return out.Flush()
}

func (d *Dispatcher) handleRequest(ctx context.Context, req Request) Response {
	d.log.Debug("handling", "method", req.Method)

	var result interface{}
	var err error

	switch req.Method {
	case "initialize":
		result, err = d.handleInitialize()
	case "tools/list":
		result, err = d.handleToolsList()
	case "tools/call":
		result, err = d.handleToolsCall(ctx, req.Params)
	case "resources/list":
		result, err = d.handleResourcesList()
	case "resources/read":
		result, err = d.handleResourcesRead()
	default:
		return errorResponse(req.ID, CodeMethodNotFound, fmt.Sprintf("method not found: %s", req.Method))
	}

	if err != nil {
		d.log.Error("request failed", "method", req.Method, "error", err)
		if rerr, ok := err.(*rpcError); ok {
			return errorResponse(req.ID, rerr.code, rerr.message)
		}
		return errorResponse(req.ID, CodeInternal, err.Error())
	}
	return successResponse(req.ID, result)
}

func (d *Dispatcher) handleInitialize() (interface{}, error) {
	return map[string]interface{}{
		"protocolVersion": ProtocolVersion,
		"capabilities": map[string]interface{}{
			"tools":     map[string]interface{}{},
			"resources": map[string]interface{}{},
		},
		"serverInfo": map[string]interface{}{
			"name":    "rag-mcp",
			"version": "0.1.0",
		},
	}, nil
}

func (d *Dispatcher) handleToolsList() (interface{}, error) {
	return map[string]interface{}{"tools": toolDefinitions}, nil
}

func (d *Dispatcher) handleResourcesList() (interface{}, error) {
	return map[string]interface{}{"resources": []interface{}{}}, nil
}

func (d *Dispatcher) handleResourcesRead() (interface{}, error) {
	return nil, invalidParams("no resources available")
}

var toolDefinitions = []Tool{
	{
		Name:        "store_memory",
		Description: "Store new memory with metadata",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"content": map[string]interface{}{"type": "string", "description": "Content to store"},
				"scope": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"session", "project", "global"},
					"description": "Memory scope",
				},
				"tags": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "Tags for categorization",
				},
				"source_file":  map[string]interface{}{"type": "string"},
				"language":     map[string]interface{}{"type": "string"},
				"project_path": map[string]interface{}{"type": "string", "description": "Project path (required for project scope)"},
			},
			"required": []string{"content", "scope"},
		},
	},
	{
		Name:        "search_memory",
		Description: "Search memories using BM25 keyword search",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"query": map[string]interface{}{"type": "string", "description": "Search query"},
				"scope": map[string]interface{}{
					"type": "string", "enum": []string{"session", "project", "global"}, "description": "Memory scope to search",
				},
				"k":            map[string]interface{}{"type": "integer", "description": "Number of results to return", "default": 5},
				"tags":         map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
				"project_path": map[string]interface{}{"type": "string", "description": "Project path (required for project scope)"},
			},
			"required": []string{"query", "scope"},
		},
	},
	{
		Name:        "list_memories",
		Description: "List memories with pagination",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"scope":        map[string]interface{}{"type": "string", "enum": []string{"session", "project", "global"}},
				"limit":        map[string]interface{}{"type": "integer", "default": 50},
				"offset":       map[string]interface{}{"type": "integer", "default": 0},
				"project_path": map[string]interface{}{"type": "string"},
			},
			"required": []string{"scope"},
		},
	},
	{
		Name:        "delete_memory",
		Description: "Delete memory by ID",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"id":           map[string]interface{}{"type": "string"},
				"scope":        map[string]interface{}{"type": "string", "enum": []string{"session", "project", "global"}},
				"project_path": map[string]interface{}{"type": "string"},
			},
			"required": []string{"id", "scope"},
		},
	},
	{
		Name:        "clear_session",
		Description: "Clear all session memories",
		InputSchema: map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{},
		},
	},
}

type toolCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

func (d *Dispatcher) handleToolsCall(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	if len(raw) == 0 {
		return nil, invalidParams("missing params")
	}
	var p toolCallParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, invalidParams("malformed params: %v", err)
	}
	if p.Name == "" {
		return nil, invalidParams("missing tool name")
	}

	switch p.Name {
	case "store_memory":
		return d.toolStoreMemory(ctx, p.Arguments)
	case "search_memory":
		return d.toolSearchMemory(ctx, p.Arguments)
	case "list_memories":
		return d.toolListMemories(ctx, p.Arguments)
	case "delete_memory":
		return d.toolDeleteMemory(ctx, p.Arguments)
	case "clear_session":
		return d.toolClearSession()
	default:
		return nil, invalidParams("unknown tool: %s", p.Name)
	}
}

func textResult(text string) map[string]interface{} {
	return map[string]interface{}{
		"content": []map[string]interface{}{
			{"type": "text", "text": text},
		},
	}
}

func parseScope(scopeStr, projectPath string) (model.Scope, error) {
	switch scopeStr {
	case "session":
		return model.Scope{Kind: model.ScopeSession}, nil
	case "global":
		return model.Scope{Kind: model.ScopeGlobal}, nil
	case "project":
		if projectPath == "" {
			return model.Scope{}, invalidParams("missing project_path for project scope")
		}
		return model.Scope{Kind: model.ScopeProject, ProjectPath: projectPath}, nil
	default:
		return model.Scope{}, invalidParams("invalid scope: %q", scopeStr)
	}
}

type storeMemoryArgs struct {
	Content     string   `json:"content"`
	Scope       string   `json:"scope"`
	Tags        []string `json:"tags"`
	SourceFile  string   `json:"source_file"`
	Language    string   `json:"language"`
	ProjectPath string   `json:"project_path"`
}

func (d *Dispatcher) toolStoreMemory(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var a storeMemoryArgs
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, invalidParams("malformed arguments: %v", err)
	}
	if a.Content == "" {
		return nil, invalidParams("missing content")
	}
	if a.Scope == "" {
		return nil, invalidParams("missing scope")
	}
	scope, err := parseScope(a.Scope, a.ProjectPath)
	if err != nil {
		return nil, err
	}

	mem, err := d.svc.StoreMemory(ctx, service.StoreParams{
		Scope:      scope,
		Content:    a.Content,
		Tags:       a.Tags,
		SourceFile: a.SourceFile,
		Language:   a.Language,
	})
	if err != nil {
		return nil, internalError("store memory: %v", err)
	}
	return textResult(fmt.Sprintf("Memory stored successfully with ID: %s", mem.ID)), nil
}

type searchMemoryArgs struct {
	Query       string   `json:"query"`
	Scope       string   `json:"scope"`
	K           *int     `json:"k"`
	Tags        []string `json:"tags"`
	ProjectPath string   `json:"project_path"`
}

func (d *Dispatcher) toolSearchMemory(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var a searchMemoryArgs
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, invalidParams("malformed arguments: %v", err)
	}
	if a.Query == "" {
		return nil, invalidParams("missing query")
	}
	if a.Scope == "" {
		return nil, invalidParams("missing scope")
	}
	scope, err := parseScope(a.Scope, a.ProjectPath)
	if err != nil {
		return nil, err
	}

	k := d.defaultK
	if a.K != nil {
		if *a.K < 0 {
			return nil, invalidParams("k must not be negative")
		}
		k = *a.K
	}

	results, err := d.svc.SearchMemory(ctx, service.SearchParams{Scope: scope, Query: a.Query, K: k, Tags: a.Tags})
	if err != nil {
		return nil, internalError("search memory: %v", err)
	}

	var text strings.Builder
	if len(results) == 0 {
		text.WriteString("No matching memories found.")
	} else {
		fmt.Fprintf(&text, "Found %d results:\n\n", len(results))
		for _, r := range results {
			fmt.Fprintf(&text, "Score: %.2f | ID: %s\n%s\n\n---\n\n", r.Score, r.ID, r.Content)
		}
	}
	return textResult(text.String()), nil
}

type listMemoriesArgs struct {
	Scope       string `json:"scope"`
	Limit       *int   `json:"limit"`
	Offset      int    `json:"offset"`
	ProjectPath string `json:"project_path"`
}

func (d *Dispatcher) toolListMemories(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var a listMemoriesArgs
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, invalidParams("malformed arguments: %v", err)
	}
	if a.Scope == "" {
		return nil, invalidParams("missing scope")
	}
	scope, err := parseScope(a.Scope, a.ProjectPath)
	if err != nil {
		return nil, err
	}

	limit := 50
	if a.Limit != nil {
		limit = *a.Limit
	}

	memories, err := d.svc.ListMemories(ctx, scope, limit, a.Offset)
	if err != nil {
		return nil, internalError("list memories: %v", err)
	}

	var text strings.Builder
	if len(memories) == 0 {
		text.WriteString("No memories found.")
	} else {
		fmt.Fprintf(&text, "Found %d memories:\n\n", len(memories))
		for _, m := range memories {
			fmt.Fprintf(&text, "ID: %s | Tags: %s\n%s\n\n---\n\n", m.ID, strings.Join(m.Tags, ", "), m.Content)
		}
	}
	return textResult(text.String()), nil
}

type deleteMemoryArgs struct {
	ID          string `json:"id"`
	Scope       string `json:"scope"`
	ProjectPath string `json:"project_path"`
}

func (d *Dispatcher) toolDeleteMemory(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var a deleteMemoryArgs
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, invalidParams("malformed arguments: %v", err)
	}
	if a.ID == "" {
		return nil, invalidParams("missing id")
	}
	if a.Scope == "" {
		return nil, invalidParams("missing scope")
	}
	scope, err := parseScope(a.Scope, a.ProjectPath)
	if err != nil {
		return nil, err
	}

	deleted, err := d.svc.DeleteMemory(ctx, scope, a.ID)
	if err != nil {
		return nil, internalError("delete memory: %v", err)
	}
	if deleted {
		return textResult(fmt.Sprintf("Memory %s deleted successfully", a.ID)), nil
	}
	return textResult(fmt.Sprintf("Memory %s not found", a.ID)), nil
}

func (d *Dispatcher) toolClearSession() (interface{}, error) {
	d.svc.ClearSession()
	return textResult("Session memories cleared successfully"), nil
}
