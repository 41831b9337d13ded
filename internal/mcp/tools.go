package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mvp-joe/cortex-facts/internal/facts"
	"github.com/mvp-joe/cortex-facts/internal/graph"
	"github.com/mvp-joe/cortex-facts/internal/scorer"
	"github.com/mvp-joe/cortex-facts/internal/storage"
)

type toolHandler = server.ToolHandlerFunc

// fileToolOptions are the parameters shared by the per-file tools.
func fileToolOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("File path relative to the project root (e.g., 'src/com/acme/User.java')")),
		mcp.WithString("language",
			mcp.Description("Language tag: python, php, java, typescript, tsx or javascript (default: from extension)")),
		mcp.WithString("content",
			mcp.Description("Source text to use instead of reading the file")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	}
}

// toolError turns expected request problems into tool errors; anything else
// is a system error.
func toolError(err error) (*mcp.CallToolResult, error) {
	if errors.Is(err, ErrUnsupportedLanguage) || errors.Is(err, ErrOutsideRoot) {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultError(fmt.Sprintf("extraction failed: %v", err)), nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// AddFactsExtractTool registers the facts_extract tool.
func AddFactsExtractTool(s *server.MCPServer, ex *Extractor) {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription("Extract declarations, imports, inheritance and resolved call edges for one source file. Returns the file's facts as JSON."),
	}, fileToolOptions()...)
	s.AddTool(mcp.NewTool("facts_extract", opts...), createExtractHandler(ex))
}

func createExtractHandler(ex *Extractor) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var req FileRequest
		if err := bindArguments(request, &req); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}
		if req.Path == "" {
			return mcp.NewToolResultError("path parameter is required"), nil
		}

		result, err := ex.Extract(ctx, req)
		if err != nil {
			return toolError(err)
		}

		data, err := facts.Marshal(result)
		if err != nil {
			return nil, err
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}

// SelectRequest holds facts_select parameters.
type SelectRequest struct {
	FileRequest   `json:",squash"`
	IncludeScores bool `json:"include_scores"`
}

// SelectResponse is the facts_select result.
type SelectResponse struct {
	Path         string           `json:"path"`
	FileLines    int              `json:"file_lines"`
	Tier         string           `json:"tier"`
	Budget       int              `json:"budget"`
	TotalSymbols int              `json:"total_symbols"`
	Truncated    bool             `json:"truncated"`
	Symbols      []SelectedSymbol `json:"symbols"`
}

// SelectedSymbol is one kept declaration.
type SelectedSymbol struct {
	Name      string             `json:"name"`
	Kind      facts.SymbolKind   `json:"kind"`
	Signature string             `json:"signature"`
	LineStart int                `json:"line_start"`
	LineEnd   int                `json:"line_end"`
	Score     float64            `json:"score"`
	Breakdown map[string]float64 `json:"breakdown,omitempty"`
}

// AddFactsSelectTool registers the facts_select tool.
func AddFactsSelectTool(s *server.MCPServer, ex *Extractor, opts scorer.Options) {
	toolOpts := append([]mcp.ToolOption{
		mcp.WithDescription("Pick the most important declarations of one source file within a symbol budget that grows with file size. Returns the kept symbols with their importance scores."),
		mcp.WithBoolean("include_scores",
			mcp.Description("Include the per-dimension score breakdown (default: false)")),
	}, fileToolOptions()...)
	s.AddTool(mcp.NewTool("facts_select", toolOpts...), createSelectHandler(ex, opts))
}

func createSelectHandler(ex *Extractor, opts scorer.Options) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var req SelectRequest
		if err := bindArguments(request, &req); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}
		if req.Path == "" {
			return mcp.NewToolResultError("path parameter is required"), nil
		}

		result, err := ex.Extract(ctx, req.FileRequest)
		if err != nil {
			return toolError(err)
		}

		sel := scorer.Select(result.Symbols, result.FileLines, opts)
		resp := SelectResponse{
			Path:         result.Path,
			FileLines:    result.FileLines,
			Tier:         string(sel.Tier),
			Budget:       sel.Budget,
			TotalSymbols: len(result.Symbols),
			Truncated:    sel.Truncated,
			Symbols:      make([]SelectedSymbol, 0, len(sel.Symbols)),
		}
		for _, sym := range sel.Symbols {
			score := scorer.Score(sym)
			out := SelectedSymbol{
				Name:      sym.Name,
				Kind:      sym.Kind,
				Signature: sym.Signature,
				LineStart: sym.LineStart,
				LineEnd:   sym.LineEnd,
				Score:     score.Total(),
			}
			if req.IncludeScores {
				out.Breakdown = map[string]float64{
					"visibility":    score.Visibility,
					"semantic":      score.Semantic,
					"documentation": score.Documentation,
					"complexity":    score.Complexity,
					"noise":         score.Noise,
				}
			}
			resp.Symbols = append(resp.Symbols, out)
		}
		return jsonResult(resp)
	}
}

// Hierarchy directions accepted by facts_hierarchy.
const (
	DirectionParents     = "parents"
	DirectionChildren    = "children"
	DirectionAncestors   = "ancestors"
	DirectionDescendants = "descendants"
)

// HierarchyRequest holds facts_hierarchy parameters.
type HierarchyRequest struct {
	Type      string `json:"type"`
	Direction string `json:"direction"`
}

// HierarchyResponse is the facts_hierarchy result.
type HierarchyResponse struct {
	Type      string      `json:"type"`
	Direction string      `json:"direction"`
	Declared  *graph.Node `json:"declared"` // nil for library or unknown types
	Types     []string    `json:"types"`
}

// HierarchySource returns the current type hierarchy.
type HierarchySource interface {
	Hierarchy(ctx context.Context) (*graph.Hierarchy, error)
}

// AddFactsHierarchyTool registers the facts_hierarchy tool.
func AddFactsHierarchyTool(s *server.MCPServer, src HierarchySource) {
	tool := mcp.NewTool(
		"facts_hierarchy",
		mcp.WithDescription("Query the project type hierarchy built from inheritance facts. Directions: parents and children (direct), ancestors and descendants (transitive, cycle-safe)."),
		mcp.WithString("type",
			mcp.Required(),
			mcp.Description("Fully qualified type name (e.g., 'com.acme.Base', 'App\\Models\\User', 'app.models.User')")),
		mcp.WithString("direction",
			mcp.Description("One of 'parents', 'children', 'ancestors' or 'descendants' (default: ancestors)")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)
	s.AddTool(tool, createHierarchyHandler(src))
}

func createHierarchyHandler(src HierarchySource) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var req HierarchyRequest
		if err := bindArguments(request, &req); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}
		if req.Type == "" {
			return mcp.NewToolResultError("type parameter is required"), nil
		}
		if req.Direction == "" {
			req.Direction = DirectionAncestors
		}

		h, err := src.Hierarchy(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load type hierarchy: %w", err)
		}

		var types []string
		switch req.Direction {
		case DirectionParents:
			types = h.Parents(req.Type)
		case DirectionChildren:
			types = h.Children(req.Type)
		case DirectionAncestors:
			types = h.Ancestors(req.Type)
		case DirectionDescendants:
			types = h.Descendants(req.Type)
		default:
			return mcp.NewToolResultError(fmt.Sprintf("invalid direction: %s (must be one of: parents, children, ancestors, descendants)", req.Direction)), nil
		}
		if types == nil {
			types = []string{}
		}

		resp := HierarchyResponse{
			Type:      req.Type,
			Direction: req.Direction,
			Types:     types,
		}
		if node, ok := h.Node(req.Type); ok {
			resp.Declared = node
		}
		return jsonResult(resp)
	}
}

// CallerFinder looks up stored call sites by resolved callee.
type CallerFinder interface {
	FindCallers(ctx context.Context, fqn string) ([]storage.CallSite, error)
}

// CallersRequest holds facts_callers parameters.
type CallersRequest struct {
	Callee     string `json:"callee"`
	MaxResults int    `json:"max_results"`
}

// CallerEntry is one call site in a facts_callers result.
type CallerEntry struct {
	Path     string         `json:"path"`
	Caller   string         `json:"caller"`
	Line     int            `json:"line"`
	CallType facts.CallType `json:"call_type"`
}

// CallersResponse is the facts_callers result.
type CallersResponse struct {
	Callee    string        `json:"callee"`
	Total     int           `json:"total"`
	Truncated bool          `json:"truncated"`
	Callers   []CallerEntry `json:"callers"`
}

// AddFactsCallersTool registers the facts_callers tool.
func AddFactsCallersTool(s *server.MCPServer, finder CallerFinder) {
	tool := mcp.NewTool(
		"facts_callers",
		mcp.WithDescription("List the stored call sites whose resolved callee is the given fully qualified name. Requires SQLite output."),
		mcp.WithString("callee",
			mcp.Required(),
			mcp.Description("Fully qualified callee (e.g., 'com.acme.Base.save')")),
		mcp.WithNumber("max_results",
			mcp.Description("Maximum number of call sites to return (default: 100, max: 500)")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)
	s.AddTool(tool, createCallersHandler(finder))
}

func createCallersHandler(finder CallerFinder) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var req CallersRequest
		if err := bindArguments(request, &req); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}
		if req.Callee == "" {
			return mcp.NewToolResultError("callee parameter is required"), nil
		}
		limit := clamp(req.MaxResults, 100, 1, 500)

		sites, err := finder.FindCallers(ctx, req.Callee)
		if err != nil {
			return nil, err
		}

		resp := CallersResponse{
			Callee:  req.Callee,
			Total:   len(sites),
			Callers: make([]CallerEntry, 0, min(len(sites), limit)),
		}
		for i, site := range sites {
			if i == limit {
				resp.Truncated = true
				break
			}
			resp.Callers = append(resp.Callers, CallerEntry{
				Path:     site.Path,
				Caller:   site.Call.Caller,
				Line:     site.Call.LineNumber,
				CallType: site.Call.CallType,
			})
		}
		return jsonResult(resp)
	}
}
