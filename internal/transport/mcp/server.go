package mcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	stdlog "log"
	"strings"

	mcpproto "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sandevgo/docqa/internal/core"
	"github.com/sandevgo/docqa/internal/service/retrieval"
	"github.com/sandevgo/docqa/internal/service/session"
	"github.com/sandevgo/docqa/pkg/log"
	"github.com/sandevgo/docqa/pkg/srv"
)

const (
	ToolAsk    = "ask_documents"
	ToolSearch = "search_documents"
)

type Asker interface {
	Ask(ctx context.Context, raw string) (string, error)
}

type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]retrieval.RetentionDecision, error)
}

// Server exposes the document session as MCP tools over stdio.
type Server struct {
	mcp      *server.MCPServer
	stdio    *server.StdioServer
	sess     Asker
	searcher Searcher
	in       io.Reader
	out      io.Writer
}

func NewServer(sess Asker, searcher Searcher, in io.Reader, out io.Writer, errLog io.Writer) *Server {
	s := &Server{
		sess:     sess,
		searcher: searcher,
		in:       in,
		out:      out,
	}

	s.mcp = server.NewMCPServer(
		core.AppName,
		core.AppVersion,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions("Answers questions from an indexed collection of policy documents"),
	)

	s.mcp.AddTool(
		mcpproto.NewTool(ToolAsk,
			mcpproto.WithDescription("Answer a question using the indexed documents. The conversation is kept between calls."),
			mcpproto.WithString("question", mcpproto.Required(), mcpproto.Description("The question to answer")),
		),
		s.handleAsk,
	)
	s.mcp.AddTool(
		mcpproto.NewTool(ToolSearch,
			mcpproto.WithDescription("Find the passages nearest to a query, with scores and whether each passes the relevance threshold"),
			mcpproto.WithString("query", mcpproto.Required(), mcpproto.Description("Search text")),
			mcpproto.WithNumber("k", mcpproto.Description("Number of candidates, defaults to the configured top k")),
		),
		s.handleSearch,
	)

	s.stdio = server.NewStdioServer(s.mcp)
	s.stdio.SetErrorLogger(stdlog.New(errLog, "mcp: ", stdlog.LstdFlags))
	return s
}

// Start serves until the input closes or ctx is done. A closed input ends
// the service group with srv.ErrStopped.
func (s *Server) Start(ctx context.Context) error {
	log.FromCtx(ctx).Info().Msg("serving mcp on stdio")
	err := s.stdio.Listen(ctx, s.in, s.out)
	if ctx.Err() != nil {
		return nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		return fmt.Errorf("mcp input closed: %w", srv.ErrStopped)
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return nil
}

func (s *Server) handleAsk(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
	question, err := req.RequireString("question")
	if err != nil {
		return mcpproto.NewToolResultError(err.Error()), nil
	}

	answer, err := s.sess.Ask(ctx, question)
	if err != nil {
		log.FromCtx(ctx).Warn().Err(err).Msg("ask tool failed")
		return mcpproto.NewToolResultError(session.Describe(err)), nil
	}
	return mcpproto.NewToolResultText(answer), nil
}

func (s *Server) handleSearch(ctx context.Context, req mcpproto.CallToolRequest) (*mcpproto.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcpproto.NewToolResultError(err.Error()), nil
	}

	decisions, err := s.searcher.Search(ctx, query, req.GetInt("k", 0))
	if err != nil {
		return mcpproto.NewToolResultError(session.Describe(err)), nil
	}
	if len(decisions) == 0 {
		return mcpproto.NewToolResultText("no passages found"), nil
	}
	return mcpproto.NewToolResultText(FormatDecisions(decisions)), nil
}

// FormatDecisions renders decisions as a numbered plain text list.
func FormatDecisions(decisions []retrieval.RetentionDecision) string {
	var sb strings.Builder
	for i, d := range decisions {
		verdict := "kept"
		if !d.Kept {
			verdict = "discarded"
		}
		fmt.Fprintf(&sb, "%d. [%s] %s score=%.4f threshold=%.4f (%s)\n%s\n\n",
			i+1, verdict, d.Candidate.Source(), d.Candidate.Score, d.Threshold, d.Direction, strings.TrimSpace(d.Candidate.Text))
	}
	return strings.TrimSpace(sb.String())
}
