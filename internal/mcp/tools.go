package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/maestro/maestro/maestro"
)

const (
	defaultLimit = 50
	maxLimit     = 1000
)

func searchLibraryTool() mcp.Tool {
	return mcp.NewTool("search_library",
		mcp.WithDescription("Search the music library. Plain words match any text tag; tag=value, tag:value, tag>value, {flag=name} and {sticker} narrow the search. Combine with spaces or & (and), | (or), ! (not) and parentheses."),
		mcp.WithString("query", mcp.Required(), mcp.Description("search string")),
		mcp.WithString("domain", mcp.Description("only search this domain")),
		mcp.WithNumber("limit", mcp.Description("maximum number of elements returned (default 50)")),
	)
}

func listTagsTool() mcp.Tool {
	return mcp.NewTool("list_tags",
		mcp.WithDescription("List the tags and flags that can be used in searches"),
	)
}

func discoverValuesTool() mcp.Tool {
	return mcp.NewTool("discover_values",
		mcp.WithDescription("List the most used values of a tag"),
		mcp.WithString("tag", mcp.Required(), mcp.Description("tag name")),
		mcp.WithString("where", mcp.Description("only count elements matching this search")),
		mcp.WithString("domain", mcp.Description("only count elements of this domain")),
		mcp.WithNumber("top", mcp.Description("number of values (default 20)")),
	)
}

func libraryStatsTool() mcp.Tool {
	return mcp.NewTool("library_stats",
		mcp.WithDescription("Count the domains, elements, tags, flags, values and stickers of the library"),
	)
}

type searchResponse struct {
	Query     string          `json:"query"`
	Total     int             `json:"total"`
	Elements  []elementOutput `json:"elements"`
	Truncated bool            `json:"truncated,omitempty"`
}

type elementOutput struct {
	ID   int64  `json:"id"`
	File bool   `json:"file"`
	URL  string `json:"url,omitempty"`
}

func (s *Server) handleSearchLibrary(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := request.GetString("query", "")
	domain := request.GetString("domain", "")
	limit := int(request.GetFloat("limit", defaultLimit))
	if limit <= 0 || limit > maxLimit {
		limit = defaultLimit
	}

	res, err := s.lib.Search(ctx, query, maestro.SearchOptions{Domain: domain})
	if err != nil {
		s.log.Debug().Err(err).Str("query", query).Msg("search failed")
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	out := searchResponse{Query: res.Query, Total: len(res.IDs), Elements: []elementOutput{}}
	for i, id := range res.IDs {
		if i == limit {
			out.Truncated = true
			break
		}
		e, err := s.lib.Element(ctx, id)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to load element %d: %v", id, err)), nil
		}
		out.Elements = append(out.Elements, elementOutput{ID: e.ID, File: e.File, URL: e.URL})
	}
	return mcp.NewToolResultText(formatJSON(out)), nil
}

type tagOutput struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Title string `json:"title,omitempty"`
}

type flagOutput struct {
	Name string `json:"name"`
	Icon string `json:"icon,omitempty"`
}

func (s *Server) handleListTags(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	reg := s.lib.Registry()
	out := struct {
		Tags  []tagOutput  `json:"tags"`
		Flags []flagOutput `json:"flags"`
	}{Tags: []tagOutput{}, Flags: []flagOutput{}}
	for _, t := range reg.Tags() {
		if t.Private {
			continue
		}
		out.Tags = append(out.Tags, tagOutput{Name: t.Name, Type: string(t.Type), Title: t.Title})
	}
	for _, f := range reg.Flags() {
		out.Flags = append(out.Flags, flagOutput{Name: f.Name, Icon: f.Icon})
	}
	return mcp.NewToolResultText(formatJSON(out)), nil
}

func (s *Server) handleDiscoverValues(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tag := request.GetString("tag", "")
	if tag == "" {
		return mcp.NewToolResultError("tag parameter required"), nil
	}
	top := int(request.GetFloat("top", 20))
	vals, err := s.lib.DiscoverValues(ctx, tag, request.GetString("where", ""),
		maestro.SearchOptions{Domain: request.GetString("domain", "")}, top)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("discover failed: %v", err)), nil
	}
	type valueOutput struct {
		Value string `json:"value"`
		Count uint64 `json:"count"`
	}
	out := make([]valueOutput, 0, len(vals))
	for _, v := range vals {
		out = append(out, valueOutput{Value: v.Value, Count: v.Count})
	}
	return mcp.NewToolResultText(formatJSON(out)), nil
}

func (s *Server) handleLibraryStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := s.lib.Stats(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("stats failed: %v", err)), nil
	}
	return mcp.NewToolResultText(formatJSON(st)), nil
}

func formatJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
