package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"metutor/internal/config"

	"github.com/cloudwego/eino-ext/components/tool/duckduckgo/v2"
	"github.com/cloudwego/eino-ext/components/tool/googlesearch"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	webSearchHTTPTimeout = 10 * time.Second
	maxFetchBodySize     = 512 * 1024
)

var errSearchRateLimited = errors.New("web search rate limit exceeded, please retry in a minute")

// searchBackend is one search engine behind the web_search tool.
type searchBackend struct {
	name string
	tool tool.InvokableTool
}

type webSearchTool struct {
	// backends are tried in order until one answers
	backends   []searchBackend
	httpClient *http.Client
	limiter    *rate.Limiter
}

type webSearchParams struct {
	Query string `json:"query"`
}

// NewWebSearchTool exposes a web_search tool backed by Google custom search
// with DuckDuckGo as fallback. Queries that are URLs are fetched directly.
func NewWebSearchTool(ctx context.Context, cfg config.ToolsConfig) (tool.InvokableTool, error) {
	googleTool, err := newGoogleSearch(ctx, cfg)
	if err != nil {
		log.Warn().Err(err).Msg("google search tool disabled")
	}
	duckTool, err := newDuckDuckGoSearch(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("duckduckgo search tool disabled")
	}
	if googleTool == nil && duckTool == nil {
		return nil, errors.New("no search providers available")
	}

	ws := newWebSearch(googleTool, duckTool, cfg.SearchesPerMinute)
	info := &schema.ToolInfo{
		Name: "web_search",
		Desc: "Look up engineering reference data the tutor does not know reliably: material properties, " +
			"standards and codes, tabulated constants, or a course page the student linked. " +
			"Pass a URL to read that page instead of searching.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"query": {
				Desc:     "Search terms, e.g. \"thermal conductivity of 304 stainless steel\", or a URL",
				Type:     schema.String,
				Required: true,
			},
		}),
	}
	return utils.NewTool(info, ws.run), nil
}

func newWebSearch(google, duck tool.InvokableTool, perMinute int) *webSearchTool {
	limit := rate.Inf
	burst := 1
	if perMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(perMinute))
		burst = perMinute
	}
	var backends []searchBackend
	if google != nil {
		backends = append(backends, searchBackend{name: "google", tool: google})
	}
	if duck != nil {
		backends = append(backends, searchBackend{name: "duckduckgo", tool: duck})
	}
	return &webSearchTool{
		backends:   backends,
		httpClient: &http.Client{Timeout: webSearchHTTPTimeout},
		limiter:    rate.NewLimiter(limit, burst),
	}
}

func (w *webSearchTool) run(ctx context.Context, params *webSearchParams) (string, error) {
	if params == nil || strings.TrimSpace(params.Query) == "" {
		return "", errors.New("query must not be empty")
	}
	query := strings.TrimSpace(params.Query)
	if !w.limiter.Allow() {
		return "", errSearchRateLimited
	}

	if looksLikeURL(query) {
		page, err := w.fetchURL(ctx, query)
		if err == nil {
			return page, nil
		}
		log.Warn().Err(err).Str("url", query).Msg("linked page unavailable, searching instead")
	}
	return invokeFirst(ctx, w.backends, webSearchParams{Query: query})
}

// invokeFirst returns the first backend answer; if all fail their errors are joined.
func invokeFirst(ctx context.Context, backends []searchBackend, params webSearchParams) (string, error) {
	if len(backends) == 0 {
		return "", errors.New("no search backend configured")
	}
	args, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("encode search query: %w", err)
	}
	var errs []error
	for _, b := range backends {
		out, err := b.tool.InvokableRun(ctx, string(args))
		if err == nil {
			return out, nil
		}
		log.Warn().Err(err).Str("backend", b.name).Msg("search backend failed")
		errs = append(errs, fmt.Errorf("%s: %w", b.name, err))
	}
	return "", fmt.Errorf("all search backends failed: %w", errors.Join(errs...))
}

func (w *webSearchTool) fetchURL(ctx context.Context, target string) (string, error) {
	parsed, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("invalid url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", errors.New("unsupported url scheme")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "metutor-websearch/1.0")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch url: %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBodySize))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func looksLikeURL(input string) bool {
	lower := strings.ToLower(input)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func newDuckDuckGoSearch(ctx context.Context) (tool.InvokableTool, error) {
	return duckduckgo.NewTextSearchTool(ctx, &duckduckgo.Config{
		ToolName:   "web_search_ddg",
		ToolDesc:   "DuckDuckGo text search",
		MaxResults: 3,
		Region:     duckduckgo.RegionWT,
		Timeout:    webSearchHTTPTimeout,
	})
}

func newGoogleSearch(ctx context.Context, cfg config.ToolsConfig) (tool.InvokableTool, error) {
	if cfg.GoogleAPIKey == "" || cfg.GoogleSearchEngineID == "" {
		return nil, errors.New("missing GOOGLE_API_KEY or GOOGLE_SEARCH_ENGINE_ID")
	}
	return googlesearch.NewTool(ctx, &googlesearch.Config{
		ToolName:       "web_search_google",
		ToolDesc:       "Google programmable search",
		APIKey:         cfg.GoogleAPIKey,
		SearchEngineID: cfg.GoogleSearchEngineID,
		Lang:           "en",
		Num:            5,
	})
}
