package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/m-mizutani/goerr/v2"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/moneta-lab/moneta/pkg/service/market"
)

// SymbolInput is the input for tools that take only a ticker symbol
type SymbolInput struct {
	Symbol string `json:"symbol" jsonschema:"the ticker symbol, e.g. AAPL"`
}

// HistoryInput is the input for tools over a historical window
type HistoryInput struct {
	Symbol   string `json:"symbol" jsonschema:"the ticker symbol, e.g. AAPL"`
	Period   string `json:"period,omitempty" jsonschema:"history window such as 1mo, 6mo, 1y (default 1mo)"`
	Interval string `json:"interval,omitempty" jsonschema:"candle interval such as 1d, 1wk (default 1d)"`
}

// NewsInput is the input for the news tool
type NewsInput struct {
	Symbol string `json:"symbol" jsonschema:"the ticker symbol, e.g. AAPL"`
	Limit  int    `json:"limit,omitempty" jsonschema:"maximum number of headlines (default 5)"`
}

// HistoryOutput wraps the fetched candles
type HistoryOutput struct {
	Symbol string       `json:"symbol"`
	Bars   []market.Bar `json:"bars"`
}

// DividendsOutput wraps the fetched dividend events
type DividendsOutput struct {
	Symbol    string            `json:"symbol"`
	Dividends []market.Dividend `json:"dividends"`
}

// SplitsOutput wraps the fetched split events
type SplitsOutput struct {
	Symbol string         `json:"symbol"`
	Splits []market.Split `json:"splits"`
}

// RecommendationsOutput wraps the analyst recommendation trend
type RecommendationsOutput struct {
	Symbol string                  `json:"symbol"`
	Trend  []market.Recommendation `json:"trend"`
}

// AnalysisOutput wraps the forward analyst estimates
type AnalysisOutput struct {
	Symbol    string                   `json:"symbol"`
	Estimates []market.AnalystEstimate `json:"estimates"`
}

// NewsOutput wraps the fetched headlines
type NewsOutput struct {
	Symbol string            `json:"symbol"`
	News   []market.NewsItem `json:"news"`
}

// ChartOutput points at a rendered chart file
type ChartOutput struct {
	Symbol   string `json:"symbol"`
	Path     string `json:"path"`
	Markdown string `json:"markdown"`
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.server, &mcpsdk.Tool{
		Name:        "get_stock_price",
		Description: "Get the latest market price for a ticker symbol",
	}, s.handlePrice)

	mcpsdk.AddTool(s.server, &mcpsdk.Tool{
		Name:        "get_stock_info",
		Description: "Get company profile and valuation summary for a ticker symbol",
	}, s.handleInfo)

	mcpsdk.AddTool(s.server, &mcpsdk.Tool{
		Name:        "get_stock_history",
		Description: "Get historical OHLCV candles for a ticker symbol",
	}, s.handleHistory)

	mcpsdk.AddTool(s.server, &mcpsdk.Tool{
		Name:        "get_stock_dividends",
		Description: "Get dividend history for a ticker symbol",
	}, s.handleDividends)

	mcpsdk.AddTool(s.server, &mcpsdk.Tool{
		Name:        "get_stock_splits",
		Description: "Get stock split history for a ticker symbol",
	}, s.handleSplits)

	mcpsdk.AddTool(s.server, &mcpsdk.Tool{
		Name:        "get_stock_recommendations",
		Description: "Get the analyst recommendation trend for a ticker symbol",
	}, s.handleRecommendations)

	mcpsdk.AddTool(s.server, &mcpsdk.Tool{
		Name:        "get_stock_analysis",
		Description: "Get forward analyst earnings and revenue estimates for a ticker symbol",
	}, s.handleAnalysis)

	mcpsdk.AddTool(s.server, &mcpsdk.Tool{
		Name:        "get_stock_calendar",
		Description: "Get the upcoming earnings and dividend dates for a ticker symbol",
	}, s.handleCalendar)

	mcpsdk.AddTool(s.server, &mcpsdk.Tool{
		Name:        "get_stock_news",
		Description: "Get recent news headlines for a ticker symbol",
	}, s.handleNews)

	mcpsdk.AddTool(s.server, &mcpsdk.Tool{
		Name:        "render_price_chart",
		Description: "Render a price chart for a ticker symbol and return a markdown image reference",
	}, s.handleChart)
}

func (s *Server) handlePrice(ctx context.Context, _ *mcpsdk.CallToolRequest, input SymbolInput) (*mcpsdk.CallToolResult, *market.Quote, error) {
	quote, err := s.market.Quote(ctx, input.Symbol)
	if err != nil {
		return nil, nil, err
	}
	return nil, quote, nil
}

func (s *Server) handleInfo(ctx context.Context, _ *mcpsdk.CallToolRequest, input SymbolInput) (*mcpsdk.CallToolResult, *market.Info, error) {
	info, err := s.market.Info(ctx, input.Symbol)
	if err != nil {
		return nil, nil, err
	}
	return nil, info, nil
}

func (s *Server) handleHistory(ctx context.Context, _ *mcpsdk.CallToolRequest, input HistoryInput) (*mcpsdk.CallToolResult, HistoryOutput, error) {
	bars, err := s.market.History(ctx, input.Symbol, input.Period, input.Interval)
	if err != nil {
		return nil, HistoryOutput{}, err
	}
	return nil, HistoryOutput{Symbol: input.Symbol, Bars: bars}, nil
}

func (s *Server) handleDividends(ctx context.Context, _ *mcpsdk.CallToolRequest, input HistoryInput) (*mcpsdk.CallToolResult, DividendsOutput, error) {
	divs, err := s.market.Dividends(ctx, input.Symbol, input.Period)
	if err != nil {
		return nil, DividendsOutput{}, err
	}
	return nil, DividendsOutput{Symbol: input.Symbol, Dividends: divs}, nil
}

func (s *Server) handleSplits(ctx context.Context, _ *mcpsdk.CallToolRequest, input HistoryInput) (*mcpsdk.CallToolResult, SplitsOutput, error) {
	splits, err := s.market.Splits(ctx, input.Symbol, input.Period)
	if err != nil {
		return nil, SplitsOutput{}, err
	}
	return nil, SplitsOutput{Symbol: input.Symbol, Splits: splits}, nil
}

func (s *Server) handleRecommendations(ctx context.Context, _ *mcpsdk.CallToolRequest, input SymbolInput) (*mcpsdk.CallToolResult, RecommendationsOutput, error) {
	trend, err := s.market.Recommendations(ctx, input.Symbol)
	if err != nil {
		return nil, RecommendationsOutput{}, err
	}
	return nil, RecommendationsOutput{Symbol: input.Symbol, Trend: trend}, nil
}

func (s *Server) handleAnalysis(ctx context.Context, _ *mcpsdk.CallToolRequest, input SymbolInput) (*mcpsdk.CallToolResult, AnalysisOutput, error) {
	estimates, err := s.market.Analysis(ctx, input.Symbol)
	if err != nil {
		return nil, AnalysisOutput{}, err
	}
	return nil, AnalysisOutput{Symbol: input.Symbol, Estimates: estimates}, nil
}

func (s *Server) handleCalendar(ctx context.Context, _ *mcpsdk.CallToolRequest, input SymbolInput) (*mcpsdk.CallToolResult, *market.Calendar, error) {
	cal, err := s.market.Calendar(ctx, input.Symbol)
	if err != nil {
		return nil, nil, err
	}
	return nil, cal, nil
}

func (s *Server) handleNews(ctx context.Context, _ *mcpsdk.CallToolRequest, input NewsInput) (*mcpsdk.CallToolResult, NewsOutput, error) {
	news, err := s.market.News(ctx, input.Symbol, input.Limit)
	if err != nil {
		return nil, NewsOutput{}, err
	}
	return nil, NewsOutput{Symbol: input.Symbol, News: news}, nil
}

func (s *Server) handleChart(ctx context.Context, _ *mcpsdk.CallToolRequest, input HistoryInput) (*mcpsdk.CallToolResult, ChartOutput, error) {
	bars, err := s.market.History(ctx, input.Symbol, input.Period, input.Interval)
	if err != nil {
		return nil, ChartOutput{}, err
	}

	svg, err := market.RenderChartSVG(input.Symbol, bars)
	if err != nil {
		return nil, ChartOutput{}, err
	}

	name := fmt.Sprintf("%s_%d.svg", input.Symbol, time.Now().UnixNano())
	path := filepath.Join(s.chartDir, name)
	if err := os.WriteFile(path, []byte(svg), 0o644); err != nil {
		return nil, ChartOutput{}, goerr.Wrap(err, "failed to write chart file",
			goerr.V("path", path))
	}

	return nil, ChartOutput{
		Symbol:   input.Symbol,
		Path:     path,
		Markdown: fmt.Sprintf("![%s price chart](%s)", input.Symbol, path),
	}, nil
}
