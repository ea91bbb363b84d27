// Package market fetches quotes, price history and company data from the
// Yahoo Finance public endpoints.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

const (
	defaultChartURL   = "https://query1.finance.yahoo.com/v8/finance/chart"
	defaultQuoteURL   = "https://query1.finance.yahoo.com/v7/finance/quote"
	defaultSearchURL  = "https://query1.finance.yahoo.com/v1/finance/search"
	defaultSummaryURL = "https://query1.finance.yahoo.com/v10/finance/quoteSummary"

	// Some endpoints reject requests without a browser-like agent
	userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36"
)

// Client fetches market data over HTTP
type Client struct {
	http       *http.Client
	chartURL   string
	quoteURL   string
	searchURL  string
	summaryURL string
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithBaseURL points all endpoints at base, keeping their standard paths.
// Used by tests to target a local server.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		c.chartURL = base + "/v8/finance/chart"
		c.quoteURL = base + "/v7/finance/quote"
		c.searchURL = base + "/v1/finance/search"
		c.summaryURL = base + "/v10/finance/quoteSummary"
	}
}

// New creates a market data client
func New(opts ...Option) *Client {
	c := &Client{
		http:       &http.Client{Timeout: 30 * time.Second},
		chartURL:   defaultChartURL,
		quoteURL:   defaultQuoteURL,
		searchURL:  defaultSearchURL,
		summaryURL: defaultSummaryURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Quote is the latest price of a symbol
type Quote struct {
	Symbol        string  `json:"symbol"`
	Currency      string  `json:"currency"`
	Price         float64 `json:"price"`
	PreviousClose float64 `json:"previous_close"`
	Time          int64   `json:"time"`
}

// Bar is one OHLCV candle
type Bar struct {
	Time   int64   `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// Dividend is one cash dividend event
type Dividend struct {
	Time   int64   `json:"time"`
	Amount float64 `json:"amount"`
}

// Split is one stock split event
type Split struct {
	Time        int64  `json:"time"`
	Numerator   int    `json:"numerator"`
	Denominator int    `json:"denominator"`
	Ratio       string `json:"ratio"`
}

// Info is a company profile summary. Pointer fields are nil when the
// upstream response omits the value.
type Info struct {
	Symbol        string   `json:"symbol"`
	Name          string   `json:"name"`
	Exchange      string   `json:"exchange"`
	Currency      string   `json:"currency"`
	MarketCap     *int64   `json:"market_cap"`
	TrailingPE    *float64 `json:"trailing_pe"`
	ForwardPE     *float64 `json:"forward_pe"`
	DividendYield *float64 `json:"dividend_yield"`
	High52Week    *float64 `json:"high_52_week"`
	Low52Week     *float64 `json:"low_52_week"`
}

// NewsItem is one headline about a symbol
type NewsItem struct {
	Title     string `json:"title"`
	Publisher string `json:"publisher"`
	Link      string `json:"link"`
	Published int64  `json:"published"`
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				Currency           string  `json:"currency"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				ChartPreviousClose float64 `json:"chartPreviousClose"`
				RegularMarketTime  int64   `json:"regularMarketTime"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []float64 `json:"open"`
					High   []float64 `json:"high"`
					Low    []float64 `json:"low"`
					Close  []float64 `json:"close"`
					Volume []int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
			Events struct {
				Dividends map[string]struct {
					Amount float64 `json:"amount"`
					Date   int64   `json:"date"`
				} `json:"dividends"`
				Splits map[string]struct {
					Date        int64  `json:"date"`
					Numerator   int    `json:"numerator"`
					Denominator int    `json:"denominator"`
					SplitRatio  string `json:"splitRatio"`
				} `json:"splits"`
			} `json:"events"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Quote fetches the latest price for symbol
func (c *Client) Quote(ctx context.Context, symbol string) (*Quote, error) {
	resp, err := c.chart(ctx, symbol, url.Values{
		"range":    {"1d"},
		"interval": {"1d"},
	})
	if err != nil {
		return nil, err
	}

	meta := resp.Chart.Result[0].Meta
	return &Quote{
		Symbol:        meta.Symbol,
		Currency:      meta.Currency,
		Price:         meta.RegularMarketPrice,
		PreviousClose: meta.ChartPreviousClose,
		Time:          meta.RegularMarketTime,
	}, nil
}

// History fetches OHLCV candles for symbol. rng is a Yahoo range string
// like "1mo" or "1y"; interval like "1d" or "1wk".
func (c *Client) History(ctx context.Context, symbol, rng, interval string) ([]Bar, error) {
	if rng == "" {
		rng = "1mo"
	}
	if interval == "" {
		interval = "1d"
	}
	resp, err := c.chart(ctx, symbol, url.Values{
		"range":    {rng},
		"interval": {interval},
	})
	if err != nil {
		return nil, err
	}

	result := resp.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, nil
	}
	q := result.Indicators.Quote[0]

	bars := make([]Bar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(q.Close) {
			break
		}
		bars = append(bars, Bar{
			Time:   ts,
			Open:   at(q.Open, i),
			High:   at(q.High, i),
			Low:    at(q.Low, i),
			Close:  at(q.Close, i),
			Volume: atInt(q.Volume, i),
		})
	}
	return bars, nil
}

// Dividends fetches dividend events for symbol within rng
func (c *Client) Dividends(ctx context.Context, symbol, rng string) ([]Dividend, error) {
	if rng == "" {
		rng = "1y"
	}
	resp, err := c.chart(ctx, symbol, url.Values{
		"range":    {rng},
		"interval": {"1d"},
		"events":   {"div"},
	})
	if err != nil {
		return nil, err
	}

	events := resp.Chart.Result[0].Events.Dividends
	divs := make([]Dividend, 0, len(events))
	for _, d := range events {
		divs = append(divs, Dividend{Time: d.Date, Amount: d.Amount})
	}
	sortByTime(divs, func(d Dividend) int64 { return d.Time })
	return divs, nil
}

// Splits fetches stock split events for symbol within rng
func (c *Client) Splits(ctx context.Context, symbol, rng string) ([]Split, error) {
	if rng == "" {
		rng = "5y"
	}
	resp, err := c.chart(ctx, symbol, url.Values{
		"range":    {rng},
		"interval": {"1d"},
		"events":   {"split"},
	})
	if err != nil {
		return nil, err
	}

	events := resp.Chart.Result[0].Events.Splits
	splits := make([]Split, 0, len(events))
	for _, s := range events {
		splits = append(splits, Split{
			Time:        s.Date,
			Numerator:   s.Numerator,
			Denominator: s.Denominator,
			Ratio:       s.SplitRatio,
		})
	}
	sortByTime(splits, func(s Split) int64 { return s.Time })
	return splits, nil
}

type quoteResponse struct {
	QuoteResponse struct {
		Result []struct {
			Symbol                      string   `json:"symbol"`
			LongName                    string   `json:"longName"`
			ShortName                   string   `json:"shortName"`
			FullExchangeName            string   `json:"fullExchangeName"`
			Currency                    string   `json:"currency"`
			MarketCap                   *int64   `json:"marketCap"`
			TrailingPE                  *float64 `json:"trailingPE"`
			ForwardPE                   *float64 `json:"forwardPE"`
			TrailingAnnualDividendYield *float64 `json:"trailingAnnualDividendYield"`
			FiftyTwoWeekHigh            *float64 `json:"fiftyTwoWeekHigh"`
			FiftyTwoWeekLow             *float64 `json:"fiftyTwoWeekLow"`
		} `json:"result"`
	} `json:"quoteResponse"`
}

// Info fetches a company profile summary for symbol
func (c *Client) Info(ctx context.Context, symbol string) (*Info, error) {
	var resp quoteResponse
	query := url.Values{"symbols": {symbol}}
	if err := c.get(ctx, c.quoteURL, query, &resp); err != nil {
		return nil, err
	}
	if len(resp.QuoteResponse.Result) == 0 {
		return nil, goerr.New("unknown symbol", goerr.V("symbol", symbol))
	}

	r := resp.QuoteResponse.Result[0]
	name := r.LongName
	if name == "" {
		name = r.ShortName
	}
	return &Info{
		Symbol:        r.Symbol,
		Name:          name,
		Exchange:      r.FullExchangeName,
		Currency:      r.Currency,
		MarketCap:     r.MarketCap,
		TrailingPE:    r.TrailingPE,
		ForwardPE:     r.ForwardPE,
		DividendYield: r.TrailingAnnualDividendYield,
		High52Week:    r.FiftyTwoWeekHigh,
		Low52Week:     r.FiftyTwoWeekLow,
	}, nil
}

type searchResponse struct {
	News []struct {
		Title               string `json:"title"`
		Publisher           string `json:"publisher"`
		Link                string `json:"link"`
		ProviderPublishTime int64  `json:"providerPublishTime"`
	} `json:"news"`
}

// News fetches recent headlines mentioning symbol
func (c *Client) News(ctx context.Context, symbol string, limit int) ([]NewsItem, error) {
	if limit <= 0 {
		limit = 5
	}
	var resp searchResponse
	query := url.Values{"q": {symbol}}
	if err := c.get(ctx, c.searchURL, query, &resp); err != nil {
		return nil, err
	}

	items := make([]NewsItem, 0, limit)
	for _, n := range resp.News {
		if len(items) >= limit {
			break
		}
		items = append(items, NewsItem{
			Title:     n.Title,
			Publisher: n.Publisher,
			Link:      n.Link,
			Published: n.ProviderPublishTime,
		})
	}
	return items, nil
}

// Recommendation is one month of aggregated analyst ratings
type Recommendation struct {
	Period     string `json:"period"`
	StrongBuy  int    `json:"strong_buy"`
	Buy        int    `json:"buy"`
	Hold       int    `json:"hold"`
	Sell       int    `json:"sell"`
	StrongSell int    `json:"strong_sell"`
}

type summaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			RecommendationTrend struct {
				Trend []struct {
					Period     string `json:"period"`
					StrongBuy  int    `json:"strongBuy"`
					Buy        int    `json:"buy"`
					Hold       int    `json:"hold"`
					Sell       int    `json:"sell"`
					StrongSell int    `json:"strongSell"`
				} `json:"trend"`
			} `json:"recommendationTrend"`
		} `json:"result"`
	} `json:"quoteSummary"`
}

// Recommendations fetches the analyst recommendation trend for symbol
func (c *Client) Recommendations(ctx context.Context, symbol string) ([]Recommendation, error) {
	var resp summaryResponse
	endpoint := fmt.Sprintf("%s/%s", c.summaryURL, url.PathEscape(symbol))
	query := url.Values{"modules": {"recommendationTrend"}}
	if err := c.get(ctx, endpoint, query, &resp); err != nil {
		return nil, err
	}
	if len(resp.QuoteSummary.Result) == 0 {
		return nil, goerr.New("no recommendation data for symbol", goerr.V("symbol", symbol))
	}

	trend := resp.QuoteSummary.Result[0].RecommendationTrend.Trend
	recs := make([]Recommendation, len(trend))
	for i, t := range trend {
		recs[i] = Recommendation{
			Period:     t.Period,
			StrongBuy:  t.StrongBuy,
			Buy:        t.Buy,
			Hold:       t.Hold,
			Sell:       t.Sell,
			StrongSell: t.StrongSell,
		}
	}
	return recs, nil
}

// AnalystEstimate is one forward period of analyst earnings and revenue
// estimates. Pointer fields are nil when the upstream response omits the
// value.
type AnalystEstimate struct {
	Period       string   `json:"period"`
	EndDate      string   `json:"end_date"`
	Growth       *float64 `json:"growth"`
	EarningsAvg  *float64 `json:"earnings_avg"`
	EarningsLow  *float64 `json:"earnings_low"`
	EarningsHigh *float64 `json:"earnings_high"`
	RevenueAvg   *float64 `json:"revenue_avg"`
	Analysts     *float64 `json:"analysts"`
}

// yahooValue is the raw/fmt pair the quoteSummary modules wrap numbers in
type yahooValue struct {
	Raw *float64 `json:"raw"`
}

type earningsTrendResponse struct {
	QuoteSummary struct {
		Result []struct {
			EarningsTrend struct {
				Trend []struct {
					Period           string     `json:"period"`
					EndDate          string     `json:"endDate"`
					Growth           yahooValue `json:"growth"`
					EarningsEstimate struct {
						Avg              yahooValue `json:"avg"`
						Low              yahooValue `json:"low"`
						High             yahooValue `json:"high"`
						NumberOfAnalysts yahooValue `json:"numberOfAnalysts"`
					} `json:"earningsEstimate"`
					RevenueEstimate struct {
						Avg yahooValue `json:"avg"`
					} `json:"revenueEstimate"`
				} `json:"trend"`
			} `json:"earningsTrend"`
		} `json:"result"`
	} `json:"quoteSummary"`
}

// Analysis fetches forward analyst estimates for symbol
func (c *Client) Analysis(ctx context.Context, symbol string) ([]AnalystEstimate, error) {
	var resp earningsTrendResponse
	endpoint := fmt.Sprintf("%s/%s", c.summaryURL, url.PathEscape(symbol))
	query := url.Values{"modules": {"earningsTrend"}}
	if err := c.get(ctx, endpoint, query, &resp); err != nil {
		return nil, err
	}
	if len(resp.QuoteSummary.Result) == 0 {
		return nil, goerr.New("no analysis data for symbol", goerr.V("symbol", symbol))
	}

	trend := resp.QuoteSummary.Result[0].EarningsTrend.Trend
	estimates := make([]AnalystEstimate, len(trend))
	for i, t := range trend {
		estimates[i] = AnalystEstimate{
			Period:       t.Period,
			EndDate:      t.EndDate,
			Growth:       t.Growth.Raw,
			EarningsAvg:  t.EarningsEstimate.Avg.Raw,
			EarningsLow:  t.EarningsEstimate.Low.Raw,
			EarningsHigh: t.EarningsEstimate.High.Raw,
			RevenueAvg:   t.RevenueEstimate.Avg.Raw,
			Analysts:     t.EarningsEstimate.NumberOfAnalysts.Raw,
		}
	}
	return estimates, nil
}

// Calendar is the upcoming earnings and dividend schedule of a symbol.
// Pointer fields are nil when the upstream response omits the value.
type Calendar struct {
	EarningsDates  []int64  `json:"earnings_dates"`
	EarningsAvg    *float64 `json:"earnings_avg"`
	EarningsLow    *float64 `json:"earnings_low"`
	EarningsHigh   *float64 `json:"earnings_high"`
	RevenueAvg     *float64 `json:"revenue_avg"`
	ExDividendDate *int64   `json:"ex_dividend_date"`
	DividendDate   *int64   `json:"dividend_date"`
}

type calendarResponse struct {
	QuoteSummary struct {
		Result []struct {
			CalendarEvents struct {
				Earnings struct {
					EarningsDate    []yahooValue `json:"earningsDate"`
					EarningsAverage yahooValue   `json:"earningsAverage"`
					EarningsLow     yahooValue   `json:"earningsLow"`
					EarningsHigh    yahooValue   `json:"earningsHigh"`
					RevenueAverage  yahooValue   `json:"revenueAverage"`
				} `json:"earnings"`
				ExDividendDate yahooValue `json:"exDividendDate"`
				DividendDate   yahooValue `json:"dividendDate"`
			} `json:"calendarEvents"`
		} `json:"result"`
	} `json:"quoteSummary"`
}

// Calendar fetches the upcoming earnings and dividend dates for symbol
func (c *Client) Calendar(ctx context.Context, symbol string) (*Calendar, error) {
	var resp calendarResponse
	endpoint := fmt.Sprintf("%s/%s", c.summaryURL, url.PathEscape(symbol))
	query := url.Values{"modules": {"calendarEvents"}}
	if err := c.get(ctx, endpoint, query, &resp); err != nil {
		return nil, err
	}
	if len(resp.QuoteSummary.Result) == 0 {
		return nil, goerr.New("no calendar data for symbol", goerr.V("symbol", symbol))
	}

	ev := resp.QuoteSummary.Result[0].CalendarEvents
	cal := &Calendar{
		EarningsAvg:    ev.Earnings.EarningsAverage.Raw,
		EarningsLow:    ev.Earnings.EarningsLow.Raw,
		EarningsHigh:   ev.Earnings.EarningsHigh.Raw,
		RevenueAvg:     ev.Earnings.RevenueAverage.Raw,
		ExDividendDate: asUnix(ev.ExDividendDate),
		DividendDate:   asUnix(ev.DividendDate),
	}
	for _, d := range ev.Earnings.EarningsDate {
		if d.Raw != nil {
			cal.EarningsDates = append(cal.EarningsDates, int64(*d.Raw))
		}
	}
	return cal, nil
}

func asUnix(v yahooValue) *int64 {
	if v.Raw == nil {
		return nil
	}
	ts := int64(*v.Raw)
	return &ts
}

func (c *Client) chart(ctx context.Context, symbol string, query url.Values) (*chartResponse, error) {
	var resp chartResponse
	endpoint := fmt.Sprintf("%s/%s", c.chartURL, url.PathEscape(symbol))
	if err := c.get(ctx, endpoint, query, &resp); err != nil {
		return nil, err
	}
	if resp.Chart.Error != nil {
		return nil, goerr.New("market data request rejected",
			goerr.V("symbol", symbol),
			goerr.V("code", resp.Chart.Error.Code),
			goerr.V("description", resp.Chart.Error.Description),
		)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, goerr.New("no market data for symbol", goerr.V("symbol", symbol))
	}
	return &resp, nil
}

func (c *Client) get(ctx context.Context, endpoint string, query url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return goerr.Wrap(err, "failed to build market data request")
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return goerr.Wrap(err, "market data request failed", goerr.V("url", endpoint))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return goerr.Wrap(err, "failed to read market data response")
	}
	if resp.StatusCode != http.StatusOK {
		return goerr.New("unexpected market data status",
			goerr.V("url", endpoint),
			goerr.V("status", resp.StatusCode),
			goerr.V("body", string(body)),
		)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return goerr.Wrap(err, "failed to decode market data response",
			goerr.V("url", endpoint))
	}
	return nil
}

// Event maps are unordered in the upstream response
func sortByTime[T any](items []T, key func(T) int64) {
	sort.Slice(items, func(i, j int) bool {
		return key(items[i]) < key(items[j])
	})
}

func at(vals []float64, i int) float64 {
	if i < len(vals) {
		return vals[i]
	}
	return 0
}

func atInt(vals []int64, i int) int64 {
	if i < len(vals) {
		return vals[i]
	}
	return 0
}
