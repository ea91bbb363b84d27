package tools

import (
	"testing"

	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gt"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

func TestToToolSpec(t *testing.T) {
	spec, err := toToolSpec(&mcpsdk.Tool{
		Name:        "get_stock_history",
		Description: "Get historical candles",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"symbol": map[string]any{
					"type":        "string",
					"description": "ticker symbol",
				},
				"days": map[string]any{
					"type": "integer",
				},
				"adjusted": map[string]any{
					"type": "boolean",
				},
			},
			"required": []any{"symbol"},
		},
	})
	gt.NoError(t, err).Required()

	gt.Value(t, spec.Name).Equal("get_stock_history")
	gt.Value(t, spec.Description).Equal("Get historical candles")
	gt.Value(t, len(spec.Parameters)).Equal(3)

	symbol := spec.Parameters["symbol"]
	gt.Value(t, symbol.Type).Equal(gollem.TypeString)
	gt.Value(t, symbol.Description).Equal("ticker symbol")
	gt.Value(t, symbol.Required).Equal(true)

	gt.Value(t, spec.Parameters["days"].Type).Equal(gollem.TypeInteger)
	gt.Value(t, spec.Parameters["days"].Required).Equal(false)
	gt.Value(t, spec.Parameters["adjusted"].Type).Equal(gollem.TypeBoolean)
}

func TestToToolSpecNested(t *testing.T) {
	spec, err := toToolSpec(&mcpsdk.Tool{
		Name: "screen",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"filters": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"field": map[string]any{"type": "string"},
							"min":   map[string]any{"type": "number"},
						},
						"required": []any{"field"},
					},
				},
			},
		},
	})
	gt.NoError(t, err).Required()

	filters := spec.Parameters["filters"]
	gt.Value(t, filters.Type).Equal(gollem.TypeArray)
	gt.Value(t, filters.Items.Type).Equal(gollem.TypeObject)
	gt.Value(t, filters.Items.Properties["field"].Type).Equal(gollem.TypeString)
	gt.Value(t, filters.Items.Properties["field"].Required).Equal(true)
	gt.Value(t, filters.Items.Properties["min"].Type).Equal(gollem.TypeNumber)
	gt.Value(t, filters.Items.Properties["min"].Required).Equal(false)
}

func TestToToolSpecNoSchema(t *testing.T) {
	spec, err := toToolSpec(&mcpsdk.Tool{Name: "noop"})
	gt.NoError(t, err)
	gt.Value(t, spec.Name).Equal("noop")
	gt.Value(t, len(spec.Parameters)).Equal(0)
}

func TestDecodeResult(t *testing.T) {
	t.Run("json object passes through", func(t *testing.T) {
		got := decodeResult(`{"price": 187.5, "currency": "USD"}`)
		gt.Value(t, got["price"]).Equal(187.5)
		gt.Value(t, got["currency"]).Equal("USD")
	})

	t.Run("json array wrapped under result", func(t *testing.T) {
		got := decodeResult(`[1, 2, 3]`)
		list, ok := got["result"].([]any)
		gt.Bool(t, ok).True()
		gt.Array(t, list).Length(3)
	})

	t.Run("plain text wrapped under result", func(t *testing.T) {
		got := decodeResult("no quote available")
		gt.Value(t, got["result"]).Equal("no quote available")
	})
}
