package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"

	"stock-data-gateway/internal/analyst"
	"stock-data-gateway/internal/data"
)

type lineItemsRequest struct {
	Ticker  string   `json:"ticker"`
	Items   []string `json:"items"`
	EndDate string   `json:"end_date"`
	Period  string   `json:"period"`
	Limit   int      `json:"limit"`
}

type analyzeRequest struct {
	Ticker  string `json:"ticker"`
	EndDate string `json:"end_date"`
	Period  string `json:"period"`
}

// RegisterRoutes exposes the data service over HTTP. Handlers never
// surface vendor errors: the service has already degraded them to
// empty results, so every response here is a 200 with whatever data
// survived, or a 400 for a malformed request.
func RegisterRoutes(h *server.Hertz, svc *data.Service, agent *analyst.Agent) {
	h.GET("/healthz", func(_ context.Context, c *app.RequestContext) {
		c.JSON(http.StatusOK, map[string]bool{"ok": true})
	})

	h.GET("/api/v1/prices", func(ctx context.Context, c *app.RequestContext) {
		ticker := c.Query("ticker")
		if ticker == "" {
			badRequest(c, "ticker is required")
			return
		}
		prices := svc.GetPrices(ctx, ticker, c.Query("start_date"), c.Query("end_date"))
		c.JSON(http.StatusOK, map[string]any{
			"ticker": ticker,
			"prices": prices,
		})
	})

	h.GET("/api/v1/price-data", func(ctx context.Context, c *app.RequestContext) {
		ticker := c.Query("ticker")
		if ticker == "" {
			badRequest(c, "ticker is required")
			return
		}
		series := svc.GetPriceData(ctx, ticker, c.Query("start_date"), c.Query("end_date"))
		c.JSON(http.StatusOK, map[string]any{
			"ticker": ticker,
			"series": series,
		})
	})

	h.GET("/api/v1/metrics", func(ctx context.Context, c *app.RequestContext) {
		ticker := c.Query("ticker")
		if ticker == "" {
			badRequest(c, "ticker is required")
			return
		}
		metrics := svc.GetFinancialMetrics(ctx, ticker, c.Query("end_date"), queryDefault(c, "period", "annual"), queryInt(c, "limit", 5))
		c.JSON(http.StatusOK, map[string]any{
			"ticker":  ticker,
			"metrics": metrics,
		})
	})

	h.POST("/api/v1/line-items", func(ctx context.Context, c *app.RequestContext) {
		var req lineItemsRequest
		if err := c.BindJSON(&req); err != nil {
			badRequest(c, "invalid json body")
			return
		}
		if req.Ticker == "" || len(req.Items) == 0 {
			badRequest(c, "ticker and items are required")
			return
		}
		if req.Period == "" {
			req.Period = "annual"
		}
		if req.Limit <= 0 {
			req.Limit = 5
		}
		items := svc.SearchLineItems(ctx, req.Ticker, req.Items, req.EndDate, req.Period, req.Limit)
		c.JSON(http.StatusOK, map[string]any{
			"ticker":     req.Ticker,
			"line_items": items,
		})
	})

	h.GET("/api/v1/market-cap", func(ctx context.Context, c *app.RequestContext) {
		ticker := c.Query("ticker")
		if ticker == "" {
			badRequest(c, "ticker is required")
			return
		}
		mcap := svc.GetMarketCap(ctx, ticker, c.Query("end_date"))
		c.JSON(http.StatusOK, map[string]any{
			"ticker":     ticker,
			"market_cap": mcap,
		})
	})

	h.GET("/api/v1/insider-trades", func(ctx context.Context, c *app.RequestContext) {
		ticker := c.Query("ticker")
		if ticker == "" {
			badRequest(c, "ticker is required")
			return
		}
		trades := svc.GetInsiderTrades(ctx, ticker, c.Query("start_date"), c.Query("end_date"), queryInt(c, "limit", 1000))
		c.JSON(http.StatusOK, map[string]any{
			"ticker":         ticker,
			"insider_trades": trades,
		})
	})

	h.GET("/api/v1/news", func(ctx context.Context, c *app.RequestContext) {
		ticker := c.Query("ticker")
		if ticker == "" {
			badRequest(c, "ticker is required")
			return
		}
		news := svc.GetCompanyNews(ctx, ticker, c.Query("start_date"), c.Query("end_date"), queryInt(c, "limit", 1000))
		c.JSON(http.StatusOK, map[string]any{
			"ticker": ticker,
			"news":   news,
		})
	})

	h.POST("/api/v1/analyze", func(ctx context.Context, c *app.RequestContext) {
		if agent == nil {
			c.JSON(http.StatusInternalServerError, map[string]any{
				"ok":    false,
				"error": "analyst not configured",
			})
			return
		}
		var req analyzeRequest
		if err := c.BindJSON(&req); err != nil {
			badRequest(c, "invalid json body")
			return
		}
		if req.Ticker == "" {
			badRequest(c, "ticker is required")
			return
		}
		if req.Period == "" {
			req.Period = "annual"
		}
		metrics := svc.GetFinancialMetrics(ctx, req.Ticker, req.EndDate, req.Period, 1)
		if len(metrics) == 0 {
			c.JSON(http.StatusOK, map[string]any{
				"ok":    false,
				"error": "no fundamentals available",
			})
			return
		}
		signal, err := agent.Analyze(ctx, metrics[0])
		resp := map[string]any{
			"ok":     true,
			"signal": signal,
		}
		if err != nil {
			// The agent already fell back; the error is informational.
			resp["llm_error"] = err.Error()
		}
		c.JSON(http.StatusOK, resp)
	})
}

func badRequest(c *app.RequestContext, msg string) {
	c.JSON(http.StatusBadRequest, map[string]any{
		"ok":    false,
		"error": msg,
	})
}

func queryDefault(c *app.RequestContext, key, def string) string {
	if v := c.Query(key); v != "" {
		return v
	}
	return def
}

func queryInt(c *app.RequestContext, key string, def int) int {
	v := c.Query(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
