package main

import (
	"fmt"
	"log"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"

	"stock-data-gateway/internal/analyst"
	"stock-data-gateway/internal/api"
	"stock-data-gateway/internal/config"
	"stock-data-gateway/internal/data"
	"stock-data-gateway/internal/store"
)

func main() {
	cfg, err := config.Load("configs/app.yaml")
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	h := server.Default(server.WithHostPorts(addr))

	st, err := store.Open(cfg.Store.Sqlite.Path)
	if err != nil {
		log.Fatalf("store error: %v", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Printf("store close error: %v", err)
		}
	}()

	eastmoney := data.NewEastmoneySource(data.EastmoneyConfig{
		HistBaseURL: cfg.Vendors.Eastmoney.HistBaseURL,
		PushBaseURL: cfg.Vendors.Eastmoney.PushBaseURL,
		DataBaseURL: cfg.Vendors.Eastmoney.DataBaseURL,
		Timeout:     time.Duration(cfg.Vendors.Eastmoney.TimeoutMs) * time.Millisecond,
	})

	// The Chinese binding is a fallback chain: Eastmoney first, Tushare
	// behind it when a token is configured.
	chinaSources := []data.Source{eastmoney}
	if cfg.Vendors.Tushare.Token != "" {
		chinaSources = append(chinaSources, data.NewTushareSource(data.TushareConfig{
			Token:   cfg.Vendors.Tushare.Token,
			BaseURL: cfg.Vendors.Tushare.BaseURL,
			Timeout: time.Duration(cfg.Vendors.Tushare.TimeoutMs) * time.Millisecond,
		}))
	}
	china := data.NewFallbackSource("china", chinaSources...)

	global := data.NewFinDatasetsSource(data.FinDatasetsConfig{
		APIKey:  cfg.Vendors.FinDatasets.APIKey,
		BaseURL: cfg.Vendors.FinDatasets.BaseURL,
		Timeout: time.Duration(cfg.Vendors.FinDatasets.TimeoutMs) * time.Millisecond,
	})

	router := data.NewRouter(china, global)
	svc := data.NewService(router, st, time.Duration(cfg.Cache.TTLSec)*time.Second)

	agent := analyst.New(analyst.Config{
		Enabled:    cfg.Analyst.Enabled,
		Model:      cfg.Analyst.Model,
		APIKey:     cfg.Analyst.APIKey,
		BaseURL:    cfg.Analyst.BaseURL,
		ByAzure:    cfg.Analyst.ByAzure,
		APIVersion: cfg.Analyst.APIVersion,
		TimeoutMs:  cfg.Analyst.TimeoutMs,
	})

	api.RegisterRoutes(h, svc, agent)

	log.Printf("server starting on %s (log.level=%s)", addr, cfg.Log.Level)
	if err := h.Run(); err != nil {
		log.Fatalf("server run error: %v", err)
	}
}
