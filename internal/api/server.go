package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/dperique/browser-tab-cleaner/internal/classify"
	"github.com/dperique/browser-tab-cleaner/internal/cleaner"
	"github.com/dperique/browser-tab-cleaner/internal/tabsource"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Service is the slice of the cleaner the API exposes.
type Service interface {
	ListTabs(ctx context.Context, mode classify.Mode) ([]cleaner.ClassifiedTab, error)
	Clean(ctx context.Context, mode classify.Mode, dryRun bool) (cleaner.Report, error)
}

// NewServer builds the inspection API handler.
func NewServer(svc Service) http.Handler {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(requestLogger)
	router.Use(middleware.Recoverer)

	cfg := huma.DefaultConfig("Browser Tab Cleaner API", "1.0.0")
	api := humachi.New(router, cfg)

	registerHandlers(api, svc)

	return router
}

func registerHandlers(api huma.API, svc Service) {
	type healthOutput struct {
		Body struct {
			Status string `json:"status"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "health", Method: http.MethodGet, Path: "/health", Summary: "Health check", Tags: []string{"Health"}},
		func(ctx context.Context, input *struct{}) (*healthOutput, error) {
			out := &healthOutput{}
			out.Body.Status = "ok"
			return out, nil
		})

	type listTabsInput struct {
		Mode string `query:"mode" default:"all" doc:"Rule groups to evaluate: all|jenkins-only|empty-only"`
	}
	type listTabsOutput struct {
		Body struct {
			Tabs []cleaner.ClassifiedTab `json:"tabs"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "list-tabs", Method: http.MethodGet, Path: "/api/v1/tabs", Summary: "List open page tabs with classification", Tags: []string{"Tabs"}},
		func(ctx context.Context, input *listTabsInput) (*listTabsOutput, error) {
			mode, err := classify.ParseMode(input.Mode)
			if err != nil {
				return nil, huma.Error400BadRequest(err.Error())
			}
			tabs, err := svc.ListTabs(ctx, mode)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &listTabsOutput{}
			out.Body.Tabs = tabs
			return out, nil
		})

	type cleanInput struct {
		Body struct {
			Mode   string `json:"mode,omitempty" doc:"Rule groups to evaluate: all|jenkins-only|empty-only"`
			DryRun bool   `json:"dry_run,omitempty" doc:"Report matches without closing"`
		}
	}
	type cleanOutput struct {
		Body cleaner.Report
	}
	huma.Register(api, huma.Operation{OperationID: "clean-tabs", Method: http.MethodPost, Path: "/api/v1/clean", Summary: "Run one enumerate-classify-close pass", Tags: []string{"Tabs"}},
		func(ctx context.Context, input *cleanInput) (*cleanOutput, error) {
			mode, err := classify.ParseMode(input.Body.Mode)
			if err != nil {
				return nil, huma.Error400BadRequest(err.Error())
			}
			report, err := svc.Clean(ctx, mode, input.Body.DryRun)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &cleanOutput{}
			out.Body = report
			return out, nil
		})
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var coded *tabsource.CodedError
	if errors.As(err, &coded) {
		switch coded.Code {
		case tabsource.CodeValidation:
			return huma.Error400BadRequest(coded.Message)
		case tabsource.CodeSourceUnreachable:
			return huma.Error502BadGateway(coded.Message)
		default:
			return huma.Error500InternalServerError(fmt.Sprintf("%s: %s", coded.Code, coded.Message))
		}
	}
	return huma.Error500InternalServerError(err.Error())
}
