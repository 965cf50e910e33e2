package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/dgnsrekt/tab_grouper/internal/controller"
	"github.com/dgnsrekt/tab_grouper/internal/grouping"
)

func registerHealthHandlers(api huma.API, store SettingsStore) {
	type healthOutput struct {
		Body struct {
			Status  string `json:"status"`
			Enabled bool   `json:"enabled"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "health", Method: http.MethodGet, Path: "/health", Summary: "Health check", Tags: []string{"Health"}},
		func(ctx context.Context, input *struct{}) (*healthOutput, error) {
			out := &healthOutput{}
			out.Body.Status = "ok"
			out.Body.Enabled = store.Get().Enabled
			return out, nil
		})
}

func registerTabHandlers(api huma.API, svc Service, store SettingsStore, trigger Trigger) {
	type tabsOutput struct {
		Body struct {
			Tabs []controller.TabView `json:"tabs"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "list-tabs", Method: http.MethodGet, Path: "/api/v1/tabs", Summary: "List unpinned tabs with their keys", Tags: []string{"Tabs"}},
		func(ctx context.Context, input *struct{}) (*tabsOutput, error) {
			tabs, err := svc.ListTabs(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &tabsOutput{}
			out.Body.Tabs = tabs
			return out, nil
		})

	type planOutput struct {
		Body struct {
			Windows []controller.WindowPlan `json:"windows"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "get-plan", Method: http.MethodGet, Path: "/api/v1/plan", Summary: "Compute the desired arrangement without changing tabs", Tags: []string{"Tabs"}},
		func(ctx context.Context, input *struct{}) (*planOutput, error) {
			windows, err := svc.Plan(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &planOutput{}
			out.Body.Windows = windows
			return out, nil
		})

	type runInput struct {
		Async bool `query:"async" doc:"Queue the run on the scheduler and return immediately"`
	}
	type runOutput struct {
		Status int
		Body   struct {
			Queued bool                  `json:"queued"`
			Run    *controller.RunRecord `json:"run,omitempty"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "run", Method: http.MethodPost, Path: "/api/v1/run", Summary: "Group tabs now", Tags: []string{"Tabs"}},
		func(ctx context.Context, input *runInput) (*runOutput, error) {
			out := &runOutput{Status: http.StatusOK}
			if input.Async {
				trigger.Trigger(runTrigger, 0)
				out.Status = http.StatusAccepted
				out.Body.Queued = true
				return out, nil
			}
			rec, err := svc.Run(ctx, runTrigger)
			if err != nil {
				return nil, mapErr(err)
			}
			out.Body.Run = &rec
			return out, nil
		})

	type previewInput struct {
		Body struct {
			URLs     []string           `json:"urls" minItems:"1" doc:"URLs in tab order"`
			Settings *grouping.Settings `json:"settings,omitempty" doc:"Grouping settings; the current settings when omitted"`
		}
	}
	type previewOutput struct {
		Body controller.WindowPlan
	}
	huma.Register(api, huma.Operation{OperationID: "preview", Method: http.MethodPost, Path: "/api/v1/preview", Summary: "Group a list of URLs offline", Tags: []string{"Tabs"}},
		func(ctx context.Context, input *previewInput) (*previewOutput, error) {
			cfg := store.Get().Settings
			if input.Body.Settings != nil {
				cfg = *input.Body.Settings
			}
			plan, err := svc.Preview(input.Body.URLs, cfg)
			if err != nil {
				return nil, mapErr(err)
			}
			return &previewOutput{Body: plan}, nil
		})

	type runsInput struct {
		Limit int `query:"limit" default:"20" minimum:"1" maximum:"50" doc:"Number of runs, newest first"`
	}
	type runsOutput struct {
		Body struct {
			Runs []controller.RunRecord `json:"runs"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "list-runs", Method: http.MethodGet, Path: "/api/v1/runs", Summary: "Recent runs", Tags: []string{"Runs"}},
		func(ctx context.Context, input *runsInput) (*runsOutput, error) {
			out := &runsOutput{}
			out.Body.Runs = svc.Recent(input.Limit)
			return out, nil
		})
}
