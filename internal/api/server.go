package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgnsrekt/tab_grouper/internal/cdpcontrol"
	"github.com/dgnsrekt/tab_grouper/internal/controller"
	"github.com/dgnsrekt/tab_grouper/internal/grouping"
	"github.com/dgnsrekt/tab_grouper/internal/settings"
)

type Service interface {
	ListTabs(ctx context.Context) ([]controller.TabView, error)
	Plan(ctx context.Context) ([]controller.WindowPlan, error)
	Run(ctx context.Context, trigger string) (controller.RunRecord, error)
	Preview(urls []string, cfg grouping.Settings) (controller.WindowPlan, error)
	Recent(limit int) []controller.RunRecord
}

type SettingsStore interface {
	Get() settings.Settings
	Update(p settings.Patch) (settings.Settings, error)
}

// Trigger queues a scheduled run.
type Trigger interface {
	Trigger(reason string, delay time.Duration)
}

const runTrigger = "api"

func NewServer(svc Service, store SettingsStore, trigger Trigger) http.Handler {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(requestLogger)
	router.Use(middleware.Recoverer)

	cfg := huma.DefaultConfig("Tab Grouper API", "1.0.0")
	cfg.DocsPath = ""
	api := humachi.New(router, cfg)

	router.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if _, err := w.Write([]byte(docsHTML)); err != nil {
			slog.Debug("docs response write failed", "error", err)
		}
	})

	registerHealthHandlers(api, store)
	registerTabHandlers(api, svc, store, trigger)
	registerSettingsHandlers(api, store)

	return router
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var coded *cdpcontrol.CodedError
	if errors.As(err, &coded) {
		switch coded.Code {
		case cdpcontrol.CodeValidation:
			return huma.Error400BadRequest(coded.Error())
		case cdpcontrol.CodeTabNotFound, cdpcontrol.CodeExtensionNotFound:
			return huma.Error404NotFound(coded.Message)
		case cdpcontrol.CodeTabsBusy:
			return huma.Error409Conflict(coded.Message)
		case cdpcontrol.CodeEvalTimeout:
			return huma.Error504GatewayTimeout(coded.Message)
		case cdpcontrol.CodeCDPUnavailable:
			return huma.Error502BadGateway(coded.Message)
		default:
			return huma.Error500InternalServerError(fmt.Sprintf("%s: %s", coded.Code, coded.Message))
		}
	}
	if errors.Is(err, grouping.ErrInvalidArgument) {
		return huma.Error400BadRequest(err.Error())
	}
	return huma.Error500InternalServerError(err.Error())
}
