package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/dgnsrekt/tab_grouper/internal/settings"
)

type settingsOutput struct {
	Body settings.Settings
}

func registerSettingsHandlers(api huma.API, store SettingsStore) {
	huma.Register(api, huma.Operation{OperationID: "get-settings", Method: http.MethodGet, Path: "/api/v1/settings", Summary: "Current settings", Tags: []string{"Settings"}},
		func(ctx context.Context, input *struct{}) (*settingsOutput, error) {
			return &settingsOutput{Body: store.Get()}, nil
		})

	type updateInput struct {
		Body settings.Patch
	}
	huma.Register(api, huma.Operation{OperationID: "update-settings", Method: http.MethodPut, Path: "/api/v1/settings", Summary: "Change settings", Description: "Omitted fields keep their value. The file is saved and a run is scheduled.", Tags: []string{"Settings"}},
		func(ctx context.Context, input *updateInput) (*settingsOutput, error) {
			next, err := store.Update(input.Body)
			if err != nil {
				return nil, mapErr(err)
			}
			return &settingsOutput{Body: next}, nil
		})
}
