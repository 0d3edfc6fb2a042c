package cli

import (
	"context"
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/commitlens/commitlens-cli/internal/api"
	"github.com/commitlens/commitlens-cli/internal/entity"
)

func writeData(cmd *cobra.Command, app *App, meta map[string]any, data any) error {
	out := map[string]any{
		"ok":   true,
		"meta": meta,
		"data": data,
	}
	// Avoid emitting empty meta.
	if len(meta) == 0 {
		delete(out, "meta")
	}
	return writeOut(cmd, app, out)
}

func writeFailure(cmd *cobra.Command, app *App, code string, err error, hint string, details any) error {
	if err == nil {
		err = errors.New("unknown error")
	}
	out := map[string]any{
		"ok": false,
		"error": map[string]any{
			"code":    code,
			"message": err.Error(),
			"details": details,
		},
	}
	if hint != "" {
		out["hint"] = hint
	}
	// We still return an error so Cobra exits non-zero.
	_ = writeOut(cmd, app, out)
	return err
}

// writeErr picks the failure code, hint and details for err.
func writeErr(cmd *cobra.Command, app *App, err error) error {
	code, hint, details := classify(err)
	app.logger().Debug("command failed", "code", code, "err", err)
	return writeFailure(cmd, app, code, err, hint, details)
}

func classify(err error) (code, hint string, details any) {
	var (
		fe      entity.FieldErrors
		apiErr  *api.Error
		bulkErr *api.BulkError
	)
	switch {
	case errors.As(err, &fe):
		return "invalid_input", "", map[string]string(fe)
	case errors.As(err, &bulkErr):
		failed := make(map[string]string, len(bulkErr.Failed))
		for _, f := range bulkErr.Failed {
			failed[f.ID] = f.Err.Error()
		}
		return "partial_failure", "The ids that did not fail were deleted.", map[string]any{"failed": failed, "total": bulkErr.Total}
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout", "Raise --timeout or check the backend.", nil
	case errors.As(err, &apiErr):
		details := map[string]any{"status": apiErr.Status}
		switch apiErr.Status {
		case http.StatusUnauthorized, http.StatusForbidden:
			return "unauthorized", "Run `commitlens auth login --token <token>` or pass --token.", details
		case http.StatusNotFound:
			return "not_found", "", details
		case http.StatusConflict:
			return "conflict", "", details
		case http.StatusBadRequest, http.StatusUnprocessableEntity:
			return "invalid_input", "", details
		}
		return "api_error", "", details
	}
	return "error", "", nil
}
