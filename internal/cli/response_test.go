package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/spf13/cobra"

	"github.com/commitlens/commitlens-cli/internal/api"
	"github.com/commitlens/commitlens-cli/internal/entity"
)

func TestWriteFailureEnvelope(t *testing.T) {
	cmd := &cobra.Command{}
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(new(bytes.Buffer))

	app := &App{Format: "json"}
	err := writeFailure(cmd, app, "boom", errors.New("broken"), "fix it", nil)
	if err == nil {
		t.Fatalf("expected error")
	}

	var env map[string]any
	if uerr := json.Unmarshal(out.Bytes(), &env); uerr != nil {
		t.Fatalf("unmarshal output: %v\n%s", uerr, out.String())
	}
	if env["ok"] != false {
		t.Fatalf("expected ok=false, got %#v", env["ok"])
	}
	if env["hint"] != "fix it" {
		t.Fatalf("expected hint, got %#v", env["hint"])
	}
	e, ok := env["error"].(map[string]any)
	if !ok {
		t.Fatalf("expected error object, got %#v", env["error"])
	}
	if e["code"] != "boom" || e["message"] != "broken" {
		t.Fatalf("unexpected error object: %#v", e)
	}
}

func TestWriteDataOmitsEmptyMeta(t *testing.T) {
	cmd := &cobra.Command{}
	out := new(bytes.Buffer)
	cmd.SetOut(out)

	if err := writeData(cmd, &App{Format: "json"}, nil, map[string]any{"x": 1}); err != nil {
		t.Fatalf("writeData: %v", err)
	}
	var env map[string]any
	if err := json.Unmarshal(out.Bytes(), &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := env["meta"]; ok {
		t.Fatalf("expected no meta, got %#v", env["meta"])
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code string
	}{
		{"fields", fmt.Errorf("create: %w", entity.FieldErrors{"email": "invalid"}), "invalid_input"},
		{"unauthorized", &api.Error{Status: http.StatusUnauthorized}, "unauthorized"},
		{"not found", fmt.Errorf("delete: %w", &api.Error{Status: http.StatusNotFound}), "not_found"},
		{"conflict", &api.Error{Status: http.StatusConflict}, "conflict"},
		{"server", &api.Error{Status: http.StatusBadGateway}, "api_error"},
		{"timeout", fmt.Errorf("wait: %w", context.DeadlineExceeded), "timeout"},
		{"bulk", &api.BulkError{Failed: []api.BulkResult{{ID: "a", Err: errors.New("x")}}, Total: 2}, "partial_failure"},
		{"other", errors.New("plain"), "error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if code, _, _ := classify(tc.err); code != tc.code {
				t.Fatalf("classify(%v) = %q, want %q", tc.err, code, tc.code)
			}
		})
	}
}
