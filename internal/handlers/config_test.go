package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/apophisnow/icemaker/internal/models"
	"github.com/apophisnow/icemaker/internal/service"
)

func patchConfig(t *testing.T, r http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/config", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestConfigHandlers_GetAndSchema(t *testing.T) {
	cfg := models.DefaultCycleConfig()
	cfg.Ice.TargetTemp = -4
	r := newTestRouter(&service.Service{Configuration: &mockConfiguration{cfg: cfg}})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/config", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var got models.CycleConfig
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got != cfg {
		t.Fatalf("config = %+v, want %+v", got, cfg)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/config/schema", nil))
	var schema struct {
		Count  int                  `json:"count"`
		Fields []models.ConfigField `json:"fields"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &schema); err != nil {
		t.Fatalf("unmarshal schema: %v", err)
	}
	if schema.Count != len(models.ConfigSchema()) || schema.Fields[0].Key == "" {
		t.Fatalf("unexpected schema: %+v", schema)
	}
}

func TestConfigHandlers_Update(t *testing.T) {
	conf := &mockConfiguration{cfg: models.DefaultCycleConfig()}
	r := newTestRouter(&service.Service{Configuration: conf})

	w := patchConfig(t, r, `{"ice":{"target_temp_f":-4},"harvest_fill_s":20}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d, body=%s", w.Code, w.Body.String())
	}
	ice, _ := conf.lastUpdate["ice"].(map[string]any)
	if ice["target_temp_f"] != -4.0 || conf.lastUpdate["harvest_fill_s"] != 20.0 {
		t.Fatalf("body not passed through: %+v", conf.lastUpdate)
	}

	if w := patchConfig(t, r, `not json`); w.Code != http.StatusBadRequest {
		t.Fatalf("bad json: status=%d", w.Code)
	}
	if w := patchConfig(t, r, `{}`); w.Code != http.StatusBadRequest {
		t.Fatalf("empty update: status=%d", w.Code)
	}
}

func TestConfigHandlers_UpdateValidationError(t *testing.T) {
	conf := &mockConfiguration{err: &models.ValidationError{Fields: []models.FieldError{
		{Key: "ice.target_temp_f", Reason: "99 out of range [-30, 32]"},
		{Key: "bogus", Reason: "unknown field"},
	}}}
	r := newTestRouter(&service.Service{Configuration: conf})

	w := patchConfig(t, r, `{"ice.target_temp_f":99,"bogus":1}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status=%d, want 422", w.Code)
	}
	var resp struct {
		Error  string              `json:"error"`
		Fields []models.FieldError `json:"fields"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Fields) != 2 || resp.Fields[1].Key != "bogus" {
		t.Fatalf("fields not reported: %+v", resp)
	}
}

func TestConfigHandlers_Reset(t *testing.T) {
	conf := &mockConfiguration{}
	r := newTestRouter(&service.Service{Configuration: conf})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/config/reset", nil))
	if w.Code != http.StatusOK || conf.resets != 1 {
		t.Fatalf("status=%d resets=%d", w.Code, conf.resets)
	}

	conf.resetErr = errors.New("database is locked")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/config/reset", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d, want 500", w.Code)
	}
}
