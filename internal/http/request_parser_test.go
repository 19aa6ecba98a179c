package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"budgetit/internal/core"
)

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		contentType string
		wantErr     bool
	}{
		{"valid", `{"name":"Food","color":"#00ff00"}`, "application/json", false},
		{"charset suffix", `{"name":"Food"}`, "application/json; charset=utf-8", false},
		{"missing content type", `{"name":"Food"}`, "", false},
		{"form content type", `name=Food`, "application/x-www-form-urlencoded", true},
		{"empty body", ``, "application/json", true},
		{"malformed", `{"name":}`, "application/json", true},
		{"two objects", `{"name":"a"} {"name":"b"}`, "application/json", true},
		{"too large", `{"name":"` + strings.Repeat("x", maxBodyBytes) + `"}`, "application/json", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/categories", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			var in core.CategoryInput
			err := decodeJSON(httptest.NewRecorder(), req, &in)
			if tt.wantErr {
				if !errors.Is(err, core.ErrValidation) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if in.Name != "Food" {
				t.Fatalf("Name = %q", in.Name)
			}
		})
	}
}

func TestPathID(t *testing.T) {
	tests := []struct {
		raw     string
		want    int64
		wantErr bool
	}{
		{"1", 1, false},
		{"42", 42, false},
		{"0", 0, true},
		{"-3", 0, true},
		{"abc", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		req := mux.SetURLVars(httptest.NewRequest(http.MethodDelete, "/", nil), map[string]string{"id": tt.raw})
		got, err := pathID(req)
		if (err != nil) != tt.wantErr {
			t.Fatalf("pathID(%q) err = %v, wantErr %v", tt.raw, err, tt.wantErr)
		}
		if got != tt.want {
			t.Fatalf("pathID(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestQueryFilterAndSource(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/transactions", nil)
	if f, err := queryFilter(req); err != nil || f != core.FilterAll {
		t.Fatalf("default filter = %q, %v", f, err)
	}
	req = httptest.NewRequest(http.MethodGet, "/api/transactions?filter=projected", nil)
	if f, err := queryFilter(req); err != nil || f != core.FilterProjected {
		t.Fatalf("filter = %q, %v", f, err)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/transactions/1", nil)
	if _, ok, err := querySource(req); ok || err != nil {
		t.Fatalf("absent source: ok=%v err=%v", ok, err)
	}
	req = httptest.NewRequest(http.MethodDelete, "/api/transactions/1?source=Expense", nil)
	if s, ok, err := querySource(req); !ok || err != nil || s != core.ExpenseSource {
		t.Fatalf("source = %q ok=%v err=%v", s, ok, err)
	}
	req = httptest.NewRequest(http.MethodDelete, "/api/transactions/1?source=loan", nil)
	if _, _, err := querySource(req); !errors.Is(err, core.ErrInvalidSource) {
		t.Fatalf("expected invalid source, got %v", err)
	}
}
