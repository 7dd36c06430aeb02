package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	ports "cajas/internal/sheets"

	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return newWithService(svc, "sheet-id", "FORMATTED_VALUE")
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{})
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	_, err := New(context.Background(), Config{SpreadsheetID: "x"})
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNew_InvalidValueRender(t *testing.T) {
	_, err := New(context.Background(), Config{SpreadsheetID: "x", ValueRender: "pretty"})
	if err == nil || !strings.Contains(err.Error(), "GOOGLE_VALUE_RENDER") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadCredentialsFromFile(t *testing.T) {
	path := t.TempDir() + "/sa.json"
	if err := os.WriteFile(path, []byte(`{"type":"service_account"}`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	b, err := loadCredentials(context.Background(), Config{CredentialsFile: path})
	if err != nil || !strings.Contains(string(b), "service_account") {
		t.Fatalf("unexpected credentials %q err=%v", b, err)
	}
	b, err = loadCredentials(context.Background(), Config{CredentialsJSON: `{"inline":true}`, CredentialsFile: path})
	if err != nil || string(b) != `{"inline":true}` {
		t.Fatalf("inline JSON should win, got %q err=%v", b, err)
	}
}

func TestReadTable(t *testing.T) {
	var gotPath, gotRender string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotRender = r.URL.Query().Get("valueRenderOption")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"range":"'Movimientos Repuestos'!A1:C3","majorDimension":"ROWS","values":[
			["Periodo","Proveedor","Monto"],
			["1","X","1.000,50"],
			["2","Y"]
		]}`)
	})
	tbl, err := c.ReadTable(context.Background(), "Movimientos Repuestos")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(gotPath, "/v4/spreadsheets/sheet-id/values/") {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotRender != "FORMATTED_VALUE" {
		t.Fatalf("unexpected render option %q", gotRender)
	}
	if len(tbl.Columns) != 3 || len(tbl.Records) != 2 {
		t.Fatalf("unexpected table %+v", tbl)
	}
	if tbl.Records[0]["Monto"] != "1.000,50" || tbl.Records[1]["Monto"] != nil {
		t.Fatalf("unexpected records %+v", tbl.Records)
	}
}

func TestReadTable_SheetNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"code":400,"message":"Unable to parse range: 'Nope'","status":"INVALID_ARGUMENT"}}`)
	})
	_, err := c.ReadTable(context.Background(), "Nope")
	if !errors.Is(err, ports.ErrSheetNotFound) {
		t.Fatalf("expected ErrSheetNotFound, got %v", err)
	}
}

func TestListSheets(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"sheets":[{"properties":{"title":"Movimientos Repuestos"}},{"properties":{"title":"Resumen Repuestos"}}]}`)
	})
	names, err := c.ListSheets(context.Background())
	if err != nil || len(names) != 2 || names[1] != "Resumen Repuestos" {
		t.Fatalf("unexpected sheets %v err=%v", names, err)
	}
}

func TestNilService(t *testing.T) {
	c := &Client{spreadsheetID: "x"}
	if _, err := c.ReadTable(context.Background(), "S"); err == nil {
		t.Fatal("expected error with nil service")
	}
}

func TestQuoteSheet(t *testing.T) {
	cases := map[string]string{
		"Resumen Petróleo": "'Resumen Petróleo'",
		"Bob's":            "'Bob''s'",
	}
	for in, want := range cases {
		if got := quoteSheet(in); got != want {
			t.Errorf("quoteSheet(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseValueRender(t *testing.T) {
	if v, err := parseValueRender(""); err != nil || v != "FORMATTED_VALUE" {
		t.Fatalf("unexpected default %q err=%v", v, err)
	}
	if v, err := parseValueRender("unformatted_value"); err != nil || v != "UNFORMATTED_VALUE" {
		t.Fatalf("unexpected value %q err=%v", v, err)
	}
}

func TestClassifyError(t *testing.T) {
	other := classifyError("S", &googleapi.Error{Code: 403, Message: "forbidden"})
	if errors.Is(other, ports.ErrSheetNotFound) {
		t.Fatalf("403 should not map to ErrSheetNotFound")
	}
	var gerr *googleapi.Error
	if !errors.As(other, &gerr) {
		t.Fatalf("original error should stay wrapped: %v", other)
	}
}
