package google

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// fakeSheets serves the subset of the Sheets values API used by Client.
type fakeSheets struct {
	mu       sync.Mutex
	appended [][]any
	ranges   []string
	options  []string
	rows     [][]any
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":append"):
		var vr gsheet.ValueRange
		if err := json.NewDecoder(r.Body).Decode(&vr); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.appended = append(f.appended, vr.Values...)
		f.ranges = append(f.ranges, r.URL.Path)
		f.options = append(f.options, r.URL.Query().Get("valueInputOption"))
		json.NewEncoder(w).Encode(map[string]any{
			"updates": map[string]any{"updatedRange": "'2024 Transactions'!A2:F2"},
		})
	case r.Method == http.MethodGet && strings.Contains(r.URL.Path, "/values/"):
		json.NewEncoder(w).Encode(map[string]any{"values": f.rows})
	default:
		http.NotFound(w, r)
	}
}

func newTestClient(t *testing.T, fake *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return newClient(svc, Config{SpreadsheetID: "sheet-1"}, nil)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"missing id", Config{ServiceAccountJSON: "{}"}, true},
		{"missing credentials", Config{SpreadsheetID: "x"}, true},
		{"inline json", Config{SpreadsheetID: "x", ServiceAccountJSON: "{}"}, false},
		{"file", Config{SpreadsheetID: "x", ServiceAccountFile: "/tmp/sa.json"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewMissingCredentialsFile(t *testing.T) {
	_, err := New(context.Background(), Config{SpreadsheetID: "x", ServiceAccountFile: "/does/not/exist.json"}, nil)
	if err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Fatalf("expected file read error, got %v", err)
	}
}

func TestClientExport(t *testing.T) {
	fake := &fakeSheets{}
	c := newTestClient(t, fake)

	tx := core.Transaction{
		ID:          "t1",
		Type:        core.Expense,
		Category:    "food",
		Amount:      decimal.RequireFromString("12.5"),
		Description: "=HYPERLINK(\"evil\")",
		Date:        core.NewDate(2024, 3, 1),
	}
	ref, err := c.Export(context.Background(), tx)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if ref != "'2024 Transactions'!A2:F2" {
		t.Errorf("ref = %q", ref)
	}

	if len(fake.appended) != 1 {
		t.Fatalf("appended %d rows", len(fake.appended))
	}
	row := fake.appended[0]
	want := []string{"2024-03-01", "expense", "food", "'=HYPERLINK(\"evil\")", "12.50", "t1"}
	for i, w := range want {
		if row[i] != w {
			t.Errorf("cell %d = %v, want %v", i, row[i], w)
		}
	}
	if fake.options[0] != "USER_ENTERED" {
		t.Errorf("valueInputOption = %q", fake.options[0])
	}
	if !strings.Contains(fake.ranges[0], "2024 Transactions") {
		t.Errorf("unexpected range path %q", fake.ranges[0])
	}
}

func TestClientExportValidates(t *testing.T) {
	c := &Client{spreadsheetID: "test"}
	_, err := c.Export(context.Background(), core.Transaction{Type: "bogus"})
	if !errors.Is(err, core.ErrInvalidType) {
		t.Fatalf("expected ErrInvalidType, got %v", err)
	}
}

func TestClientListExported(t *testing.T) {
	fake := &fakeSheets{rows: [][]any{
		{"Date", "Type", "Category", "Description", "Amount", "ID"},
		{"2024-03-01", "expense", "food", "lunch", 12.5, "t1"},
		{"2024-04-02", "income", "salary", "pay", 3000, "t2"},
		{"2024-03-09", "income", "gift", "birthday", "50", "t3"},
		{"short", "row"},
	}}
	c := newTestClient(t, fake)

	got, err := c.ListExported(context.Background(), 2024, 3)
	if err != nil {
		t.Fatalf("ListExported() error = %v", err)
	}
	if len(got) != 2 || got[0].ID != "t1" || got[1].ID != "t3" {
		t.Fatalf("unexpected rows %+v", got)
	}
	if !got[0].Amount.Equal(decimal.RequireFromString("12.5")) {
		t.Errorf("amount = %s", got[0].Amount)
	}

	if _, err := c.ListExported(context.Background(), 2024, 0); err == nil {
		t.Fatal("expected invalid month error")
	}
}

func TestYearPrefixedName(t *testing.T) {
	tests := []struct {
		base string
		year int
		want string
	}{
		{"Transactions", 2024, "2024 Transactions"},
		{"2023 Transactions", 2024, "2023 Transactions"},
		{"  Ledger ", 2025, "2025 Ledger"},
		{"", 2024, ""},
	}
	for _, tt := range tests {
		if got := yearPrefixedName(tt.base, tt.year); got != tt.want {
			t.Errorf("yearPrefixedName(%q, %d) = %q, want %q", tt.base, tt.year, got, tt.want)
		}
	}
}

func TestSanitizeCell(t *testing.T) {
	tests := map[string]string{
		"":          "",
		"groceries": "groceries",
		"=SUM(A1)":  "'=SUM(A1)",
		"+1":        "'+1",
		"-5":        "'-5",
		"@me":       "'@me",
	}
	for in, want := range tests {
		if got := sanitizeCell(in); got != want {
			t.Errorf("sanitizeCell(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestA1Range(t *testing.T) {
	if got := a1Range("2024 Bob's", "A:F"); got != "'2024 Bob''s'!A:F" {
		t.Errorf("a1Range() = %q", got)
	}
}
