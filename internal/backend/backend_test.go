package backend

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"fintrack/internal/config"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

func TestFromAppConfig(t *testing.T) {
	tests := []struct {
		name    string
		app     *config.Config
		want    BackendType
		wantErr string
	}{
		{
			name:    "nil config",
			app:     nil,
			wantErr: "app config is nil",
		},
		{
			name: "sqlite with memory exporter",
			app:  &config.Config{DataBackend: "sqlite", SQLiteDBPath: "x.db", ExportBackend: "memory"},
			want: SQLiteBackend,
		},
		{
			name:    "unknown backend",
			app:     &config.Config{DataBackend: "sheets", ExportBackend: "memory"},
			wantErr: "invalid backend type in config: sheets",
		},
		{
			name:    "unknown exporter",
			app:     &config.Config{DataBackend: "memory", ExportBackend: "csv"},
			wantErr: "invalid export backend in config: csv",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromAppConfig(tt.app)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("FromAppConfig() error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("FromAppConfig() error = %v", err)
			}
			if got.Type != tt.want {
				t.Errorf("Type = %s, want %s", got.Type, tt.want)
			}
		})
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend, Exporter: MemoryExporter}, false},
		{"sqlite without path", Config{Type: SQLiteBackend, Exporter: MemoryExporter}, true},
		{"google without spreadsheet", Config{Type: MemoryBackend, Exporter: GoogleExporter, GoogleServiceAccountJSON: "{}"}, true},
		{"google without credentials", Config{Type: MemoryBackend, Exporter: GoogleExporter, GoogleSpreadsheetID: "s"}, true},
		{"missing exporter", Config{Type: MemoryBackend}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.config.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFactoryCreate(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(log.Discard())

	t.Run("memory", func(t *testing.T) {
		res, err := f.Create(ctx, Config{Type: MemoryBackend, Exporter: MemoryExporter})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		defer res.Cleanup()
		if err := res.KV.Save(ctx, storage.KeyTheme, []byte(`"dark"`)); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		if res.Exporter == nil {
			t.Fatal("expected an exporter")
		}
	})

	t.Run("sqlite", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "data", "fintrack.db")
		res, err := f.Create(ctx, Config{Type: SQLiteBackend, SQLiteDBPath: path, Exporter: MemoryExporter})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		defer res.Cleanup()
		if err := res.KV.Save(ctx, storage.KeyTheme, []byte(`"light"`)); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		v, ok, err := res.KV.Load(ctx, storage.KeyTheme)
		if err != nil || !ok || string(v) != `"light"` {
			t.Fatalf("Load() = %q, %v, %v", v, ok, err)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		if _, err := f.Create(ctx, Config{Type: "sheets", Exporter: MemoryExporter}); err == nil {
			t.Fatal("expected error for unknown backend")
		}
	})
}
