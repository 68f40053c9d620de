package backend

import (
	"context"
	"path/filepath"
	"testing"

	"budgetly/internal/config"
)

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil, nil); err == nil {
		t.Error("expected error for nil config")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "sheets"}, nil); err == nil {
		t.Error("expected error for unknown backend")
	}

	cfg, err := FromAppConfig(&config.Config{DataBackend: "sqlite", SQLiteDBPath: "x.db"}, []string{"Rent"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Type != SQLiteBackend || cfg.SQLiteDBPath != "x.db" || len(cfg.CategorySeed) != 1 {
		t.Errorf("unexpected backend config: %+v", cfg)
	}
}

func TestCreateBackend(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(nil)

	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend, CategorySeed: []string{"Rent"}}, false},
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(t.TempDir(), "b.db"), CategorySeed: []string{"Rent"}}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"unknown", Config{Type: "sheets"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.CreateBackend(ctx, tt.config)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateBackend() error = %v", err)
			}
			defer res.Close()

			if err := res.Store.Ping(ctx); err != nil {
				t.Errorf("Ping() error = %v", err)
			}
			cats, err := res.Store.Categories("alice").ListCategories(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if len(cats) != 1 || cats[0].Name != "Rent" {
				t.Errorf("expected seeded category, got %+v", cats)
			}
		})
	}
}
