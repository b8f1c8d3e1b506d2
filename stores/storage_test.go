package stores

import (
	"testing"
	"time"
)

func TestLockTTL(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Duration
	}{
		{"", 0},
		{"30s", 30 * time.Second},
		{"2m", 2 * time.Minute},
		{"soon", 0},
		{"-5s", 0},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Setenv("LOCK_TTL", tt.raw)
			if got := LockTTL(); got != tt.want {
				t.Errorf("LockTTL() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetStoreDefaultsToMemory(t *testing.T) {
	t.Setenv("STORAGE_TYPE", "")
	t.Setenv("LOCK_TTL", "")
	if GetStore() == nil {
		t.Fatal("Expected a store")
	}
}

func TestGetStoreSqlite(t *testing.T) {
	t.Setenv("STORAGE_TYPE", "sqlite")
	t.Setenv("DATA_SOURCE_NAME", t.TempDir()+"/test.db")
	if GetStore() == nil {
		t.Fatal("Expected a store")
	}
}

func TestGetAssetStoreDefaultsToFilesystem(t *testing.T) {
	t.Setenv("ASSET_STORAGE_TYPE", "")
	t.Setenv("LOCAL_STORAGE_PATH", t.TempDir())
	if GetAssetStore() == nil {
		t.Fatal("Expected an asset store")
	}
}
