package service

import (
	"testing"
	"time"

	"github.com/bigkaa/goartstore/scan-module/internal/domain/model"
)

func cachedFile(id, name string) *model.FileWithScan {
	return &model.FileWithScan{FileRecord: model.FileRecord{ID: id, OriginalName: name, UserID: "u1"}}
}

// TestCacheService_GetSet проверяет базовые операции Get/Set.
func TestCacheService_GetSet(t *testing.T) {
	cache := NewCacheService(100, 5*time.Minute)

	if _, ok := cache.Get("u1", "file-1"); ok {
		t.Fatal("ожидался cache miss для нового ключа")
	}

	cache.Set("u1", cachedFile("file-1", "test.txt"))
	got, ok := cache.Get("u1", "file-1")
	if !ok {
		t.Fatal("ожидался cache hit после Set")
	}
	if got.OriginalName != "test.txt" {
		t.Errorf("OriginalName = %q, ожидался %q", got.OriginalName, "test.txt")
	}
}

// TestCacheService_ScopedByOwner проверяет, что запись не видна другому пользователю.
func TestCacheService_ScopedByOwner(t *testing.T) {
	cache := NewCacheService(100, 5*time.Minute)
	cache.Set("u1", cachedFile("file-1", "a.txt"))

	if _, ok := cache.Get("u2", "file-1"); ok {
		t.Fatal("запись u1 доступна u2 через кэш")
	}
}

// TestCacheService_Delete проверяет удаление из кэша (инвалидация).
func TestCacheService_Delete(t *testing.T) {
	cache := NewCacheService(100, 5*time.Minute)
	cache.Set("u1", cachedFile("delete-me", "a.txt"))

	cache.Delete("u1", "delete-me")

	if _, ok := cache.Get("u1", "delete-me"); ok {
		t.Fatal("ожидался cache miss после Delete")
	}
}

// TestCacheService_TTLExpiration проверяет автоматическое истечение TTL.
func TestCacheService_TTLExpiration(t *testing.T) {
	cache := NewCacheService(100, 50*time.Millisecond)
	cache.Set("u1", cachedFile("ttl-test", "a.txt"))

	if _, ok := cache.Get("u1", "ttl-test"); !ok {
		t.Fatal("ожидался cache hit сразу после Set")
	}

	time.Sleep(100 * time.Millisecond)

	if _, ok := cache.Get("u1", "ttl-test"); ok {
		t.Fatal("ожидался cache miss после истечения TTL")
	}
}

// TestCacheService_Eviction проверяет вытеснение при превышении maxSize.
func TestCacheService_Eviction(t *testing.T) {
	cache := NewCacheService(2, 5*time.Minute)

	cache.Set("u1", cachedFile("r1", "1"))
	cache.Set("u1", cachedFile("r2", "2"))
	cache.Set("u1", cachedFile("r3", "3"))

	if cache.Len() != 2 {
		t.Errorf("Len = %d, ожидался 2", cache.Len())
	}
	if _, ok := cache.Get("u1", "r1"); ok {
		t.Error("r1 не вытеснена")
	}
	if _, ok := cache.Get("u1", "r3"); !ok {
		t.Error("ожидался cache hit для r3")
	}
}
