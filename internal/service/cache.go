// Пакет service — бизнес-логика Scan Module.
// CacheService — LRU-кэш карточек файлов (файл + вердикт) с TTL.
// Обёртка над hashicorp/golang-lru/v2/expirable.
package service

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/goartstore/scan-module/internal/domain/model"
)

// Prometheus-метрики кэша.
var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sm_cache_hits_total",
		Help: "Общее количество попаданий в LRU-кэш карточек файлов.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sm_cache_misses_total",
		Help: "Общее количество промахов LRU-кэша карточек файлов.",
	})
)

// CacheService — LRU-кэш с автоматическим TTL, in-memory на экземпляр.
// Ключ включает владельца: запись одного пользователя не видна другому.
type CacheService struct {
	cache *expirable.LRU[string, *model.FileWithScan]
}

// NewCacheService создаёт LRU-кэш с указанным максимальным размером и TTL.
func NewCacheService(maxSize int, ttl time.Duration) *CacheService {
	cache := expirable.NewLRU[string, *model.FileWithScan](maxSize, nil, ttl)
	return &CacheService{cache: cache}
}

// cacheKey — ключ кэша для пары (пользователь, файл).
func cacheKey(userID, fileID string) string {
	return userID + ":" + fileID
}

// Get возвращает карточку файла пользователя.
// Обновляет Prometheus-метрики hit/miss.
func (c *CacheService) Get(userID, fileID string) (*model.FileWithScan, bool) {
	val, ok := c.cache.Get(cacheKey(userID, fileID))
	if ok {
		cacheHitsTotal.Inc()
		return val, true
	}
	cacheMissesTotal.Inc()
	return nil, false
}

// Set добавляет или обновляет запись в кэше.
func (c *CacheService) Set(userID string, record *model.FileWithScan) {
	c.cache.Add(cacheKey(userID, record.ID), record)
}

// Delete удаляет запись из кэша (инвалидация при удалении файла).
func (c *CacheService) Delete(userID, fileID string) {
	c.cache.Remove(cacheKey(userID, fileID))
}

// Len возвращает количество записей.
func (c *CacheService) Len() int {
	return c.cache.Len()
}
