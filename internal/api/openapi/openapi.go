// Пакет openapi — встроенный OpenAPI 3 контракт Scan Module:
// загрузка и проверка документа, отдача в JSON, валидация query/path
// параметров входящих запросов до обработчиков.
package openapi

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/legacy"

	apierrors "github.com/bigkaa/goartstore/scan-module/internal/api/errors"
)

//go:embed openapi.yaml
var contractYAML []byte

// Contract — загруженный и проверенный контракт.
type Contract struct {
	doc    *openapi3.T
	router routers.Router
	json   []byte
}

// Load разбирает встроенный контракт и строит маршрутизатор для валидации.
func Load(ctx context.Context) (*Contract, error) {
	doc, err := openapi3.NewLoader().LoadFromData(contractYAML)
	if err != nil {
		return nil, fmt.Errorf("разбор OpenAPI: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("проверка OpenAPI: %w", err)
	}

	router, err := legacy.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("маршрутизатор OpenAPI: %w", err)
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("сериализация OpenAPI: %w", err)
	}

	return &Contract{doc: doc, router: router, json: data}, nil
}

// Version возвращает info.version контракта.
func (c *Contract) Version() string {
	return c.doc.Info.Version
}

// Handler отдаёт контракт в JSON (GET /api/openapi.json).
func (c *Contract) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(c.json)
	})
}

// ValidationMiddleware проверяет параметры запроса по контракту.
// Тело не проверяется (multipart читается обработчиком потоково),
// аутентификация выполняется JWT middleware. Запросы вне контракта
// пропускаются без проверки.
func (c *Contract) ValidationMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	logger = logger.With(slog.String("component", "openapi_validator"))
	opts := &openapi3filter.Options{
		ExcludeRequestBody: true,
		AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route, pathParams, err := c.router.FindRoute(r)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			err = openapi3filter.ValidateRequest(r.Context(), &openapi3filter.RequestValidationInput{
				Request:    r,
				PathParams: pathParams,
				Route:      route,
				Options:    opts,
			})
			if err != nil {
				logger.Debug("Запрос не соответствует контракту",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				apierrors.ValidationError(w, validationMessage(err))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// validationMessage формирует сообщение клиенту без внутренностей валидатора.
func validationMessage(err error) string {
	var reqErr *openapi3filter.RequestError
	if errors.As(err, &reqErr) && reqErr.Parameter != nil {
		return fmt.Sprintf("Некорректный параметр %s: %s", reqErr.Parameter.Name, reqErr.Error())
	}
	return "Запрос не соответствует контракту API: " + err.Error()
}
