package service

import "errors"

// Ошибки сервисного слоя.
var (
	// ErrUnauthenticated — в запросе нет идентичности пользователя.
	ErrUnauthenticated = errors.New("пользователь не аутентифицирован")
	// ErrMissingPayload — загрузка без файла.
	ErrMissingPayload = errors.New("файл не передан")
	// ErrNotFound — файл не найден или принадлежит другому пользователю.
	ErrNotFound = errors.New("файл не найден")
	// ErrInvalidArgument — некорректный параметр запроса.
	ErrInvalidArgument = errors.New("некорректный параметр")
	// ErrStorage — сбой хранилища; клиенту отдаётся как внутренняя ошибка.
	ErrStorage = errors.New("ошибка хранилища")
)
