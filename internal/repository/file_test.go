package repository

import (
	"strings"
	"testing"
	"time"
)

func strPtr(s string) *string { return &s }

// --- Тесты predicates ---

// TestPredicates_BindNumbering проверяет, что плейсхолдеры идут по порядку аргументов.
func TestPredicates_BindNumbering(t *testing.T) {
	p := &predicates{}
	p.add("a = %s", 1)
	p.addRaw("b IS NULL")
	p.add("c = %s", "x")

	if got := p.where(); got != "WHERE a = $1 AND b IS NULL AND c = $2" {
		t.Errorf("where = %q", got)
	}
	if got := p.bind(10); got != "$3" {
		t.Errorf("bind = %q, ожидался $3", got)
	}
	if len(p.args) != 3 {
		t.Errorf("args count = %d, ожидался 3", len(p.args))
	}
}

// TestPredicates_RepeatedPlaceholder проверяет переиспользование одного параметра.
func TestPredicates_RepeatedPlaceholder(t *testing.T) {
	p := &predicates{}
	p.add("x = %s", 1)
	p.add("(a = %[1]s OR b = %[1]s)", 2)

	if got := p.where(); got != "WHERE x = $1 AND (a = $2 OR b = $2)" {
		t.Errorf("where = %q", got)
	}
	if len(p.args) != 2 {
		t.Errorf("args count = %d, ожидался 2", len(p.args))
	}
}

// TestPredicates_SnapshotIsolated проверяет, что snapshot не видит последующих bind.
func TestPredicates_SnapshotIsolated(t *testing.T) {
	p := &predicates{}
	p.add("a = %s", 1)
	snap := p.snapshot()
	p.bind(100)
	p.bind(0)

	if len(snap) != 1 {
		t.Errorf("snapshot count = %d, ожидался 1", len(snap))
	}
}

// TestPredicates_Empty проверяет пустой набор условий.
func TestPredicates_Empty(t *testing.T) {
	p := &predicates{}
	if got := p.where(); got != "" {
		t.Errorf("where = %q, ожидалась пустая строка", got)
	}
}

// --- Тесты buildListPredicates ---

// TestBuildListPredicates_OwnerOnly проверяет, что владелец добавляется всегда.
func TestBuildListPredicates_OwnerOnly(t *testing.T) {
	p := buildListPredicates(ListFilter{UserID: "u1"})

	if got := p.where(); got != "WHERE f.user_id = $1" {
		t.Errorf("where = %q", got)
	}
	if len(p.args) != 1 || p.args[0] != "u1" {
		t.Errorf("args = %v, ожидался [u1]", p.args)
	}
}

// TestBuildListPredicates_AllFilters проверяет согласованность условий и аргументов.
func TestBuildListPredicates_AllFilters(t *testing.T) {
	day := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	p := buildListPredicates(ListFilter{
		UserID:     "u1",
		FileID:     strPtr("8b0f0d9e-3c1a-4c55-9b1e-0d6f1b7c2a10"),
		Filename:   strPtr("Report"),
		MimeType:   strPtr("PDF"),
		Status:     strPtr("infected"),
		UploadedOn: &day,
	})

	where := p.where()
	for _, want := range []string{
		"f.user_id = $1",
		"f.id = $2",
		"(f.original_name ILIKE $3 OR f.filename ILIKE $3)",
		"f.mime_type ILIKE $4",
		"s.status = $5",
		"f.uploaded_at::date = $6",
	} {
		if !strings.Contains(where, want) {
			t.Errorf("where = %q, ожидалось содержание %q", where, want)
		}
	}
	if len(p.args) != 6 {
		t.Fatalf("args count = %d, ожидался 6", len(p.args))
	}
	if p.args[2] != "%Report%" {
		t.Errorf("args[2] = %v, ожидался '%%Report%%'", p.args[2])
	}
	if p.args[5] != day {
		t.Errorf("args[5] = %v, ожидался %v", p.args[5], day)
	}
}

// TestBuildListPredicates_Unscanned проверяет фильтр «нет записи сканирования».
func TestBuildListPredicates_Unscanned(t *testing.T) {
	p := buildListPredicates(ListFilter{UserID: "u1", Status: strPtr(StatusFilterUnscanned)})

	if !strings.Contains(p.where(), "s.status IS NULL") {
		t.Errorf("where = %q, ожидалось s.status IS NULL", p.where())
	}
	if len(p.args) != 1 {
		t.Errorf("args count = %d, ожидался 1 (unscanned без параметра)", len(p.args))
	}
}

// TestBuildListPredicates_StatusAll проверяет, что all не добавляет условия.
func TestBuildListPredicates_StatusAll(t *testing.T) {
	p := buildListPredicates(ListFilter{UserID: "u1", Status: strPtr(StatusFilterAll)})

	if strings.Contains(p.where(), "status") {
		t.Errorf("where = %q, статус all не должен фильтровать", p.where())
	}
}

// TestBuildListPredicates_EmptyStrings проверяет, что пустые строки игнорируются.
func TestBuildListPredicates_EmptyStrings(t *testing.T) {
	p := buildListPredicates(ListFilter{
		UserID:   "u1",
		FileID:   strPtr(""),
		Filename: strPtr(""),
		MimeType: strPtr(""),
		Status:   strPtr(""),
	})

	if len(p.clauses) != 1 {
		t.Errorf("clauses = %v, ожидалось только условие владельца", p.clauses)
	}
}

// TestEscapeLike проверяет экранирование спецсимволов LIKE.
func TestEscapeLike(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"100%", `100\%`},
		{"a_b", `a\_b`},
		{`c:\tmp`, `c:\\tmp`},
		{"файл", "файл"},
	}
	for _, tt := range tests {
		if got := escapeLike(tt.in); got != tt.want {
			t.Errorf("escapeLike(%q) = %q, ожидался %q", tt.in, got, tt.want)
		}
	}
}
