// predicates.go — построитель WHERE-условий с позиционными параметрами.
// Номер плейсхолдера берётся из длины списка аргументов в момент привязки,
// поэтому условия и параметры не могут разойтись.
package repository

import (
	"fmt"
	"strconv"
	"strings"
)

// predicates — набор условий, объединяемых через AND, и их аргументы.
type predicates struct {
	clauses []string
	args    []any
}

// bind добавляет аргумент и возвращает его плейсхолдер ($1, $2, ...).
func (p *predicates) bind(arg any) string {
	p.args = append(p.args, arg)
	return "$" + strconv.Itoa(len(p.args))
}

// add добавляет условие; %s (или %[1]s, если параметр нужен дважды)
// в format заменяется плейсхолдером arg.
func (p *predicates) add(format string, arg any) {
	p.clauses = append(p.clauses, fmt.Sprintf(format, p.bind(arg)))
}

// addRaw добавляет условие без параметров.
func (p *predicates) addRaw(clause string) {
	p.clauses = append(p.clauses, clause)
}

// where возвращает "WHERE a AND b ..." или пустую строку.
func (p *predicates) where() string {
	if len(p.clauses) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(p.clauses, " AND ")
}

// snapshot возвращает копию текущих аргументов.
// Нужна, чтобы COUNT-запрос не получил аргументы LIMIT/OFFSET.
func (p *predicates) snapshot() []any {
	out := make([]any, len(p.args))
	copy(out, p.args)
	return out
}
