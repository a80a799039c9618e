package crdt

import (
	"encoding/json"
	"fmt"
	"sort"
)

// GSet представляет grow-only set CRDT для тегов записи.
// Поддерживает только добавление; слияние — объединение множеств.
// Удаление тега моделируется отдельной операцией remove_tag на уровне
// журнала операций, а не вычитанием из множества (grow-only set не умеет
// забывать элементы).
type GSet map[string]struct{}

// NewGSet создает множество из перечисленных элементов.
func NewGSet(elements ...string) GSet {
	s := make(GSet, len(elements))
	for _, e := range elements {
		s[e] = struct{}{}
	}
	return s
}

// Clone создает копию множества.
func (s GSet) Clone() GSet {
	cloned := make(GSet, len(s))
	for e := range s {
		cloned[e] = struct{}{}
	}
	return cloned
}

// Add возвращает множество с добавленным элементом. Идемпотентна.
func (s GSet) Add(element string) GSet {
	next := s.Clone()
	next[element] = struct{}{}
	return next
}

// Remove возвращает множество без элемента.
// Не является операцией G-Set: вызывается только application-уровнем
// при применении явной операции remove_tag.
func (s GSet) Remove(element string) GSet {
	next := s.Clone()
	delete(next, element)
	return next
}

// Contains проверяет наличие элемента.
func (s GSet) Contains(element string) bool {
	_, ok := s[element]
	return ok
}

// Merge возвращает объединение двух множеств.
// Коммутативна, ассоциативна и идемпотентна.
func (s GSet) Merge(other GSet) GSet {
	merged := s.Clone()
	for e := range other {
		merged[e] = struct{}{}
	}
	return merged
}

// Elements возвращает элементы в отсортированном порядке.
// Сортировка нужна для детерминированной сериализации и сравнения в тестах.
func (s GSet) Elements() []string {
	elements := make([]string, 0, len(s))
	for e := range s {
		elements = append(elements, e)
	}
	sort.Strings(elements)
	return elements
}

// Size возвращает количество элементов.
func (s GSet) Size() int {
	return len(s)
}

// MarshalJSON сериализует множество как отсортированный JSON-массив.
func (s GSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Elements())
}

// UnmarshalJSON десериализует множество из JSON-массива строк.
func (s *GSet) UnmarshalJSON(data []byte) error {
	var elements []string
	if err := json.Unmarshal(data, &elements); err != nil {
		return fmt.Errorf("failed to unmarshal tag set: %w", err)
	}
	*s = NewGSet(elements...)
	return nil
}
