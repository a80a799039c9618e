package crdt

// VectorClock представляет векторные часы: отображение
// идентификатора актора в монотонно возрастающий счетчик.
// Отсутствующий актор эквивалентен счетчику 0.
// Все операции чистые: входные часы никогда не мутируются.
type VectorClock map[string]int64

// Ordering результат причинно-следственного сравнения двух векторных часов.
type Ordering int

const (
	// OrderingConcurrent ни одни часы не доминируют над другими
	// (включая вырожденный случай полного равенства).
	OrderingConcurrent Ordering = iota
	// OrderingBefore первые часы причинно предшествуют вторым.
	OrderingBefore
	// OrderingAfter первые часы причинно следуют за вторыми.
	OrderingAfter
)

// String возвращает wire-представление результата сравнения.
func (o Ordering) String() string {
	switch o {
	case OrderingBefore:
		return "before"
	case OrderingAfter:
		return "after"
	case OrderingConcurrent:
		return "concurrent"
	default:
		return "unknown"
	}
}

// NewVectorClock создает пустые векторные часы.
func NewVectorClock() VectorClock {
	return make(VectorClock)
}

// Clone создает глубокую копию часов.
// nil часы копируются в пустые, чтобы вызывающему коду
// не приходилось проверять инициализацию.
func (vc VectorClock) Clone() VectorClock {
	cloned := make(VectorClock, len(vc))
	for actor, counter := range vc {
		cloned[actor] = counter
	}
	return cloned
}

// Increment возвращает новые часы, в которых счетчик актора увеличен на 1.
// Отсутствующий актор трактуется как 0.
func (vc VectorClock) Increment(actorID string) VectorClock {
	next := vc.Clone()
	next[actorID]++
	return next
}

// Merge возвращает поэлементный максимум двух часов по объединению ключей.
// Операция коммутативна, ассоциативна и идемпотентна: merge(a, a) == a.
func (vc VectorClock) Merge(other VectorClock) VectorClock {
	merged := vc.Clone()
	for actor, counter := range other {
		if counter > merged[actor] {
			merged[actor] = counter
		}
	}
	return merged
}

// Dominates сообщает, что vc >= other по каждому актору.
// Используется запросом "пропущенных операций": операция считается
// увиденной клиентом, если часы клиента доминируют над часами операции.
func (vc VectorClock) Dominates(other VectorClock) bool {
	for actor, counter := range other {
		if vc[actor] < counter {
			return false
		}
	}
	return true
}

// Equal сообщает, что часы поэлементно равны (с учетом неявных нулей).
func (vc VectorClock) Equal(other VectorClock) bool {
	return vc.Dominates(other) && other.Dominates(vc)
}

// Compare выполняет причинно-следственное сравнение двух часов:
//   - OrderingAfter:  vc доминирует и хотя бы по одному актору строго больше
//   - OrderingBefore: симметричный случай
//   - OrderingConcurrent: ни одни часы не доминируют, либо часы равны
//
// Равные часы намеренно классифицируются как Concurrent: для
// координатора это вырожденный случай "нечего сливать", см. Merge.
// Контракт с Merge: если Compare(a, b) == OrderingBefore,
// то Merge(a, b) поэлементно равен b.
func (vc VectorClock) Compare(other VectorClock) Ordering {
	vcDominates := vc.Dominates(other)
	otherDominates := other.Dominates(vc)

	switch {
	case vcDominates && !otherDominates:
		return OrderingAfter
	case otherDominates && !vcDominates:
		return OrderingBefore
	default:
		// Либо взаимное доминирование (равенство), либо конфликт.
		return OrderingConcurrent
	}
}
