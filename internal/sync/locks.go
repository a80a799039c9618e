package sync

import "sync"

// entityLocks сериализует обмены по id сущности. Последовательность
// read-compare-apply-write координатора - это check-then-act гонка:
// без сериализации два конкурентных "Before" обмена могут оба решить,
// что они впереди, и молча потерять операции одного из акторов.
// Блокировка процессная; межпроцессные гонки закрывает compare-and-swap
// по часам в SaveEntity.
type entityLocks struct {
	locks map[string]*entityLock
	mu    sync.Mutex
}

type entityLock struct {
	mu   sync.Mutex
	refs int
}

func newEntityLocks() *entityLocks {
	return &entityLocks{
		locks: make(map[string]*entityLock),
	}
}

// lock захватывает блокировку сущности и возвращает функцию освобождения.
// Счетчик ссылок убирает запись из map, когда последний держатель ушел,
// чтобы map не рос неограниченно.
func (l *entityLocks) lock(entityID string) func() {
	l.mu.Lock()
	el, ok := l.locks[entityID]
	if !ok {
		el = &entityLock{}
		l.locks[entityID] = el
	}
	el.refs++
	l.mu.Unlock()

	el.mu.Lock()

	return func() {
		el.mu.Unlock()

		l.mu.Lock()
		el.refs--
		if el.refs == 0 {
			delete(l.locks, entityID)
		}
		l.mu.Unlock()
	}
}
