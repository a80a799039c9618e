package crdt

// LWWRegister представляет Last-Write-Wins регистр для скалярного поля.
// Хранит значение вместе с временной меткой и идентификатором актора,
// записавшего его. При слиянии выигрывает регистр с большим timestamp;
// при равных timestamp — с лексикографически большим actorID.
// Tie-break детерминирован и тотален: реплики, получившие операции в
// разном порядке, сходятся к одному значению.
type LWWRegister struct {
	Value     string `json:"value"`
	ActorID   string `json:"actor_id"`
	Timestamp int64  `json:"timestamp"`
}

// NewerThan сравнивает две пары (timestamp, actorID) по правилу LWW.
// Возвращает true, если первая пара строго новее второй.
// Используется и регистром, и координатором при упорядочивании операций.
func NewerThan(tsA int64, actorA string, tsB int64, actorB string) bool {
	if tsA != tsB {
		return tsA > tsB
	}
	// Timestamps равны - сравниваем акторов для детерминизма
	return actorA > actorB
}

// IsNewerThan сообщает, что регистр r новее регистра other.
func (r LWWRegister) IsNewerThan(other LWWRegister) bool {
	return NewerThan(r.Timestamp, r.ActorID, other.Timestamp, other.ActorID)
}

// Merge возвращает победивший регистр по правилу LWW.
// Коммутативна и идемпотентна: Merge(a, a) == a.
func (r LWWRegister) Merge(other LWWRegister) LWWRegister {
	if other.IsNewerThan(r) {
		return other
	}
	return r
}
