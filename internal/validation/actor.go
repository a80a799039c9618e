package validation

import (
	"fmt"
	"regexp"

	"github.com/iudanet/vidsync/internal/crdt"
)

// ActorIDPattern определяет допустимый формат идентификатора актора.
// Латинские буквы, цифры, дефис и нижнее подчеркивание; длина 1-64.
// Покрывает UUID, имена сервисов и идентификаторы сессий.
var ActorIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

const (
	// MaxTagLen максимальная длина одного тега
	MaxTagLen = 64
	// MaxTitleLen максимальная длина названия
	MaxTitleLen = 256
)

// ValidateActorID проверяет идентификатор актора.
// Каждый актор занимает отдельный слот векторных часов, поэтому мусорный
// идентификатор - это навсегда засоренные часы записи.
func ValidateActorID(actorID string) error {
	if actorID == "" {
		return fmt.Errorf("actor id cannot be empty")
	}

	if !ActorIDPattern.MatchString(actorID) {
		return fmt.Errorf("actor id can only contain letters, numbers, hyphens and underscores (max 64 chars)")
	}

	return nil
}

// ValidateVectorClock проверяет, что часы синтаксически корректны:
// счетчики неотрицательны и слоты именованы валидными акторами.
// nil часы допустимы и означают пустые часы (все счетчики 0).
func ValidateVectorClock(clock crdt.VectorClock) error {
	for actor, counter := range clock {
		if counter < 0 {
			return fmt.Errorf("negative counter %d for actor %q", counter, actor)
		}
		if err := ValidateActorID(actor); err != nil {
			return fmt.Errorf("invalid clock slot: %w", err)
		}
	}

	return nil
}

// ValidateTag проверяет значение тега.
func ValidateTag(tag string) error {
	if tag == "" {
		return fmt.Errorf("tag cannot be empty")
	}

	if len(tag) > MaxTagLen {
		return fmt.Errorf("tag must not exceed %d characters", MaxTagLen)
	}

	return nil
}

// ValidateTitle проверяет название при создании записи.
func ValidateTitle(title string) error {
	if title == "" {
		return fmt.Errorf("title cannot be empty")
	}

	if len(title) > MaxTitleLen {
		return fmt.Errorf("title must not exceed %d characters", MaxTitleLen)
	}

	return nil
}
