package utils

import "github.com/google/uuid"

// UUIDGenerator produces client-side identifiers for vault items. UUIDv7 is
// preferred because its timestamp prefix keeps sqlite index pages warm for
// recently created items; v4 is the fallback when the monotonic clock source
// fails.
type UUIDGenerator struct {
}

func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{}
}

func (g *UUIDGenerator) Generate() string {
	v7, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}

	return v7.String()
}
