package tool

import "github.com/google/uuid"

// GenerateUUIDV7 returns a time-ordered id, so primary keys sort by creation.
func GenerateUUIDV7() string {
	return uuid.Must(uuid.NewV7()).String()
}

// IsUUID reports whether s parses as a UUID. Path ids are checked before
// they reach a uuid column, where postgres would reject the cast.
func IsUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
