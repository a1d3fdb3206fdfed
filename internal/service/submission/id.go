package submission

import (
	"strings"

	"github.com/google/uuid"
)

const idPrefix = "sub-"

// Generator produces submission IDs.
type Generator struct {
	newUUID func() uuid.UUID
}

func New() *Generator {
	return &Generator{newUUID: uuid.New}
}

// Next returns a new random submission ID.
func (g *Generator) Next() string {
	return idPrefix + g.newUUID().String()
}

// Valid reports whether id has the shape produced by Next.
func Valid(id string) bool {
	if !strings.HasPrefix(id, idPrefix) {
		return false
	}
	_, err := uuid.Parse(strings.TrimPrefix(id, idPrefix))
	return err == nil
}
