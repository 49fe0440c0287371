package dataset

import (
	_ "embed"

	"github.com/rs/zerolog"
)

//go:embed data/countries.json
var embedded []byte

// Embedded returns the dataset bundled with the binary.
func Embedded(logger zerolog.Logger) (*Dataset, error) {
	return Load(embedded, logger)
}

// EmbeddedJSON exposes the bundled document, e.g. for seeding a database.
func EmbeddedJSON() []byte { return embedded }
