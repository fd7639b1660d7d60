package classifier

import (
	"bytes"
	_ "embed"
)

var (
	//go:embed model/forest.json
	defaultForest []byte
	//go:embed model/encoders.json
	defaultEncoders []byte
)

// Default returns the bundled model used when no artefacts are configured.
func Default() (*Model, error) {
	return Decode(bytes.NewReader(defaultForest), bytes.NewReader(defaultEncoders))
}
