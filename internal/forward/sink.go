package forward

import "github.com/roach88/kassa/internal/model"

// Sink accepts committed records for mirroring.
// Forward must not block and cannot fail; *Forwarder is the production Sink.
type Sink interface {
	Forward(entities ...model.Entity)
}

// Discard is a Sink that drops everything.
var Discard Sink = discard{}

type discard struct{}

func (discard) Forward(...model.Entity) {}
