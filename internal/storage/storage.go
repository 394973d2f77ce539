package storage

import "rangeswap/internal/model"

// Journal is a sink for pool events.
type Journal interface {
	AppendEvents(events []model.Event) error
}
