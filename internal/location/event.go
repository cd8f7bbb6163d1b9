package location

// EventDriverLocationUpdate is the only message type on the location channel.
const EventDriverLocationUpdate = "driverLocationUpdate"

// Event is one driver position for an order. It is never stored; the next
// event for the same order supersedes it.
type Event struct {
	OrderID string  `json:"orderId"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

type Position struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (e Event) Position() Position {
	return Position{Lat: e.Lat, Lng: e.Lng}
}

// Message is the frame written to websocket clients.
type Message struct {
	Event string `json:"event"`
	Data  Event  `json:"data"`
}

// Publisher receives location events. Implementations must not block.
type Publisher interface {
	Publish(Event) error
}
