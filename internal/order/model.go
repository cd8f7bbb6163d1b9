package order

import (
	"time"
)

type Status string

const (
	StatusPreparing        Status = "Preparing"
	StatusWaitingForPickup Status = "Waiting for Pickup"
	StatusPickedUp         Status = "Picked Up"
	StatusInTransit        Status = "In Transit"
	StatusDelivered        Status = "Delivered"
)

// transitions lists, for every status, the statuses it may move to.
// Skipping forward is allowed; going back or staying put is not.
var transitions = map[Status][]Status{
	StatusPreparing:        {StatusWaitingForPickup, StatusPickedUp, StatusInTransit, StatusDelivered},
	StatusWaitingForPickup: {StatusPickedUp, StatusInTransit, StatusDelivered},
	StatusPickedUp:         {StatusInTransit, StatusDelivered},
	StatusInTransit:        {StatusDelivered},
	StatusDelivered:        nil,
}

// ParseStatus converts a wire value into a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", ErrInvalidStatus
	}
	return st, nil
}

func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

func (s Status) IsTerminal() bool {
	return s == StatusDelivered
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Item struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// Order is one delivery request. Optional fields are pointers so a persisted
// record keeps the difference between absent and empty.
type Order struct {
	ID              string    `json:"id"`
	CustomerName    string    `json:"customerName"`
	Items           string    `json:"items"`
	PickupTime      *string   `json:"pickupTime,omitempty"`
	CompletedTime   *string   `json:"completedTime,omitempty"`
	DeliveryAddress string    `json:"deliveryAddress"`
	Status          Status    `json:"status"`
	PickupLocation  *string   `json:"pickupLocation,omitempty"`
	DropLocation    *string   `json:"dropLocation,omitempty"`
	CustomerPhone   *string   `json:"customerPhone,omitempty"`
	ItemsList       []Item    `json:"itemsList,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Total is the sum of price x quantity over the structured item list.
func (o Order) Total() float64 {
	var total float64
	for _, it := range o.ItemsList {
		total += it.Price * float64(it.Quantity)
	}
	return total
}

func (o Order) clone() Order {
	c := o
	c.PickupTime = cloneString(o.PickupTime)
	c.CompletedTime = cloneString(o.CompletedTime)
	c.PickupLocation = cloneString(o.PickupLocation)
	c.DropLocation = cloneString(o.DropLocation)
	c.CustomerPhone = cloneString(o.CustomerPhone)
	if o.ItemsList != nil {
		c.ItemsList = make([]Item, len(o.ItemsList))
		copy(c.ItemsList, o.ItemsList)
	}
	return c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// NewOrderInput is what the order form submits.
type NewOrderInput struct {
	PickupLocation string `json:"pickupLocation"`
	DropLocation   string `json:"dropLocation"`
	CustomerName   string `json:"customerName"`
	CustomerPhone  string `json:"customerPhone"`
	Items          []Item `json:"items"`
}

// Snapshot is the persisted layout of the store.
type Snapshot struct {
	ActiveOrders    []Order `json:"activeOrders"`
	CompletedOrders []Order `json:"completedOrders"`
}

func (s *Snapshot) clone() *Snapshot {
	return &Snapshot{
		ActiveOrders:    cloneOrders(s.ActiveOrders),
		CompletedOrders: cloneOrders(s.CompletedOrders),
	}
}

func cloneOrders(in []Order) []Order {
	out := make([]Order, len(in))
	for i, o := range in {
		out[i] = o.clone()
	}
	return out
}

type View string

const (
	ViewAll       View = "all"
	ViewActive    View = "active"
	ViewCompleted View = "completed"
)

type SortDirection string

const (
	SortDesc SortDirection = "desc"
	SortAsc  SortDirection = "asc"
)

// ListFilter narrows and orders a listing. Zero value lists everything newest first.
type ListFilter struct {
	View   View
	Search string
	Sort   SortDirection
}

type Stats struct {
	Active    int `json:"active"`
	Completed int `json:"completed"`
	Total     int `json:"total"`
}
