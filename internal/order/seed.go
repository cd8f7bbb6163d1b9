package order

import (
	"time"

	"superrider-be/internal/utils"
)

type seedRow struct {
	id, customer, items, timeText, address string
	status                                 Status
	createdAt                              string
}

var demoActive = []seedRow{
	{"ORD-001", "John Doe", "2x Pizza, 1x Coke", "2:30 PM", "123 Main St", StatusInTransit, "2024-06-26T14:30:00Z"},
	{"ORD-002", "Jane Smith", "1x Burger Combo", "3:15 PM", "456 Oak Ave", StatusPickedUp, "2024-06-26T15:15:00Z"},
	{"ORD-005", "Emily Carter", "2x Pasta, 1x Garlic Bread", "4:00 PM", "987 Maple Rd", StatusPreparing, "2024-06-26T16:00:00Z"},
	{"ORD-006", "David Lee", "3x Sushi Rolls", "4:30 PM", "654 Cedar Blvd", StatusInTransit, "2024-06-26T16:30:00Z"},
	{"ORD-007", "Priya Patel", "1x Veggie Wrap, 2x Juice", "5:00 PM", "321 Willow Ln", StatusPickedUp, "2024-06-26T17:00:00Z"},
	{"ORD-008", "Carlos Gomez", "2x Tacos, 1x Lemonade", "5:20 PM", "852 Birch St", StatusPreparing, "2024-06-26T17:20:00Z"},
}

var demoCompleted = []seedRow{
	{"ORD-003", "Mike Johnson", "3x Sandwiches", "Yesterday 6:45 PM", "789 Pine St", StatusDelivered, "2024-06-25T18:00:00Z"},
	{"ORD-004", "Sarah Wilson", "1x Salad, 2x Drinks", "Yesterday 5:20 PM", "321 Elm St", StatusDelivered, "2024-06-25T16:30:00Z"},
	{"ORD-009", "Olivia Brown", "2x Burritos, 1x Soda", "Today 1:10 PM", "555 Spruce Ave", StatusDelivered, "2024-06-26T12:50:00Z"},
	{"ORD-010", "Liam Martinez", "1x Pizza, 2x Garlic Knots", "Today 12:30 PM", "222 Aspen Dr", StatusDelivered, "2024-06-26T11:45:00Z"},
	{"ORD-011", "Sophia Kim", "2x Noodles, 1x Spring Roll", "Today 11:45 AM", "1010 Willow St", StatusDelivered, "2024-06-26T11:00:00Z"},
	{"ORD-012", "Noah Singh", "1x Chicken Wrap, 1x Juice", "Today 10:20 AM", "3030 Maple Ave", StatusDelivered, "2024-06-26T09:45:00Z"},
}

// DemoSeed returns the fixed demo data set. Active rows carry a pickup time,
// completed rows a completion time.
func DemoSeed() *Snapshot {
	snap := &Snapshot{
		ActiveOrders:    make([]Order, 0, len(demoActive)),
		CompletedOrders: make([]Order, 0, len(demoCompleted)),
	}
	for _, r := range demoActive {
		o := r.order()
		o.PickupTime = utils.StrPtr(r.timeText)
		snap.ActiveOrders = append(snap.ActiveOrders, o)
	}
	for _, r := range demoCompleted {
		o := r.order()
		o.CompletedTime = utils.StrPtr(r.timeText)
		snap.CompletedOrders = append(snap.CompletedOrders, o)
	}
	return snap
}

func (r seedRow) order() Order {
	created, err := time.Parse(time.RFC3339, r.createdAt)
	if err != nil {
		panic(err)
	}
	return Order{
		ID:              r.id,
		CustomerName:    r.customer,
		Items:           r.items,
		DeliveryAddress: r.address,
		DropLocation:    utils.StrPtr(r.address),
		Status:          r.status,
		CreatedAt:       created,
	}
}
