package cmd

import (
	"github.com/logicsquare/konect-query-gateway/internal/store"
)

// newDemoStore builds an in-memory store seeded with a small sample of the
// KONECT entities, enough to exercise filtering, sorting, and expansion
// without a MongoDB deployment
func newDemoStore() *store.Memory {
	mem := store.NewMemory()

	mem.Seed("users",
		store.Document{"_id": "u1", "name": "Asha Rao", "email": "asha@example.com", "phone": "+91-9000000001"},
		store.Document{"_id": "u2", "name": "Ben Carter", "email": "ben@example.com", "phone": "+1-5550000002"},
	)

	mem.Seed("hosts",
		store.Document{"_id": "h1", "user": "u1", "rating": 4.8, "verified": true},
	)

	mem.Seed("vehicles",
		store.Document{"_id": "v1", "host": "h1", "make": "Toyota", "model": "Corolla", "year": 2019, "dailyRate": 45, "available": true},
		store.Document{"_id": "v2", "host": "h1", "make": "Tesla", "model": "Model 3", "year": 2023, "dailyRate": 90, "available": false},
	)

	mem.Seed("bookings",
		store.Document{"_id": "b1", "user": "u2", "vehicle": "v1", "host": "h1", "status": "confirmed", "bookingDate": "2026-08-20", "totalAmount": 135},
	)

	mem.Seed("payments",
		store.Document{"_id": "p1", "booking": "b1", "user": "u2", "amount": 135, "status": "captured"},
	)

	mem.Seed("reviews",
		store.Document{"_id": "r1", "user": "u2", "vehicle": "v1", "booking": "b1", "rating": 5, "comment": "Spotless car, easy pickup"},
	)

	return mem
}
