package vehicle

// Class represents the vehicle class used for pool capacity and pricing.
type Class string

const (
	ClassSedan Class = "sedan"
	ClassSUV   Class = "suv"
	ClassVan   Class = "van"
)

// Capacity is the seat and luggage ceiling of a vehicle class.
type Capacity struct {
	MaxSeats   int `json:"max_seats"`
	MaxLuggage int `json:"max_luggage"`
}

// classes is ordered smallest first; SmallestFor relies on that order.
var classes = []struct {
	class    Class
	capacity Capacity
}{
	{ClassSedan, Capacity{MaxSeats: 4, MaxLuggage: 3}},
	{ClassSUV, Capacity{MaxSeats: 6, MaxLuggage: 5}},
	{ClassVan, Capacity{MaxSeats: 8, MaxLuggage: 8}},
}

// CapacityOf returns the capacity of a class. Unknown classes report false.
func CapacityOf(class Class) (Capacity, bool) {
	for _, c := range classes {
		if c.class == class {
			return c.capacity, true
		}
	}
	return Capacity{}, false
}

// IsValid reports whether class names a known vehicle class.
func IsValid(class Class) bool {
	_, ok := CapacityOf(class)
	return ok
}

// SmallestFor selects the smallest class whose capacity dominates both
// totals. It reports false when not even a van fits.
func SmallestFor(totalSeats, totalLuggage int) (Class, bool) {
	for _, c := range classes {
		if totalSeats <= c.capacity.MaxSeats && totalLuggage <= c.capacity.MaxLuggage {
			return c.class, true
		}
	}
	return "", false
}
