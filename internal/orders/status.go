package orders

type OrderStatus string

const (
	StatusCompleted OrderStatus = "COMPLETED"
	StatusRefunded  OrderStatus = "REFUNDED"
)

type TableStatus string

const (
	TableAvailable TableStatus = "AVAILABLE"
	TableOccupied  TableStatus = "OCCUPIED"
	TableReserved  TableStatus = "RESERVED"
)

var validNext = map[TableStatus]map[TableStatus]bool{
	TableAvailable: {TableOccupied: true, TableReserved: true},
	TableOccupied:  {TableAvailable: true},
	TableReserved:  {TableOccupied: true, TableAvailable: true},
}

func CanTransition(from, to TableStatus) bool {
	if from == to {
		return true
	}
	return validNext[from][to]
}
