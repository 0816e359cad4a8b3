package orders

const TopicOrderCompleted = "pos.order.completed"

// Partition key = order_id, supaya semua event 1 order maintain urutan.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
