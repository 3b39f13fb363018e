package events

const (
	TopicInventoryMovements = "inventory.movements"
	TopicItemStatus         = "order.item.status"
)

// Movements are keyed by SKU so every change of one variant keeps its order
// within a partition; status events are keyed by order item id.
func PartitionKey(id string) []byte { return []byte(id) }
