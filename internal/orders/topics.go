package orders

// TopicOrderEvents carries all order lifecycle events; the event type lives in
// the envelope and the x-event-type header.
const TopicOrderEvents = "order.events"

// Partition key = order_id so events for one order keep their order.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
