package orders

import "strconv"

const TopicOrderPlaced = "order.placed"

// PartitionKey keeps every event of one company on the same partition.
func PartitionKey(companyID int64) []byte { return []byte(formatID(companyID)) }

func formatID(id int64) string { return strconv.FormatInt(id, 10) }
