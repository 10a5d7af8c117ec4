package kafka

import "strings"

// TopicPrefix is the standard prefix for all ecommerce Kafka topics.
const TopicPrefix = "ecommerce"

// Topic constructs a fully-qualified topic name, e.g. Topic("product",
// "updated") is "ecommerce.product.updated".
func Topic(domain, action string) string {
	return strings.Join([]string{TopicPrefix, domain, action}, ".")
}
