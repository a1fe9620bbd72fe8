package rediskey

import "fmt"

// Key prefixes shared by every process writing to the same Redis.
const (
	SequencePrefix = "seq"
)

func NamespaceKey(namespace, key string) string {
	return fmt.Sprintf("%s:%s", namespace, key)
}

// BuildSequenceKey returns "seq:{prefix}:{day}".
func BuildSequenceKey(prefix, day string) string {
	return NamespaceKey(SequencePrefix, NamespaceKey(prefix, day))
}
