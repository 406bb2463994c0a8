package redis

import (
	"fmt"
	"strings"
)

const (
	// KeyPrefixObject is the prefix for stored object hashes
	KeyPrefixObject = "banners:object:"
	// KeyAllObjects is the key for the set of all object paths
	KeyAllObjects = "banners:objects:all"
	// KeyPrefixDocs is the prefix for document collection hashes
	KeyPrefixDocs = "banners:docs:"
	// KeyPrefixOrder is the prefix for a collection's creation-order zset
	KeyPrefixOrder = "banners:order:"
	// KeyCollections is the key for the set of known collections
	KeyCollections = "banners:collections"
)

// ObjectKey returns the Redis key for an object by path
func ObjectKey(path string) string {
	return KeyPrefixObject + path
}

// AllObjectsKey returns the key for the set of all object paths
func AllObjectsKey() string {
	return KeyAllObjects
}

// CollectionKey returns the Redis key holding a collection's documents
func CollectionKey(collection string) string {
	return KeyPrefixDocs + collection
}

// OrderKey returns the key of the zset scoring a collection's ids by
// first-save time
func OrderKey(collection string) string {
	return KeyPrefixOrder + collection
}

// ExtractObjectPath extracts the object path from a Redis key
func ExtractObjectPath(key string) (string, error) {
	if len(key) <= len(KeyPrefixObject) || !strings.HasPrefix(key, KeyPrefixObject) {
		return "", fmt.Errorf("invalid object key: %s", key)
	}
	return key[len(KeyPrefixObject):], nil
}
