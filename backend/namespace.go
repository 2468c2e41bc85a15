package backend

// NamespacedKey combines a bucket and key for flat keyspaces.
// Returns "bucket:key" format, or just "key" if bucket is empty.
func NamespacedKey(bucket, key string) string {
	if bucket == "" {
		return key
	}
	return bucket + ":" + key
}
