// Package cache defines the durable key/value store behind the single-slot
// caches. A key is a path-like identifier (for example "pic.jpeg"); the file
// backend resolves it under StoragePath and writes through temp file + rename,
// while the redis and leveldb backends use it verbatim as the record key.
// Slot wraps one fixed key so callers that own exactly one record never see
// the key space.
package cache
