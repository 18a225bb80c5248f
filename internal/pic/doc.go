// Package pic serves a single remote image through a disk-backed, TTL-bound
// cache. Two independent slots back it: the artifact bytes and a freshness
// marker holding the time of the last successful origin fetch. Cache.Get reads
// the marker, decides whether the artifact is stale, and either serves the
// stored bytes or fetches from the origin and writes both slots.
//
// Marker or artifact read failures are recovered locally (worst-case
// staleness, or a refetch). Origin and write failures are returned to the
// caller unless the serve-stale policy is selected.
package pic
