// Package cache stores JSON documents on disk with a TTL.
//
// lcaprommis uses it for data that is expensive to fetch from an openLCA
// database and rarely changes between runs:
//   - the unit index (every unit group and flow property)
//   - the provider index (every product and waste flow with its providers)
//
// Entries live in ~/.lcaprommis/cache/ by default, one file per key. Keys are
// SHA-256 hashes of the endpoint and the query, so two databases served on
// different ports never share entries.
package cache
