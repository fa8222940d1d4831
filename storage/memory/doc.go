// Package memory provides in-process implementations of the storage
// interfaces: a TTL cache, an event log and a static catalog that can be
// loaded from a JSON file. They back the CLI when no database is configured
// and stand in for real backends in tests.
package memory
