// Package persistence stores model attributes in a local JSON file.
//
// A FileStore implements model.Syncer. Records are keyed by model URL, so a
// model with URL root "/todos" and id "42" is stored under "/todos/42".
// Creating a record assigns a random UUID id. Numbers read back from the
// file decode as float64.
package persistence
