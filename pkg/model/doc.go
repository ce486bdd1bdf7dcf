// Package model implements the attribute store behind an entity.
//
// A Model holds a mutable bag of keyed values, tracks which values changed
// across a batch update, and notifies observers through the events.Bus it
// embeds.
//
// # State
//
// Three maps describe the state of a model at any instant:
//
//	attributes  current values
//	previous    values as of the end of the last notification cycle
//	changed     keys whose current value differs from previous, with the new value
//
// Two key sets describe owed notifications:
//
//	silent   keys mutated with Silent since the last cycle
//	pending  keys owed a bulk "changed" event in the active cycle
//
// # Events
//
// Every non-silent Set runs a notification cycle:
//
//	changed:<key>  (model, newValue, SetOptions)   once per changed key
//	changed        (model, SetOptions)             once per drain pass
//
// Silent mutations are reported by the next non-silent cycle. A handler that
// calls Set while a cycle is active joins that cycle: its per-attribute events
// fire immediately and the outer drain loop reports the new pending keys
// before the outermost Set returns. The drain loop has no iteration cap, so a
// handler must not dirty the model on every "changed" event.
//
// Other events:
//
//	invalid    (model, error, SetOptions)        validation veto
//	synced     (model, response, SaveOptions)    persistence round trip done
//	destroyed  (model, SaveOptions)              Destroy
//	error      (model, error, SaveOptions)       persistence failure
//
// A silent Set made by a "changed" handler stays in the changed map after the
// cycle settles even though the previous attributes already hold its value.
// The next non-silent cycle reports it and retires it.
//
// # Validation
//
// A Validator sees the prospective attribute set (current values with the
// proposed changes applied) and may veto it. A vetoed Set returns false and
// leaves the model untouched. Silent sets bypass validation.
//
// # Persistence
//
// Fetch, Save, and Destroy delegate to a Syncer. The Syncer receives a verb
// and the model; its response is passed through the parse hook and applied
// with Set.
//
// A Model is not safe for concurrent use.
package model
