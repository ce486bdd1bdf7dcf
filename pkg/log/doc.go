// Package log records the events a model triggers as a machine-readable trace.
//
// It is separate from operational logging (slog). A Recorder binds to a
// model through the wildcard event name and hands every triggered event to
// a Logger:
//
//	rec := log.NewRecorder(m, log.NewSlogAdapter(slog.Default()))
//	defer rec.Detach()
//
//	// Persist the trace for later inspection with attrbus-log.
//	fl, _ := log.NewFileLogger("/tmp/todo.alog")
//	rec = log.NewRecorder(m, log.NewMultiLogger(fl, log.NewSlogAdapter(slog.Default())))
//
// # File Format
//
// Trace files are a stream of CBOR-encoded Events with integer keys, using
// the .alog extension. The attrbus-log tool views, filters, and exports them.
package log
