// Package ranking provides the read side over the telemetry counter
// store: popularity scoring, top-N category rankings, the trending set,
// and content search. Everything here is a pure function or a read-only
// query; nothing mutates counters.
package ranking
