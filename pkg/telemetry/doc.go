// Package telemetry implements the in-process usage telemetry engine:
// event ingestion for tool/API invocations and content interactions,
// per-entity counter aggregation, time-windowed rollups, threshold
// alerting, and retention sweeping.
//
// All state is volatile for the process lifetime. The engine is built
// for many concurrent request-handler writers plus a small number of
// periodic background jobs; synchronization is per entity so ingestion
// throughput does not degrade with the number of tracked tools or
// content items.
package telemetry
