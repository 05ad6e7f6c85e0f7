/*
Package registry runs relay sessions and keeps track of the live ones.

Key Architectural Concepts:
  - One Session per subscriber: every inbound WebSocket gets its own upstream
    firehose connection. Sessions share nothing mutable except the read-only
    decode pipeline.
  - Lossy backpressure: produced posts pass a fixed-window rate limiter and a
    bounded outbox. Anything over budget or over capacity is dropped and counted,
    never queued.
  - Symmetric teardown: whichever side fails first cancels the session context.
    Both sockets are then closed exactly once with a close code that reflects the
    cause.
  - Lock-free lookups: the Hub indexes sessions in a sync.Map and keeps counters
    in atomics, so /stats never contends with the relay path.
*/
package registry
