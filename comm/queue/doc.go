// Package queue provides the two synchronization structures of the
// transport pipeline.
//
//   - MessageQueue: a bounded, thread-safe FIFO of messages with a
//     per-producer finish protocol. Blocking operations use a condition
//     variable, never polling. Each queue has exactly one consumer by
//     contract and a fixed set of producers registered at construction.
//
//   - Notifier: a lock-free multi-producer single-consumer signal that
//     lets one consumer discover which peer queue gained a message
//     without scanning all queues under lock. Producers never block.
package queue
