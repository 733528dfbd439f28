/*
Package session implements run management and persistence orchestration.

It provides high-level abstractions for handling concurrent access to archived
runs across multiple replicas, combining refcounted in-process locks with
optional distributed locking over the archive store adapters.
*/
package session
