/*
Package observability provides tools for monitoring generation runs.

It exposes prometheus collectors for epochs, inference attempts and appended
nodes, wired into the engine through lifecycle hooks, plus the HTTP handler
that serves them in scrape format.
*/
package observability
