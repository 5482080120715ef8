// Package server publishes committed measurements as a live WebSocket feed.
//
// The server exposes:
//
//	GET /feed          WebSocket; one JSON text message per committed measurement
//	GET /measurements  JSON array of everything in the store
//	GET /healthz       liveness probe
//
// Measurements reach the feed through PublishingStore, a store.Store
// decorator that publishes every successful insert to the Hub. Duplicates and
// failed inserts are not published. A feed message looks like:
//
//	{"glucose":120,"timestamp":"Wed Jan  5 08:15:00 2011","device":"abfr","session":"5b0c..."}
//
// Slow clients whose send buffer fills up are disconnected rather than
// blocking the session that is committing.
package server
