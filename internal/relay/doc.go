// Package relay forwards published events to external brokers.
//
// Forwarders are bus handlers: subscribe them with bus.SubscribeAll. A
// broker failure fails the publish, and with it the ingestion run.
package relay
