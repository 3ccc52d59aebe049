// Package mqtt is AutoScribe's publish-only connection to the broker.
//
// The add-on announces compile pipeline events (compile finished,
// catalog refreshed, model availability transitions) plus its own
// presence, so dashboards, Node-RED flows and other add-ons can observe
// the compiler without polling its HTTP API:
//
//	AutoScribe Core → MQTT Broker → consumers
//
// Nothing commands AutoScribe over MQTT, so the client exposes no
// subscription surface. Every event publish is best-effort: a broker
// outage never fails a compile request.
//
// Presence uses the retained autoscribe/system/status topic. A graceful
// shutdown publishes reason "graceful_shutdown"; the broker's will
// publishes "connection_lost" if the add-on dies.
package mqtt
