package mqtt

import "fmt"

// Topic prefixes for the AutoScribe MQTT surface.
//
// AutoScribe only publishes: compile lifecycle events, catalog refreshes,
// availability transitions and its own online/offline status. Consumers
// (dashboards, Node-RED flows, other add-ons) subscribe; nothing commands
// AutoScribe over MQTT.
const (
	// TopicPrefix is the base for all AutoScribe topics.
	TopicPrefix = "autoscribe"

	// TopicPrefixEvent is the base for compile pipeline events.
	TopicPrefixEvent = "autoscribe/event"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "autoscribe/system"
)

// Topics provides builders for AutoScribe MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
type Topics struct{}

// EventCompile returns the topic for compile lifecycle events.
//
// Example: autoscribe/event/compile
func (Topics) EventCompile() string {
	return fmt.Sprintf("%s/compile", TopicPrefixEvent)
}

// EventCatalog returns the topic for catalog refresh events.
//
// Example: autoscribe/event/catalog
func (Topics) EventCatalog() string {
	return fmt.Sprintf("%s/catalog", TopicPrefixEvent)
}

// EventAvailability returns the topic for model availability transitions.
//
// Example: autoscribe/event/availability
func (Topics) EventAvailability() string {
	return fmt.Sprintf("%s/availability", TopicPrefixEvent)
}

// SystemStatus returns the system status topic, also used for the LWT.
//
// Example: autoscribe/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// AllEvents returns a pattern matching all compile pipeline events.
//
// Pattern: autoscribe/event/+
func (Topics) AllEvents() string {
	return fmt.Sprintf("%s/+", TopicPrefixEvent)
}

// AllTopics returns a pattern matching all AutoScribe topics.
//
// Pattern: autoscribe/#
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}
