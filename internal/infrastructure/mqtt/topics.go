package mqtt

import "strings"

// DefaultTopicPrefix is used when the configuration leaves the prefix empty.
const DefaultTopicPrefix = "entitymanager"

// Event types published under Topics.Event.
const (
	EventEntityRenamed      = "entity_renamed"
	EventEntityRenameFailed = "entity_rename_failed"
	EventBatchCompleted     = "batch_completed"
)

// CommandReloadOverrides asks the service to reload its override document.
const CommandReloadOverrides = "reload_overrides"

// Topics builds entity manager topics under a prefix.
//
//	topics := mqtt.NewTopics("entitymanager")
//	topics.Event(mqtt.EventEntityRenamed)
//	// Returns: "entitymanager/event/entity_renamed"
type Topics struct {
	prefix string
}

// NewTopics returns a builder for prefix. Surrounding slashes are dropped.
func NewTopics(prefix string) Topics {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{prefix: prefix}
}

// Prefix returns the topic root.
func (t Topics) Prefix() string {
	return t.prefix
}

// Status returns the retained online/offline topic.
func (t Topics) Status() string {
	return t.prefix + "/status"
}

// Event returns the topic for one event type.
func (t Topics) Event(eventType string) string {
	return t.prefix + "/event/" + eventType
}

// Command returns the inbound topic for one command.
func (t Topics) Command(name string) string {
	return t.prefix + "/command/" + name
}

// AllEvents matches every event topic.
func (t Topics) AllEvents() string {
	return t.prefix + "/event/+"
}
