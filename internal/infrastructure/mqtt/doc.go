// Package mqtt provides MQTT client connectivity for the entity manager.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Publishing rename events with QoS guarantees
//   - The command subscription used to trigger override reloads
//   - Last Will and Testament (LWT) for offline detection
//
// # Topics
//
// Every topic sits under the configured prefix (default "entitymanager"):
//
//	entitymanager/status                       retained online/offline
//	entitymanager/event/entity_renamed         one per renamed entity
//	entitymanager/event/entity_rename_failed   one per failed entity
//	entitymanager/event/batch_completed        one per apply run
//	entitymanager/command/reload_overrides     inbound, payload ignored
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topic := client.Topics().Event("entity_renamed")
//	err = client.Publish(topic, payload, 1, false)
package mqtt
