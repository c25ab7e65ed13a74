// Package mqtt provides MQTT client connectivity for Breezer Core.
//
// This package manages:
//   - Connection to the vendor broker with auto-reconnect
//   - Message publishing with QoS support
//   - An ordered subscription registry with wildcard support, replayed on
//     every reconnect
//   - The bounded inbound message relay decoupling the paho network
//     goroutine from application handlers
//   - Last Will and Testament (LWT) on the bridge status topic
//
// # Architecture
//
// The breezer appliance publishes its state on state/* topics and accepts
// commands on control/* topics. This package owns the broker connection
// and the hand-off between the two execution contexts:
//
//	paho network goroutine → Relay (bounded FIFO) → consumer loop → handlers
//
// The relay never blocks the network goroutine: under saturation the
// incoming event is dropped, counted, and warn-logged. Recovery relies on
// the device's retained/periodic publishes. Handlers run on exactly one
// goroutine, so device-state mutation needs no cross-handler locking.
//
// # Security Considerations
//
//   - The vendor broker requires TLS but presents an unverifiable
//     certificate; tls_insecure keeps the transport encrypted while
//     skipping certificate and hostname checks
//   - Credentials are validated against the broker ACL
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT, cfg.Topics.Namespace)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.Subscribe("rusclimate/69/+/state/mode", 0,
//	    func(topic string, payload string) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	client.PublishString("rusclimate/69/abc/control/mode", "2", 0, false)
package mqtt
