// Package events forwards goSession audit events to a watermill publisher, so any
// watermill transport (Kafka, NATS, AMQP, SQL, in-process channels) can carry them.
package events
