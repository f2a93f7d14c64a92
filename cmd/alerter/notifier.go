package main

import (
	"context"
	"encoding/json"
	"log"

	"github.com/nats-io/nats.go"
)

// natsNotifier delivers alerts by publishing to a NATS subject (§4.E, §6 —
// notification delivery is an external collaborator). Downstream paging/
// email/chat integrations subscribe to the subject rather than this
// pipeline calling them directly.
type natsNotifier struct {
	conn    *nats.Conn
	subject string
}

func newNATSNotifier(url, subject string) (*natsNotifier, error) {
	conn, err := nats.Connect(url, nats.Name("zoneguard-alerter"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, err
	}
	return &natsNotifier{conn: conn, subject: subject}, nil
}

func (n *natsNotifier) Close() {
	n.conn.Close()
}

type alertPayload struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (n *natsNotifier) Notify(ctx context.Context, subject, body string) error {
	log.Printf("[alert] %s: %s", subject, body)

	payload, err := json.Marshal(alertPayload{Subject: subject, Body: body})
	if err != nil {
		return err
	}
	return n.conn.Publish(n.subject, payload)
}
