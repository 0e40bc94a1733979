// internal/notify/nats.go
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/fourcolor/internal/models"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// SubjectPrefix namespaces every subject the service publishes on.
const SubjectPrefix = "fourcolor.table"

// StateMessage is the payload published after every committed state.
type StateMessage struct {
	TableID  uuid.UUID         `json:"table_id"`
	Sequence int               `json:"sequence"`
	State    *models.GameState `json:"state"`
}

// StateSubject is the subject state changes of tableID are published on.
func StateSubject(tableID uuid.UUID) string {
	return fmt.Sprintf("%s.%s.state", SubjectPrefix, tableID)
}

// AllStatesSubject matches the state subject of every table.
func AllStatesSubject() string {
	return SubjectPrefix + ".*.state"
}

// EncodeState builds the wire payload for one state change.
func EncodeState(tableID uuid.UUID, sequence int, state *models.GameState) ([]byte, error) {
	data, err := json.Marshal(StateMessage{TableID: tableID, Sequence: sequence, State: state})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal state message: %w", err)
	}
	return data, nil
}

// DecodeState parses a payload produced by EncodeState.
func DecodeState(data []byte) (StateMessage, error) {
	var msg StateMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return StateMessage{}, fmt.Errorf("invalid state message: %w", err)
	}
	return msg, nil
}

// AbandonedSubject carries the tables a historian sweep closed for inactivity.
func AbandonedSubject() string {
	return SubjectPrefix + ".abandoned"
}

// AbandonedMessage lists tables whose running game was closed as abandoned.
type AbandonedMessage struct {
	TableIDs []uuid.UUID `json:"table_ids"`
}

// Publisher sends state changes to NATS.
type Publisher struct {
	conn *nats.Conn
}

// Connect dials NATS_URL (default nats.DefaultURL) with reconnects logged through logger.
func Connect(logger *logrus.Logger) (*Publisher, error) {
	url := os.Getenv("NATS_URL")
	if url == "" {
		url = nats.DefaultURL
	}
	opts := []nats.Option{
		nats.Name("fourcolor"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warnf("nats disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Infof("nats reconnected to %s", nc.ConnectedUrl())
		}),
	}
	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	return &Publisher{conn: conn}, nil
}

// PublishState publishes one committed state of tableID.
func (p *Publisher) PublishState(_ context.Context, tableID uuid.UUID, sequence int, state *models.GameState) error {
	data, err := EncodeState(tableID, sequence, state)
	if err != nil {
		return err
	}
	if err := p.conn.Publish(StateSubject(tableID), data); err != nil {
		return fmt.Errorf("failed to publish state of table %s: %w", tableID, err)
	}
	return nil
}

// SubscribeStates delivers every table's state changes to handler until the returned function
// is called. Undecodable messages are skipped.
func (p *Publisher) SubscribeStates(handler func(StateMessage)) (func() error, error) {
	sub, err := p.conn.Subscribe(AllStatesSubject(), func(msg *nats.Msg) {
		decoded, err := DecodeState(msg.Data)
		if err != nil {
			return
		}
		handler(decoded)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", AllStatesSubject(), err)
	}
	return sub.Unsubscribe, nil
}

// PublishAbandoned announces tables closed by the inactivity sweep.
func (p *Publisher) PublishAbandoned(_ context.Context, tableIDs []uuid.UUID) error {
	data, err := json.Marshal(AbandonedMessage{TableIDs: tableIDs})
	if err != nil {
		return fmt.Errorf("failed to marshal abandoned message: %w", err)
	}
	if err := p.conn.Publish(AbandonedSubject(), data); err != nil {
		return fmt.Errorf("failed to publish abandoned tables: %w", err)
	}
	return nil
}

// SubscribeAbandoned calls handler once per abandoned table id until the returned function is
// called.
func (p *Publisher) SubscribeAbandoned(handler func(uuid.UUID)) (func() error, error) {
	sub, err := p.conn.Subscribe(AbandonedSubject(), func(msg *nats.Msg) {
		var decoded AbandonedMessage
		if err := json.Unmarshal(msg.Data, &decoded); err != nil {
			return
		}
		for _, id := range decoded.TableIDs {
			handler(id)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", AbandonedSubject(), err)
	}
	return sub.Unsubscribe, nil
}

// Close drains pending publishes and closes the connection.
func (p *Publisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}
