package session

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	ws "github.com/Jayem09/coduxa-sub000/pkg/http/ws"
)

// DefaultEventsChannel is the Redis Pub/Sub channel carrying session events.
const DefaultEventsChannel = "session:events"

// Broadcaster delivers messages to the local subscribers of a session.
// *ws.Hub implements it.
type Broadcaster interface {
	BroadcastToSession(sessionID string, msg ws.Message) error
}

type relayEnvelope struct {
	SessionID string     `json:"session_id"`
	Message   ws.Message `json:"message"`
}

// Relay fans session events out over Redis Pub/Sub so a candidate's socket
// receives them whichever API instance it is connected to. Without a Redis
// client it delivers to the local hub directly.
type Relay struct {
	redis   *redis.Client
	local   Broadcaster
	channel string
	logger  zerolog.Logger
}

var _ Notifier = (*Relay)(nil)

// NewRelay creates a relay publishing on channel.
func NewRelay(client *redis.Client, local Broadcaster, channel string, logger zerolog.Logger) *Relay {
	if channel == "" {
		channel = DefaultEventsChannel
	}
	return &Relay{
		redis:   client,
		local:   local,
		channel: channel,
		logger:  logger.With().Str("component", "session_relay").Logger(),
	}
}

// BroadcastToSession publishes msg for every instance.
func (r *Relay) BroadcastToSession(sessionID string, msg ws.Message) error {
	if r.redis == nil {
		return r.local.BroadcastToSession(sessionID, msg)
	}
	data, err := json.Marshal(relayEnvelope{SessionID: sessionID, Message: msg})
	if err != nil {
		return err
	}
	return r.redis.Publish(context.Background(), r.channel, data).Err()
}

// Run subscribes to the channel and forwards events to the local hub until
// the context is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	if r.redis == nil {
		<-ctx.Done()
		return ctx.Err()
	}

	sub := r.redis.Subscribe(ctx, r.channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.forward(msg.Payload)
		}
	}
}

func (r *Relay) forward(payload string) {
	var env relayEnvelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		r.logger.Warn().Err(err).Msg("failed to decode session event")
		return
	}
	if env.SessionID == "" {
		return
	}
	err := r.local.BroadcastToSession(env.SessionID, env.Message)
	if err != nil && !errors.Is(err, ws.ErrConnectionNotFound) {
		r.logger.Warn().Err(err).Str("session_id", env.SessionID).Str("type", env.Message.Type).Msg("failed to deliver session event")
	}
}
