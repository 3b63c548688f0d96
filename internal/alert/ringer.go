package alert

import (
	"context"

	"github.com/momohouse/pos/internal/ws"
)

// Publisher is satisfied by *ws.Hub.
type Publisher interface {
	Publish(typ string, payload any)
}

// HubRinger asks every connected terminal to play the tone.
type HubRinger struct {
	hub Publisher
}

func NewHubRinger(hub Publisher) *HubRinger {
	return &HubRinger{hub: hub}
}

type ringPayload struct {
	Tone    Tone `json:"tone"`
	Pending int  `json:"pending"`
}

func (r *HubRinger) Ring(ctx context.Context, tone Tone, pending int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.hub.Publish(ws.EventAlertRing, ringPayload{Tone: tone, Pending: pending})
	return nil
}

// Silence tells terminals to stop any tone still playing.
func (r *HubRinger) Silence() {
	r.hub.Publish(ws.EventAlertCleared, struct{}{})
}
