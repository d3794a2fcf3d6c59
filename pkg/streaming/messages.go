// Package streaming defines the JSON envelope protocol shared by the
// replication transport and the remote event collector.
package streaming

import (
	"encoding/json"
	"fmt"

	"github.com/gunline/firecontrol/pkg/core"
)

// Message types. The server_* commands travel from an owning client to the
// authority, multicast_* from the authority to every client.
const (
	TypeHello           = "hello"
	TypeServerStartFire = "server_start_fire"
	TypeServerStopFire  = "server_stop_fire"
	TypeServerReload    = "server_reload"
	TypeServerSetAiming = "server_set_aiming"
	TypeServerEquip     = "server_equip"
	TypeServerFireOnce  = "server_fire_once"
	TypeMulticastFireFX = "multicast_fire_fx"

	TypeStartSession = "start_session"
	TypeEndSession   = "end_session"
	TypeShotEvent    = "shot_event"
	TypeHitEvent     = "hit_event"
	TypeKillEvent    = "kill_event"
	TypeDryFireEvent = "dry_fire_event"
	TypeReloadEvent  = "reload_event"

	TypeAck = "ack"
)

// Reliable reports whether a message type must not be dropped under
// backpressure. Fire-once requests and FX multicasts are best effort.
func Reliable(msgType string) bool {
	switch msgType {
	case TypeServerFireOnce, TypeMulticastFireFX, TypeShotEvent, TypeDryFireEvent, TypeReloadEvent:
		return false
	}
	return true
}

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the receiver's acknowledgement of a reliable message.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`
}

// HelloPayload identifies a connecting client.
type HelloPayload struct {
	PlayerID string `json:"playerId"`
}

// WeaponCommand targets one weapon instance.
type WeaponCommand struct {
	WeaponID string `json:"weaponId"`
}

// AimCommand sets a weapon's aim-down-sights state on the authority.
type AimCommand struct {
	WeaponID string `json:"weaponId"`
	Aiming   bool   `json:"aiming"`
}

// FireFXPayload is an authoritative shot broadcast.
type FireFXPayload struct {
	WeaponID string          `json:"weaponId"`
	OwnerID  string          `json:"ownerId"`
	Shot     core.ShotResult `json:"shot"`
}

// StartSessionPayload opens a recording session on the collector.
type StartSessionPayload struct {
	Session *core.Session `json:"session"`
}

// Marshal builds a JSON-encoded Envelope from a message type and payload.
func Marshal(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	data, err := json.Marshal(Envelope{Type: msgType, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// Unmarshal splits raw into an Envelope.
func Unmarshal(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return env, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Type == "" {
		return env, fmt.Errorf("decode envelope: missing type")
	}
	return env, nil
}

// Decode unmarshals an envelope payload into T.
func Decode[T any](env Envelope) (T, error) {
	var v T
	if len(env.Payload) == 0 || string(env.Payload) == "null" {
		return v, fmt.Errorf("decode %s: empty payload", env.Type)
	}
	if err := json.Unmarshal(env.Payload, &v); err != nil {
		return v, fmt.Errorf("decode %s: %w", env.Type, err)
	}
	return v, nil
}
