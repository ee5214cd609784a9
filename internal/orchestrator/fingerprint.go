package orchestrator

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/Apurer/go-retail-ops/internal/orchestrator/ports"
)

type fingerprintEnvelope struct {
	Action  ports.Action `json:"action"`
	Actor   string       `json:"actor"`
	Command any          `json:"command"`
}

// Fingerprint hashes a command so a replayed idempotency key can be checked against
// the request it was first used for. Map keys are ordered by encoding/json.
func Fingerprint(action ports.Action, actor string, command any) (string, error) {
	payload, err := json.Marshal(fingerprintEnvelope{Action: action, Actor: actor, Command: command})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}
