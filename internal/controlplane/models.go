// Package controlplane holds the boundary types shared by the control-plane
// service and its HTTP handler.
package controlplane

import (
	"time"

	"meshgate/internal/membership"
)

// SubmitResult acknowledges an accepted evidence submission.
type SubmitResult struct {
	NodeID  string
	EpochID uint64
}

// NodeMembership is one roster entry of the epoch view.
type NodeMembership struct {
	NodeID string
	Status membership.Status
	Reason membership.ReasonCode
	Detail string
}

// EpochState is the public view of the current epoch. It never carries the secret.
type EpochState struct {
	Initialized       bool
	EpochID           uint64
	Expiry            time.Time
	SecretFingerprint string
	Nodes             []NodeMembership
}

// NodeConfig is what a node receives when it polls for credentials.
// PSK is nil unless Allowed.
type NodeConfig struct {
	NodeID  string
	EpochID uint64
	Expiry  time.Time
	Allowed bool
	Status  membership.Status
	Reason  membership.ReasonCode
	Detail  string
	PSK     []byte
}

// Health is the liveness probe result.
type Health struct {
	Status      string
	EpochID     uint64
	Initialized bool
}
