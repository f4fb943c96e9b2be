package handler

import (
	"time"

	"meshgate/internal/controlplane"
	"meshgate/internal/keys"
)

// SubmitEvidenceResponse acknowledges POST /v1/benchmarks/{nodeID}.
type SubmitEvidenceResponse struct {
	Status  string `json:"status"`
	NodeID  string `json:"node_id"`
	EpochID uint64 `json:"epoch_id"`
}

// EpochResponse is the HTTP response for GET /v1/epoch.
type EpochResponse struct {
	Initialized bool                              `json:"initialized"`
	EpochID     uint64                            `json:"epoch_id"`
	ExpiryUTC   *time.Time                        `json:"expiry_utc,omitempty"`
	SecretHash  string                            `json:"secret_hash,omitempty"`
	Nodes       map[string]NodeMembershipResponse `json:"nodes"`
}

type NodeMembershipResponse struct {
	Membership string `json:"membership"`
	Reason     string `json:"reason"`
	Detail     string `json:"detail"`
}

// NodeConfigResponse is the HTTP response for GET /v1/config/{nodeID}.
// PSKBase64 is present only when Allowed.
type NodeConfigResponse struct {
	NodeID     string     `json:"node_id"`
	EpochID    uint64     `json:"epoch_id"`
	ExpiryUTC  *time.Time `json:"expiry_utc,omitempty"`
	Allowed    bool       `json:"allowed"`
	Membership string     `json:"membership"`
	Reason     string     `json:"reason"`
	Detail     string     `json:"detail"`
	PSKBase64  *string    `json:"psk_base64,omitempty"`
}

type HealthResponse struct {
	Status      string `json:"status"`
	EpochID     uint64 `json:"epoch_id"`
	Initialized bool   `json:"initialized"`
}

func FromSubmitResult(res *controlplane.SubmitResult) *SubmitEvidenceResponse {
	return &SubmitEvidenceResponse{Status: "received", NodeID: res.NodeID, EpochID: res.EpochID}
}

func FromEpochState(st controlplane.EpochState) *EpochResponse {
	resp := &EpochResponse{
		Initialized: st.Initialized,
		EpochID:     st.EpochID,
		Nodes:       make(map[string]NodeMembershipResponse, len(st.Nodes)),
	}
	if st.Initialized {
		expiry := st.Expiry.UTC()
		resp.ExpiryUTC = &expiry
		resp.SecretHash = st.SecretFingerprint
	}
	for _, n := range st.Nodes {
		resp.Nodes[n.NodeID] = NodeMembershipResponse{
			Membership: string(n.Status),
			Reason:     string(n.Reason),
			Detail:     n.Detail,
		}
	}
	return resp
}

func FromNodeConfig(cfg *controlplane.NodeConfig) *NodeConfigResponse {
	resp := &NodeConfigResponse{
		NodeID:     cfg.NodeID,
		EpochID:    cfg.EpochID,
		Allowed:    cfg.Allowed,
		Membership: string(cfg.Status),
		Reason:     string(cfg.Reason),
		Detail:     cfg.Detail,
	}
	if !cfg.Expiry.IsZero() {
		expiry := cfg.Expiry.UTC()
		resp.ExpiryUTC = &expiry
	}
	if cfg.Allowed && len(cfg.PSK) > 0 {
		encoded := keys.Encode(cfg.PSK)
		resp.PSKBase64 = &encoded
	}
	return resp
}

func FromHealth(h controlplane.Health) *HealthResponse {
	return &HealthResponse{Status: h.Status, EpochID: h.EpochID, Initialized: h.Initialized}
}
