package models

import "encoding/json"

// -----------------------------------------------------------------------------
// Wire Protocol (Matches the original JSON protocol exactly)
// -----------------------------------------------------------------------------

type Action string

const (
	ActionAssets       Action = "assets"
	ActionSubscribe    Action = "subscribe"
	ActionAssetHistory Action = "asset_history"
)

// -----------------------------------------------------------------------------

// MMessage is the outbound envelope: {"action": ..., "message": {...}}.
// Metric pushes bypass the envelope and are sent as bare MMetric objects.
type MMessage struct {
	Action  Action      `json:"action"`
	Message interface{} `json:"message"`
}

// -----------------------------------------------------------------------------

// MClientRequest is the inbound envelope. The payload stays raw until the
// action is known.
type MClientRequest struct {
	Action  Action          `json:"action"`
	Message json.RawMessage `json:"message"`
}

// MSubscribeRequest is the payload of a client "subscribe" request.
type MSubscribeRequest struct {
	AssetID int64 `json:"assetId"`
}

// -----------------------------------------------------------------------------
// Outbound Payloads
// -----------------------------------------------------------------------------

type MAssetsPayload struct {
	Assets []MAsset `json:"assets"`
}

type MHistoryPayload struct {
	Points []MMetric `json:"points"`
}
