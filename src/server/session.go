package server

import (
	"encoding/json"

	"rates-streamer/src/helpers"
	"rates-streamer/src/interfaces"
	"rates-streamer/src/models"
)

// -----------------------------------------------------------------------------
// Request Dispatch
// -----------------------------------------------------------------------------

// dispatch decodes one framed client request and applies it. Requests are
// handled inline in the read pump, so per-connection ordering is strict
// arrival order. A returned error terminates the connection.
func (s *StreamServer) dispatch(conn interfaces.IClientConn, data []byte) error {
	var req models.MClientRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return helpers.NewProtocolError("malformed request", err)
	}

	switch req.Action {
	case models.ActionAssets:
		return s.handleAssets(conn)

	case models.ActionSubscribe:
		return s.handleSubscribe(conn, req.Message)

	default:
		return helpers.NewProtocolError("unknown action '"+string(req.Action)+"'", nil)
	}
}

// -----------------------------------------------------------------------------

// handleAssets pushes the full asset list as a response message.
func (s *StreamServer) handleAssets(conn interfaces.IClientConn) error {
	assets, err := s.Store.ListAssets()
	if err != nil {
		return err
	}
	if assets == nil {
		assets = []models.MAsset{}
	}

	return conn.Send(models.MMessage{
		Action:  models.ActionAssets,
		Message: models.MAssetsPayload{Assets: assets},
	})
}

// -----------------------------------------------------------------------------

// handleSubscribe switches the connection to the requested asset. A repeat
// request for the current asset is idempotent; an unknown asset id is
// silently ignored and the connection stays open.
func (s *StreamServer) handleSubscribe(conn interfaces.IClientConn, payload json.RawMessage) error {
	var req models.MSubscribeRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return helpers.NewProtocolError("malformed subscribe payload", err)
	}
	if req.AssetID <= 0 {
		return helpers.NewProtocolError("subscribe payload missing assetId", nil)
	}

	var created bool
	var err error
	if current, ok := s.Registry.Current(conn); ok && current != req.AssetID {
		created, err = s.Registry.Resubscribe(conn, req.AssetID)
	} else {
		created, err = s.Registry.Subscribe(conn, req.AssetID)
	}
	if err != nil {
		return err
	}

	if !created {
		s.Logger.Debug("Ignored subscribe to unknown asset %d", req.AssetID)
	}
	return nil
}
