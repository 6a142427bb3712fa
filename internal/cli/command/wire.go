// Package command provides CLI command definitions for siriusctl.
package command

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gottingen/sirius-go/internal/cli/connection"
	"github.com/gottingen/sirius-go/internal/server"
)

// postJSON posts body to path and decodes the response into out. Every
// bridge endpoint in cmd/sirius-server answers 200 with an envelope whose
// Errcode/Errmsg fields (not the HTTP status) carry the outcome, matching
// the wire shape internal/server's handlers already return.
func postJSON(ctx context.Context, client *connection.HTTPClient, path string, body, out any) error {
	resp, err := client.Post(ctx, path, body)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func manager(ctx context.Context, client *connection.HTTPClient, opType server.ManagerOpType, payload any) (*server.ManagerResponse, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	req := server.ManagerRequest{OpType: opType, Payload: raw}
	var resp server.ManagerResponse
	if err := postJSON(ctx, client, "/v1/discovery/manager", req, &resp); err != nil {
		return nil, err
	}
	if resp.ErrCode() != "Success" {
		return nil, envelopeErr(resp.ErrCode(), resp.ErrMsg())
	}
	return &resp, nil
}

func query(ctx context.Context, client *connection.HTTPClient, req server.QueryRequest) (*server.QueryResponse, error) {
	var resp server.QueryResponse
	if err := postJSON(ctx, client, "/v1/discovery/query", req, &resp); err != nil {
		return nil, err
	}
	if resp.ErrCode() != "Success" {
		return nil, envelopeErr(resp.ErrCode(), resp.ErrMsg())
	}
	return &resp, nil
}

func naming(ctx context.Context, client *connection.HTTPClient, req server.NamingRequest) (*server.NamingResponse, error) {
	var resp server.NamingResponse
	if err := postJSON(ctx, client, "/v1/naming", req, &resp); err != nil {
		return nil, err
	}
	if resp.ErrCode() != "Success" {
		return nil, envelopeErr(resp.ErrCode(), resp.ErrMsg())
	}
	return &resp, nil
}

func tso(ctx context.Context, client *connection.HTTPClient, req server.TsoRequest) (*server.TsoResponse, error) {
	var resp server.TsoResponse
	if err := postJSON(ctx, client, "/v1/tso", req, &resp); err != nil {
		return nil, err
	}
	if resp.ErrCode() != "Success" {
		return nil, envelopeErr(resp.ErrCode(), resp.ErrMsg())
	}
	return &resp, nil
}

func raftControl(ctx context.Context, client *connection.HTTPClient, req server.RaftControlRequest) (*server.RaftControlResponse, error) {
	var resp server.RaftControlResponse
	if err := postJSON(ctx, client, "/v1/raft/control", req, &resp); err != nil {
		return nil, err
	}
	if resp.ErrCode() != "Success" {
		return nil, envelopeErr(resp.ErrCode(), resp.ErrMsg())
	}
	return &resp, nil
}

func envelopeErr(code, msg string) error {
	if code == "" {
		return fmt.Errorf("%s", msg)
	}
	return fmt.Errorf("[%s] %s", code, msg)
}
