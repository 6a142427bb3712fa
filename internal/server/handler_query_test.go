package server

import (
	"context"
	"testing"

	"github.com/gottingen/sirius-go/internal/catalog"
)

func TestDiscoveryQueryConfigLifecycle(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	mustApp := s.DiscoveryManager(ctx, ManagerRequest{OpType: OpCreateApp, Payload: mustMarshal(t, catalog.CreateAppRequest{Name: "app1"})})
	if mustApp.ErrCode() != "Success" {
		t.Fatalf("create app: %s", mustApp.ErrCode())
	}

	create := s.DiscoveryManager(ctx, ManagerRequest{OpType: OpCreateConfig, Payload: mustMarshal(t, catalog.CreateConfigRequest{
		Name:        "app1.conf",
		Version:     catalog.Version{Major: 1, Minor: 0, Patch: 0},
		Content:     []byte(`{"k":"v"}`),
		ContentType: catalog.ContentTypeJSON,
	})})
	if create.ErrCode() != "Success" {
		t.Fatalf("create config: %s: %s", create.ErrCode(), create.ErrMsg())
	}

	names := s.DiscoveryQuery(QueryRequest{OpType: QueryListConfig})
	if names.ErrCode() != "Success" || len(names.Names) != 1 || names.Names[0] != "app1.conf" {
		t.Fatalf("expected [app1.conf], got %+v (err=%s)", names.Names, names.ErrCode())
	}

	versions := s.DiscoveryQuery(QueryRequest{OpType: QueryListConfigVersion, Config: "app1.conf"})
	if versions.ErrCode() != "Success" || len(versions.Versions) != 1 {
		t.Fatalf("expected one version, got %+v", versions.Versions)
	}

	got := s.DiscoveryQuery(QueryRequest{OpType: QueryGetConfig, Config: "app1.conf"})
	if got.ErrCode() != "Success" || got.Config == nil || string(got.Config.Content) != `{"k":"v"}` {
		t.Fatalf("expected latest content back, got %+v (err=%s)", got.Config, got.ErrCode())
	}
}

func TestDiscoveryQueryAppNotFound(t *testing.T) {
	s := newTestServer(t)
	resp := s.DiscoveryQuery(QueryRequest{OpType: QueryApp, AppName: "missing"})
	if resp.ErrCode() != "AppNotFound" {
		t.Fatalf("expected AppNotFound, got %s", resp.ErrCode())
	}
}

func TestDiscoveryQueryPrivilegeFlatten(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	must := func(resp *ManagerResponse) {
		t.Helper()
		if resp.ErrCode() != "Success" {
			t.Fatalf("setup mutation failed: %s: %s", resp.ErrCode(), resp.ErrMsg())
		}
	}
	must(s.DiscoveryManager(ctx, ManagerRequest{OpType: OpCreateApp, Payload: mustMarshal(t, catalog.CreateAppRequest{Name: "app1"})}))
	must(s.DiscoveryManager(ctx, ManagerRequest{OpType: OpCreateZone, Payload: mustMarshal(t, catalog.CreateZoneRequest{AppName: "app1", Name: "zone1"})}))
	must(s.DiscoveryManager(ctx, ManagerRequest{OpType: OpCreateServlet, Payload: mustMarshal(t, catalog.CreateServletRequest{
		AppName: "app1", Zone: "zone1", Name: "servlet1",
	})}))
	must(s.DiscoveryManager(ctx, ManagerRequest{OpType: OpCreateUser, Payload: mustMarshal(t, catalog.CreateUserRequest{
		Username: "alice", AppName: "app1",
	})}))
	must(s.DiscoveryManager(ctx, ManagerRequest{OpType: OpAddPrivilege, Payload: mustMarshal(t, catalog.PrivilegeRequest{
		Username: "alice",
		Zones:    []catalog.ZoneGrant{{Zone: "zone1", Read: true}},
	})}))

	resp := s.DiscoveryQuery(QueryRequest{OpType: QueryPrivilegeFlatten, User: "alice"})
	if resp.ErrCode() != "Success" {
		t.Fatalf("flatten: %s: %s", resp.ErrCode(), resp.ErrMsg())
	}
	if resp.Privilege == nil || len(resp.Privilege.Servlets) != 1 || resp.Privilege.Servlets[0].Servlet != "servlet1" {
		t.Fatalf("expected servlet1 to inherit the zone-wide read grant, got %+v", resp.Privilege)
	}
}
