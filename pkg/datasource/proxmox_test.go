package datasource

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/virtscope/capacity-engine/pkg/models"
)

func testServer(t *testing.T) (*httptest.Server, models.ClusterConnection) {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/api2/json/nodes", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "PVEAPIToken=root@pam!engine=s3cret" {
			t.Errorf("unexpected auth header %q", got)
		}
		fmt.Fprint(w, `{"data":[
			{"node":"pve1","status":"online","cpu":0.25,"maxcpu":16,"mem":34359738368,"maxmem":68719476736},
			{"node":"pve2","status":"offline","cpu":0,"maxcpu":8,"mem":0,"maxmem":34359738368}
		]}`)
	})

	mux.HandleFunc("/api2/json/cluster/resources", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("type") {
		case "vm":
			fmt.Fprint(w, `{"data":[
				{"vmid":101,"name":"web-01","node":"pve1","status":"running","cpu":0.5,"maxcpu":4,"mem":2147483648,"maxmem":8589934592}
			]}`)
		case "storage":
			fmt.Fprint(w, `{"data":[
				{"storage":"local-zfs","node":"pve1","status":"available","disk":107374182400,"maxdisk":536870912000}
			]}`)
		default:
			http.Error(w, "bad type", http.StatusBadRequest)
		}
	})

	mux.HandleFunc("/api2/json/nodes/pve1/rrddata", func(w http.ResponseWriter, r *http.Request) {
		if tf := r.URL.Query().Get("timeframe"); tf != "month" {
			t.Errorf("expected month timeframe for 30d window, got %q", tf)
		}
		fmt.Fprint(w, `{"data":[
			{"time":1767225600,"cpu":0.2,"memused":17179869184,"memtotal":68719476736},
			{"time":1767229200,"cpu":0.3}
		]}`)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	conn := models.ClusterConnection{
		ID: "c1", Name: "test", URL: srv.URL,
		TokenID: "root@pam!engine", Secret: "s3cret",
	}
	return srv, conn
}

func TestProxmoxListNodes(t *testing.T) {
	_, conn := testServer(t)
	c := NewProxmoxClient(5*time.Second, false)

	nodes, err := c.ListNodes(context.Background(), conn)
	if err != nil {
		t.Fatalf("ListNodes failed: %v", err)
	}
	if len(nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(nodes))
	}
	if !nodes[0].Online() || nodes[1].Online() {
		t.Errorf("unexpected online flags: %+v", nodes)
	}
	if nodes[0].CoreCount != 16 || nodes[0].CPURatio != 0.25 {
		t.Errorf("unexpected node capacity: %+v", nodes[0])
	}
}

func TestProxmoxListGuests(t *testing.T) {
	_, conn := testServer(t)
	c := NewProxmoxClient(5*time.Second, false)

	guests, err := c.ListGuests(context.Background(), conn)
	if err != nil {
		t.Fatalf("ListGuests failed: %v", err)
	}
	if len(guests) != 1 {
		t.Fatalf("expected 1 guest, got %d", len(guests))
	}
	g := guests[0]
	if g.ID != "101" || !g.Running() {
		t.Errorf("unexpected guest: %+v", g)
	}
	if g.CPUPercent != 50 {
		t.Errorf("expected CPU 50%%, got %.1f", g.CPUPercent)
	}
	if g.RAMPercent != 25 { // 2GiB of 8GiB
		t.Errorf("expected RAM 25%%, got %.1f", g.RAMPercent)
	}
}

func TestProxmoxListStorages(t *testing.T) {
	_, conn := testServer(t)
	c := NewProxmoxClient(5*time.Second, false)

	storages, err := c.ListStorages(context.Background(), conn)
	if err != nil {
		t.Fatalf("ListStorages failed: %v", err)
	}
	if len(storages) != 1 || storages[0].Storage != "local-zfs" {
		t.Fatalf("unexpected storages: %+v", storages)
	}
	if got := storages[0].UsedPercent(); got != 20 {
		t.Errorf("expected 20%% used, got %.1f", got)
	}
}

func TestProxmoxNodeHistory(t *testing.T) {
	_, conn := testServer(t)
	c := NewProxmoxClient(5*time.Second, false)

	samples, err := c.NodeHistory(context.Background(), conn, "pve1", 30*24*time.Hour)
	if err != nil {
		t.Fatalf("NodeHistory failed: %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(samples))
	}
	if samples[0].CPU == nil || *samples[0].CPU != 0.2 {
		t.Errorf("unexpected first sample: %+v", samples[0])
	}
	if samples[1].MemUsed != nil {
		t.Errorf("second sample should carry no memory fields")
	}
}

func TestProxmoxErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no ticket", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewProxmoxClient(5*time.Second, false)
	conn := models.ClusterConnection{ID: "c1", URL: srv.URL}
	if _, err := c.ListNodes(context.Background(), conn); err == nil {
		t.Error("expected error on 401 response")
	}
}

func TestTimeframeSelection(t *testing.T) {
	cases := []struct {
		window time.Duration
		want   string
	}{
		{12 * time.Hour, "day"},
		{3 * 24 * time.Hour, "week"},
		{30 * 24 * time.Hour, "month"},
		{180 * 24 * time.Hour, "year"},
	}
	for _, tc := range cases {
		if got := timeframe(tc.window); got != tc.want {
			t.Errorf("timeframe(%v): expected %q, got %q", tc.window, tc.want, got)
		}
	}
}
