package snapshotws

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"rewriteengine/internal/grid"
	"rewriteengine/internal/interp"
	"rewriteengine/internal/node"
	"rewriteengine/internal/rule"
	"rewriteengine/internal/symmetry"
)

func buildOneRuleRun(t *testing.T) RunFunc {
	g, err := grid.Load(3, 3, 1, []grid.AlphabetEntry{{Symbol: 'B'}, {Symbol: 'W'}})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	triv, err := symmetry.ParseString(true, "", nil)
	if err != nil {
		t.Fatalf("symmetry: %v", err)
	}
	rules, err := rule.Build(g, rule.Spec{In: "B", Out: "W"}, triv)
	if err != nil {
		t.Fatalf("build rule: %v", err)
	}
	root := &node.Node{Kind: node.KindOne, Rules: rules}
	ip := interp.New(root, g, 0, 0, nil)
	return func(emit func(interp.Snapshot)) (node.Status, string) {
		status := ip.Run(emit)
		if status != node.SUCCESS {
			return status, "E_SEARCH_INFEASIBLE"
		}
		return status, ""
	}
}

func TestHandlerStreamsSnapshotsThenDone(t *testing.T) {
	srv := NewServer(nil, false)
	run := buildOneRuleRun(t)
	ts := httptest.NewServer(srv.Handler("run-1", run))
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	snapshots := 0
	done := false
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			break
		}
		var hdr Header
		if err := json.Unmarshal(msg, &hdr); err != nil {
			t.Fatalf("unmarshal header: %v", err)
		}
		switch hdr.Type {
		case "SNAPSHOT":
			_, bin, err := conn.ReadMessage()
			if err != nil {
				t.Fatalf("read binary frame: %v", err)
			}
			if len(bin) != 9 {
				t.Fatalf("expected 9 state bytes for a 3x3x1 grid, got %d", len(bin))
			}
			snapshots++
		case "DONE":
			done = true
		}
		if done {
			break
		}
	}

	if !done {
		t.Fatalf("expected a DONE frame to terminate the stream")
	}
	// 9 SUCCESS applies (one per cell) plus one terminal FAIL snapshot.
	if snapshots != 10 {
		t.Fatalf("expected 10 snapshot frames, got %d", snapshots)
	}
}
