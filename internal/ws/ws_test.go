package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/playmatatu/ballpit/internal/config"
	"github.com/playmatatu/ballpit/internal/physics"
	"github.com/playmatatu/ballpit/internal/sandbox"
	"github.com/redis/go-redis/v9"
)

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:              "ws-secret",
		ControlTokenTTLMinutes: 5,
		SandboxIdleMinutes:     5,
		SandboxMaxBodies:       20,
		SandboxInitialBalls:    2,
		SandboxTickHz:          1,
		SandboxSeed:            3,
		SimWidth:               physics.DefaultWidth,
		SimHeight:              physics.DefaultHeight,
		SimGravity:             physics.DefaultGravity,
		SimFriction:            physics.DefaultFriction,
		SimRestitution:         physics.DefaultRestitution,
		SimBounceImpulse:       physics.DefaultBounceImpulse,
		SimBuoyancy:            physics.DefaultBuoyancyFactor,
		SimGravityModel:        string(physics.GravityAcceleration),
		SimFrictionModel:       string(physics.FrictionMassScaled),
		SimResolver:            string(physics.ResolverImpulse),
		SimPairPass:            string(physics.PairPassBoth),
	}
}

func setupServer(t *testing.T) (*httptest.Server, *sandbox.CreateResult) {
	t.Helper()
	return setupServerWithRedis(t, nil)
}

func setupServerWithRedis(t *testing.T, rdb *redis.Client) (*httptest.Server, *sandbox.CreateResult) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := testConfig()
	sandbox.InitializeManager(rdb, cfg)
	SetRedisClient(rdb, cfg)
	AttachManager(sandbox.Manager)

	res, err := sandbox.Manager.Create(sandbox.CreateOptions{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	router := gin.New()
	router.GET("/sandbox/:id/ws", HandleWebSocket)
	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		srv.Close()
		sandbox.Manager.Close()
	})
	return srv, res
}

func dial(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		t.Fatalf("Dial %s: %v (status %d)", path, err, status)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil reads messages until one of type typ arrives.
func readUntil(t *testing.T, conn *websocket.Conn, typ string) map[string]interface{} {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		conn.SetReadDeadline(deadline)
		var msg map[string]interface{}
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("waiting for %q: %v", typ, err)
		}
		if msg["type"] == typ {
			return msg
		}
	}
}

func TestViewerReceivesStateButCannotControl(t *testing.T) {
	srv, res := setupServer(t)
	conn := dial(t, srv, "/sandbox/"+res.SandboxID+"/ws")

	state := readUntil(t, conn, "state")
	data, _ := state["data"].(map[string]interface{})
	if data["sandbox_id"] != res.SandboxID {
		t.Errorf("state for %v, want %s", data["sandbox_id"], res.SandboxID)
	}

	if err := conn.WriteJSON(map[string]interface{}{"type": "spawn_random"}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	msg := readUntil(t, conn, "error")
	if msg["message"] != "Controller token required" {
		t.Errorf("unexpected error message: %v", msg["message"])
	}
}

func TestControllerSpawnsAndSteps(t *testing.T) {
	srv, res := setupServer(t)
	conn := dial(t, srv, "/sandbox/"+res.SandboxID+"/ws?ct="+res.ControllerToken)
	readUntil(t, conn, "state")

	conn.WriteJSON(map[string]interface{}{"type": "pause"})
	readUntil(t, conn, "paused")

	conn.WriteJSON(map[string]interface{}{
		"type": "spawn",
		"data": map[string]interface{}{"x": 400, "y": 100, "radius": 10, "mass": 2},
	})
	ack := readUntil(t, conn, "spawned")
	if _, ok := ack["body_id"].(float64); !ok {
		t.Errorf("spawned ack without body_id: %v", ack)
	}

	conn.WriteJSON(map[string]interface{}{"type": "step"})
	frame := readUntil(t, conn, "frame")
	data, _ := frame["data"].(map[string]interface{})
	bodies, _ := data["bodies"].([]interface{})
	if len(bodies) != 3 {
		t.Errorf("frame has %d bodies, want 3", len(bodies))
	}
}

func TestInvalidParameterIsReported(t *testing.T) {
	srv, res := setupServer(t)
	conn := dial(t, srv, "/sandbox/"+res.SandboxID+"/ws?ct="+res.ControllerToken)
	readUntil(t, conn, "state")

	conn.WriteJSON(map[string]interface{}{"type": "set_friction", "data": map[string]interface{}{"value": 1.5}})
	msg := readUntil(t, conn, "error")
	if msg["field"] != "friction" {
		t.Errorf("error field = %v, want friction", msg["field"])
	}

	conn.WriteJSON(map[string]interface{}{"type": "set_friction", "data": map[string]interface{}{"value": 0.25}})
	update := readUntil(t, conn, "params_updated")
	params, _ := update["params"].(map[string]interface{})
	if params["friction"] != 0.25 {
		t.Errorf("announced friction = %v, want 0.25", params["friction"])
	}
}

func TestRejectsUnknownSandboxAndBadToken(t *testing.T) {
	srv, res := setupServer(t)
	base := "ws" + strings.TrimPrefix(srv.URL, "http")

	_, resp, err := websocket.DefaultDialer.Dial(base+"/sandbox/sbx_missing/ws", nil)
	if err == nil || resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for unknown sandbox, got err=%v resp=%v", err, resp)
	}

	_, resp, err = websocket.DefaultDialer.Dial(base+"/sandbox/"+res.SandboxID+"/ws?ct="+res.ViewerToken, nil)
	if err == nil || resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for viewer token as ct, got err=%v resp=%v", err, resp)
	}
}

func TestDeleteClosesRoom(t *testing.T) {
	srv, res := setupServer(t)
	conn := dial(t, srv, "/sandbox/"+res.SandboxID+"/ws")
	readUntil(t, conn, "state")

	if err := sandbox.Manager.Delete(res.SandboxID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	readUntil(t, conn, "sandbox_closed")
}

func TestJoinAfterDeleteReleasesClient(t *testing.T) {
	_, res := setupServer(t)
	if err := sandbox.Manager.Delete(res.SandboxID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	client := &Client{
		clientID:  newClientID(),
		sandboxID: res.SandboxID,
		send:      make(chan []byte, 4),
		joined:    make(chan struct{}),
	}
	if joinSandbox(client) {
		t.Fatalf("join should report the sandbox as gone")
	}
	if n := SandboxHub.RoomSize(res.SandboxID); n != 0 {
		t.Errorf("room of deleted sandbox has %d clients", n)
	}

	data, ok := <-client.send
	if !ok {
		t.Fatalf("expected a sandbox_closed message before the channel closed")
	}
	var msg map[string]interface{}
	if err := json.Unmarshal(data, &msg); err != nil || msg["type"] != "sandbox_closed" {
		t.Errorf("unexpected message %s (err=%v)", data, err)
	}
	if _, ok := <-client.send; ok {
		t.Errorf("send channel should be closed")
	}
}

func TestEventSubscriberRelaysRedisEvents(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		SetRedisClient(nil, testConfig())
		rdb.Close()
	})

	srv, res := setupServerWithRedis(t, rdb)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	StartEventSubscriber(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for mr.PubSubNumSub(sandbox.EventsChannel)[sandbox.EventsChannel] == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("subscriber never subscribed to %s", sandbox.EventsChannel)
		}
		time.Sleep(10 * time.Millisecond)
	}

	conn := dial(t, srv, "/sandbox/"+res.SandboxID+"/ws?ct="+res.ControllerToken)
	readUntil(t, conn, "state")

	conn.WriteJSON(map[string]interface{}{"type": "set_gravity", "data": map[string]interface{}{"value": 0.3}})
	msg := readUntil(t, conn, "params_updated")
	params, _ := msg["params"].(map[string]interface{})
	if params["gravity"] != 0.3 {
		t.Errorf("relayed gravity = %v, want 0.3", params["gravity"])
	}

	// Events from another instance reach this instance's room too.
	mr.Publish(sandbox.EventsChannel, `{"type":"captured","sandbox_id":"`+res.SandboxID+`","body_id":4,"zone":0,"score":2,"tick":9}`)
	captured := readUntil(t, conn, "captured")
	if captured["score"] != float64(2) {
		t.Errorf("relayed score = %v, want 2", captured["score"])
	}
}
