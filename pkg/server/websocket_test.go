package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"

	"github.com/vango-dev/storefront/pkg/filter"
)

// wireMessage decodes ServerMessage with the page data left raw.
type wireMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
	Hash      string `json:"hash"`
	Mode      string `json:"mode"`
	State     *struct {
		ActivePage string          `json:"activePage"`
		PageData   json.RawMessage `json:"pageData"`
		Filters    filter.State    `json:"filters"`
		PageNumber int             `json:"pageNumber"`
	} `json:"state"`
	Error *struct {
		Code  string `json:"code"`
		Field string `json:"field"`
	} `json:"error"`
}

func dialSession(t *testing.T, s *testServer, hash string) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(s)
	t.Cleanup(ts.Close)

	u := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	if hash != "" {
		u += "?hash=" + url.QueryEscape(hash)
	}
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if msg := readMessage(t, conn); msg.Type != MsgHello || msg.SessionID == "" {
		t.Fatalf("first message: got %+v, want hello with a session ID", msg)
	}
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) wireMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg wireMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	return msg
}

func send(t *testing.T, conn *websocket.Conn, msg string) {
	t.Helper()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
}

// expect reads len(types) messages and checks their types in order.
func expect(t *testing.T, conn *websocket.Conn, types ...string) []wireMessage {
	t.Helper()
	out := make([]wireMessage, 0, len(types))
	for _, want := range types {
		msg := readMessage(t, conn)
		if msg.Type != want {
			t.Fatalf("message %d: got type %q (%+v), want %q", len(out), msg.Type, msg, want)
		}
		out = append(out, msg)
	}
	return out
}

func TestWebSocketStartDeepLink(t *testing.T) {
	s := newTestServer(t)
	conn := dialSession(t, s, "#/shop?brands=Nike&page=2")

	msg := expect(t, conn, MsgState)[0]
	if msg.State.ActivePage != "shop" || msg.State.PageNumber != 2 {
		t.Errorf("state: got %s page %d, want shop page 2", msg.State.ActivePage, msg.State.PageNumber)
	}
	if diff := cmp.Diff([]string{"Nike"}, msg.State.Filters.Brands); diff != "" {
		t.Errorf("brands mismatch (-want +got):\n%s", diff)
	}
}

func TestWebSocketDefaultsToHome(t *testing.T) {
	s := newTestServer(t)
	conn := dialSession(t, s, "")

	if msg := expect(t, conn, MsgState)[0]; msg.State.ActivePage != "home" {
		t.Errorf("activePage: got %q, want home", msg.State.ActivePage)
	}
}

func TestWebSocketNavigate(t *testing.T) {
	s := newTestServer(t)
	conn := dialSession(t, s, "#/home")
	expect(t, conn, MsgState)

	send(t, conn, `{"type":"navigate","page":"search","fields":{"q":"red boots"}}`)
	msgs := expect(t, conn, MsgLocation, MsgScroll, MsgState)

	if msgs[0].Hash != "#/search?q=red+boots" || msgs[0].Mode != ModePush {
		t.Errorf("location: got %q %s, want #/search?q=red+boots push", msgs[0].Hash, msgs[0].Mode)
	}
	if got := msgs[2].State.ActivePage; got != "search" {
		t.Errorf("activePage: got %q, want search", got)
	}
	if !strings.Contains(string(msgs[2].State.PageData), `"q":"red boots"`) {
		t.Errorf("pageData: got %s, want the q field", msgs[2].State.PageData)
	}
}

func TestWebSocketNavigateProduct(t *testing.T) {
	s := newTestServer(t)
	conn := dialSession(t, s, "")
	expect(t, conn, MsgState)

	send(t, conn, `{"type":"navigate","page":"product","product":{"id":42,"name":"Sample Boot","brand":"Acme","category":"shoes","price":10}}`)
	msgs := expect(t, conn, MsgLocation, MsgScroll, MsgState)

	if msgs[0].Hash != "#/product?id=42" {
		t.Errorf("location: got %q, want #/product?id=42", msgs[0].Hash)
	}
	if !strings.Contains(string(msgs[2].State.PageData), `"name":"Sample Boot"`) {
		t.Errorf("pageData: got %s, want the cached product", msgs[2].State.PageData)
	}
}

func TestWebSocketUnknownProductRedirects(t *testing.T) {
	s := newTestServer(t)
	conn := dialSession(t, s, "#/product?id=999")

	msgs := expect(t, conn, MsgLocation, MsgState)
	if msgs[0].Hash != "#/home" || msgs[0].Mode != ModeReplace {
		t.Errorf("location: got %q %s, want #/home replace", msgs[0].Hash, msgs[0].Mode)
	}
	if msgs[1].State.ActivePage != "home" {
		t.Errorf("activePage: got %q, want home", msgs[1].State.ActivePage)
	}
}

func TestWebSocketFiltersResetPage(t *testing.T) {
	s := newTestServer(t)
	conn := dialSession(t, s, "#/shop?page=3")
	expect(t, conn, MsgState)

	send(t, conn, `{"type":"filters","filters":{"brands":["Zara"]}}`)
	msgs := expect(t, conn, MsgLocation, MsgState)

	if msgs[0].Hash != "#/shop?brands=Zara" || msgs[0].Mode != ModeReplace {
		t.Errorf("location: got %q %s, want #/shop?brands=Zara replace", msgs[0].Hash, msgs[0].Mode)
	}
	st := msgs[1].State
	if st.PageNumber != 1 {
		t.Errorf("pageNumber: got %d, want 1", st.PageNumber)
	}
	if st.Filters.PriceRange.Max != filter.DefaultMaxPrice {
		t.Errorf("missing fields should keep defaults: maxPrice %d", st.Filters.PriceRange.Max)
	}
}

func TestWebSocketPageAndBack(t *testing.T) {
	s := newTestServer(t)
	conn := dialSession(t, s, "#/shop")
	expect(t, conn, MsgState)

	send(t, conn, `{"type":"page","number":2}`)
	msgs := expect(t, conn, MsgLocation, MsgScroll, MsgState)
	if msgs[0].Hash != "#/shop?page=2" || msgs[0].Mode != ModePush {
		t.Errorf("location: got %q %s, want #/shop?page=2 push", msgs[0].Hash, msgs[0].Mode)
	}

	send(t, conn, `{"type":"back"}`)
	msgs = expect(t, conn, MsgLocation, MsgState)
	if msgs[0].Hash != "#/shop" || msgs[0].Mode != ModeBack {
		t.Errorf("location: got %q %s, want #/shop back", msgs[0].Hash, msgs[0].Mode)
	}
	if msgs[1].State.PageNumber != 1 {
		t.Errorf("pageNumber after back: got %d, want 1", msgs[1].State.PageNumber)
	}
}

func TestWebSocketHashChange(t *testing.T) {
	s := newTestServer(t)
	conn := dialSession(t, s, "#/home")
	expect(t, conn, MsgState)

	send(t, conn, `{"type":"hashchange","hash":"#/cart"}`)
	if msg := expect(t, conn, MsgState)[0]; msg.State.ActivePage != "cart" {
		t.Errorf("activePage: got %q, want cart", msg.State.ActivePage)
	}

	// The echo of an applied fragment produces no state message, so the
	// next message is the answer to sync.
	send(t, conn, `{"type":"hashchange","hash":"#/cart"}`)
	send(t, conn, `{"type":"sync"}`)
	if msg := expect(t, conn, MsgState)[0]; msg.State.ActivePage != "cart" {
		t.Errorf("activePage after sync: got %q, want cart", msg.State.ActivePage)
	}
}

func TestWebSocketBlockedHistory(t *testing.T) {
	s := newTestServer(t)
	conn := dialSession(t, s, "#/home")
	expect(t, conn, MsgState)

	send(t, conn, `{"type":"blocked","blocked":true}`)
	send(t, conn, `{"type":"navigate","page":"wishlist"}`)

	msgs := expect(t, conn, MsgScroll, MsgState)
	if msgs[1].State.ActivePage != "wishlist" {
		t.Errorf("activePage: got %q, want wishlist despite the blocked history", msgs[1].State.ActivePage)
	}
}

func TestWebSocketInvalidMessages(t *testing.T) {
	tests := []struct {
		name      string
		msg       string
		wantField string
	}{
		{"not json", `{"type":`, ""},
		{"unknown type", `{"type":"teleport"}`, "type"},
		{"navigate without page", `{"type":"navigate"}`, "page"},
		{"filters without filters", `{"type":"filters"}`, "filters"},
		{"bad filters", `{"type":"filters","filters":{"brands":"Nike"}}`, "filters"},
		{"bad product", `{"type":"navigate","page":"product","product":{"id":0}}`, "product"},
	}

	s := newTestServer(t)
	conn := dialSession(t, s, "")
	expect(t, conn, MsgState)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			send(t, conn, tt.msg)
			msg := expect(t, conn, MsgError)[0]
			if msg.Error.Code != "SF060" || msg.Error.Field != tt.wantField {
				t.Errorf("error: got %s on %q, want SF060 on %q", msg.Error.Code, msg.Error.Field, tt.wantField)
			}
		})
	}
}

func TestWebSocketCrossOriginRejected(t *testing.T) {
	s := newTestServer(t)
	ts := httptest.NewServer(s)
	defer ts.Close()

	header := http.Header{"Origin": []string{"https://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", header)
	if err == nil {
		t.Fatal("Dial: want handshake error")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("response: got %v, want 403", resp)
	}
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Error.Code != "SF061" {
		t.Errorf("code: got %q, want SF061", body.Error.Code)
	}
}

func TestWebSocketShutdownClosesSessions(t *testing.T) {
	s := newTestServer(t)
	conn := dialSession(t, s, "")
	expect(t, conn, MsgState)

	if got := s.Sessions().Count(); got != 1 {
		t.Errorf("sessions: got %d, want 1", got)
	}

	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Errorf("ReadMessage after shutdown: got %v, want normal closure", err)
	}
}
