package handlers

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"sharehub/models"
	"sharehub/votes"
)

// Event is one message pushed to connected pages: session changes, new
// posts, vote updates and recomputed feed views.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// command is what a connected page sends: filter input and show-more
// clicks, mirrored into the feed store.
type command struct {
	Type     string `json:"type"`
	Keyword  string `json:"keyword,omitempty"`
	Category string `json:"category,omitempty"`
}

type Client struct {
	conn  *websocket.Conn
	email string
}

var (
	upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	clients  = make(map[*websocket.Conn]*Client)
	events   = make(chan Event, 64)
	mu       sync.Mutex
)

func (c *Client) SendJSON(v interface{}) error {
	return c.conn.WriteJSON(v)
}

// HandleConnections upgrades the request and mirrors the page's filter
// input into the feed store until the socket closes.
func HandleConnections(w http.ResponseWriter, r *http.Request) {
	user, err := CurrentUser(r)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Error("WebSocket upgrade error")
		return
	}
	defer conn.Close()

	client := &Client{conn: conn}
	if user != nil {
		client.email = user.Email
	}

	mu.Lock()
	clients[conn] = client
	mu.Unlock()

	// Initial snapshot so the page renders without a separate fetch.
	conn.WriteJSON(Event{Type: "feed", Payload: Feed.Visible()})

	for {
		var cmd command
		if err := conn.ReadJSON(&cmd); err != nil {
			break
		}
		switch cmd.Type {
		case "search":
			Feed.SetKeyword(cmd.Keyword)
		case "category":
			Feed.SetCategory(cmd.Category)
		case "show_more":
			Feed.ShowMore()
		}
	}

	mu.Lock()
	delete(clients, conn)
	mu.Unlock()
}

// HandleEvents fans events out to every connected page. Run it once
// from main.
func HandleEvents() {
	for ev := range events {
		mu.Lock()
		for conn, client := range clients {
			if err := client.SendJSON(ev); err != nil {
				log.WithError(err).Warn("Broadcast error")
				conn.Close()
				delete(clients, conn)
			}
		}
		mu.Unlock()
	}
}

// send queues an event without ever blocking the caller. A full queue
// drops the event, pages resync on their next fetch.
func send(ev Event) {
	select {
	case events <- ev:
	default:
	}
}

// BroadcastFeed pushes a recomputed visible view. The feed store calls
// it through its OnRefresh hook.
func BroadcastFeed(view []models.PostWithVotes) {
	send(Event{Type: "feed", Payload: view})
}

func BroadcastSession(event, email string) {
	send(Event{Type: "session", Payload: map[string]string{
		"event": event,
		"email": email,
	}})
}

func BroadcastPost(title, postType, category, author string) {
	send(Event{Type: "post", Payload: map[string]string{
		"title":    title,
		"type":     postType,
		"category": category,
		"author":   author,
	}})
}

func BroadcastVote(postID int, c votes.Counts) {
	send(Event{Type: "vote", Payload: map[string]interface{}{
		"post_id": postID,
		"up":      c.Up,
		"down":    c.Down,
	}})
}
