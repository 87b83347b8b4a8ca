package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"RatePulse/internal/domain/models"
	drepo "RatePulse/internal/domain/repository"
	xhttp "RatePulse/pkg/http"

	"github.com/gorilla/websocket"
)

// Client implements a RateStream backed by a competitor rate WebSocket feed.
type Client struct {
	apiKey         string
	websocketURL   string
	snapshotURL    string
	properties     []string
	reconnectDelay time.Duration
	pingInterval   time.Duration

	conn      *websocket.Conn
	http      *xhttp.Client
	connected bool
}

// New creates a new rate feed RateStream.
func New(apiKey, websocketURL, snapshotURL string, properties []string, reconnectDelay, pingInterval time.Duration) drepo.RateStream {
	return &Client{
		apiKey:         apiKey,
		websocketURL:   websocketURL,
		snapshotURL:    snapshotURL,
		properties:     properties,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		http:           xhttp.NewClient(xhttp.WithTimeout(10 * time.Second)),
	}
}

// Connect establishes the WebSocket connection.
func (c *Client) Connect(ctx context.Context) error {
	u := fmt.Sprintf("%s?token=%s", c.websocketURL, c.apiKey)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("rates connect: %w", err)
	}
	c.conn = conn
	c.connected = true
	log.Printf("rates: connected")
	return nil
}

// Subscribe subscribes to configured properties.
func (c *Client) Subscribe(ctx context.Context) error {
	if c.conn == nil || !c.connected {
		return fmt.Errorf("rates not connected")
	}
	for _, p := range c.properties {
		msg := map[string]string{"type": "subscribe", "property": p}
		if err := c.conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("subscribe %s: %w", p, err)
		}
		log.Printf("rates: subscribed %s", p)
	}
	return nil
}

type rateEvent struct {
	P string  `json:"p"`  // property id
	D string  `json:"d"`  // stay date YYYY-MM-DD
	R float64 `json:"r"`  // nightly rate
	S string  `json:"s"`  // source channel
	T int64   `json:"t"`  // ms
}

type rateMessage struct {
	Type string      `json:"type"`
	Data []rateEvent `json:"data"`
}

// Snapshot fetches current rates over HTTP, used to warm state before the
// stream delivers deltas. Returns nil when no snapshot URL is configured.
func (c *Client) Snapshot(ctx context.Context) ([]*models.CompetitorRate, error) {
	if c.snapshotURL == "" {
		return nil, nil
	}
	var resp struct {
		Data []rateEvent `json:"data"`
	}
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodGet,
		URL:     c.snapshotURL,
		Headers: map[string]string{"Authorization": "Bearer " + c.apiKey},
		QueryParams: map[string][]string{
			"properties": c.properties,
		},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("rates snapshot: %w", err)
	}
	out := make([]*models.CompetitorRate, 0, len(resp.Data))
	for _, d := range resp.Data {
		if r := toRate(d); r != nil {
			out = append(out, r)
		}
	}
	return out, nil
}

// Read streams CompetitorRate events and errors.
func (c *Client) Read(ctx context.Context) (<-chan *models.CompetitorRate, <-chan error) {
	rateCh := make(chan *models.CompetitorRate, 1024)
	errs := make(chan error, 1)

	// ping loop
	go func() {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if c.conn != nil {
					_ = c.conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(rateCh)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if c.conn == nil {
					errs <- fmt.Errorf("rates conn nil")
					return
				}
				_, b, err := c.conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("rates read: %w", err)
					return
				}
				var m rateMessage
				if err := json.Unmarshal(b, &m); err != nil {
					// ignore non-rate frames
					continue
				}
				if m.Type != "rate" {
					continue
				}
				for _, d := range m.Data {
					r := toRate(d)
					if r == nil {
						continue
					}
					select {
					case rateCh <- r:
					default:
						// drop on backpressure
					}
				}
			}
		}
	}()

	return rateCh, errs
}

func toRate(d rateEvent) *models.CompetitorRate {
	stay, err := time.Parse("2006-01-02", d.D)
	if err != nil {
		return nil
	}
	return &models.CompetitorRate{
		PropertyID: d.P,
		StayDate:   stay,
		Rate:       d.R,
		Source:     d.S,
		Timestamp:  time.Unix(d.T/1000, 0),
	}
}

// Reconnect closes and reconnects.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()
	time.Sleep(c.reconnectDelay)
	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx)
}

// Close closes the WS connection.
func (c *Client) Close() error {
	c.connected = false
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsConnected indicates status.
func (c *Client) IsConnected() bool { return c.connected }
