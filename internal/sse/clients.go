// Package sse streams board events to connected browsers.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/debemdeboas/feedback-board/internal/config"
	"github.com/debemdeboas/feedback-board/internal/model"
	"github.com/rs/zerolog"
)

const EventPostCreated = "post-created"

// clientBuffer is how many undelivered events a slow client may queue before
// further events are dropped for it.
const clientBuffer = 16

var sseLogger zerolog.Logger = zerolog.Nop()

func SetLogger(l zerolog.Logger) {
	sseLogger = l
}

type Event struct {
	Name string
	Data string
}

type Client struct {
	Msg chan Event
}

type Clients struct {
	clients map[*Client]bool
	mu      sync.RWMutex
}

func NewClients() *Clients {
	return &Clients{
		clients: make(map[*Client]bool),
	}
}

func (s *Clients) Add() *Client {
	client := &Client{Msg: make(chan Event, clientBuffer)}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[client] = true
	return client
}

func (s *Clients) Delete(client *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clients[client] {
		delete(s.clients, client)
		close(client.Msg)
	}
}

func (s *Clients) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Broadcast queues ev for every client without blocking.
func (s *Clients) Broadcast(ev Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for client := range s.clients {
		select {
		case client.Msg <- ev:
		default:
			sseLogger.Warn().Str("event", ev.Name).Msg("Dropping event for slow SSE client")
		}
	}
}

type postCreated struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	URL    string `json:"url"`
	Status string `json:"status"`
	Module string `json:"module,omitempty"`
}

// NotifyPostCreated announces a new post to every connected board.
func (s *Clients) NotifyPostCreated(post *model.Post) {
	data, err := json.Marshal(postCreated{
		Number: post.Number,
		Title:  post.Title,
		URL:    post.URL(),
		Status: post.Status,
		Module: post.Module,
	})
	if err != nil {
		sseLogger.Error().Err(err).Int("number", post.Number).Msg("Failed to encode post event")
		return
	}
	s.Broadcast(Event{Name: EventPostCreated, Data: string(data)})
}

// ServeHTTP streams events until the client disconnects.
func (s *Clients) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	l := zerolog.Ctx(r.Context())

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set(config.HCType, config.CTypeEventFeed)
	w.Header().Set(config.HCacheControl, "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Del("X-Content-Type-Options")

	client := s.Add()
	defer func() {
		s.Delete(client)
		l.Debug().Msg("SSE client disconnected")
	}()
	l.Debug().Msg("New SSE client connected")

	fmt.Fprintf(w, "event: connected\ndata: SSE connection established\n\n")
	flusher.Flush()

	notify := r.Context().Done()
	for {
		select {
		case ev, ok := <-client.Msg:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Name, ev.Data)
			flusher.Flush()
		case <-notify:
			return
		}
	}
}
