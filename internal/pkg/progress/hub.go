// Package progress 按项目向 WebSocket 客户端推送进度
package progress

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	subscriberSize = 32
)

// Hub 进度订阅中心
// 慢订阅者的缓冲区满时丢弃消息，不阻塞发布者
type Hub struct {
	mu       sync.RWMutex
	subs     map[string]map[chan []byte]struct{}
	last     map[string][]byte
	upgrader websocket.Upgrader
}

// NewHub 创建订阅中心
func NewHub() *Hub {
	return &Hub{
		subs: make(map[string]map[chan []byte]struct{}),
		last: make(map[string][]byte),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Publish 向 key 的全部订阅者推送消息，并记住最后一条
func (h *Hub) Publish(key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("进度消息序列化失败")
		return
	}

	h.mu.Lock()
	h.last[key] = data
	for ch := range h.subs[key] {
		select {
		case ch <- data:
		default:
		}
	}
	h.mu.Unlock()
}

// Subscribe 订阅 key，若已有进度则先收到最后一条
func (h *Hub) Subscribe(key string) (<-chan []byte, func()) {
	ch := make(chan []byte, subscriberSize)

	h.mu.Lock()
	if h.subs[key] == nil {
		h.subs[key] = make(map[chan []byte]struct{})
	}
	h.subs[key][ch] = struct{}{}
	if last, ok := h.last[key]; ok {
		ch <- last
	}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[key], ch)
			if len(h.subs[key]) == 0 {
				delete(h.subs, key)
			}
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Forget 清除 key 的最后进度
func (h *Hub) Forget(key string) {
	h.mu.Lock()
	delete(h.last, key)
	h.mu.Unlock()
}

// Subscribers 当前订阅者数量
func (h *Hub) Subscribers(key string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[key])
}

// ServeWS 升级为 WebSocket 并持续推送 key 的进度，直到客户端断开
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, key string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("WebSocket 升级失败")
		return
	}
	defer conn.Close()

	msgs, unsubscribe := h.Subscribe(key)
	defer unsubscribe()

	// 读循环只用于感知断开与处理 pong
	closed := make(chan struct{})
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case data, ok := <-msgs:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
