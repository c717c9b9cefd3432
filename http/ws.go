package http

import (
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
)

// handlePredictWS 每条消息是一份表单，每条回复是一次预测结果，连接之间不共享状态
func (h *Handlers) handlePredictWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.deps.Logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	defer func() {
		h.deps.Logger.Debug("websocket closed",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.Duration("duration", time.Since(GetStartTime(r.Context()))))
	}()

	if h.deps.Metrics != nil {
		h.deps.Metrics.WebSocketOpened()
		defer h.deps.Metrics.WebSocketClosed()
	}

	conn.SetReadLimit(h.deps.MaxBodyBytes)
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	done := make(chan struct{})
	defer close(done)
	go h.pingLoop(conn, done)

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.deps.Logger.Warn("websocket read failed", zap.Error(err))
			}
			return
		}

		var resp predictResponse
		var req predictRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			resp = newPredictResponse(invalidInput(err), nil)
		} else {
			resp = newPredictResponse(h.predict(req))
		}

		conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteJSON(resp); err != nil {
			h.deps.Logger.Warn("websocket write failed", zap.Error(err))
			return
		}
	}
}

// pingLoop 与读循环并发运行；gorilla允许一个写协程与WriteControl并发
func (h *Handlers) pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}

func (h *Handlers) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.deps.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	u, err := url.Parse(origin)
	return err == nil && u.Host == r.Host
}
