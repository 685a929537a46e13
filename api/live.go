package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	errs "github.com/tidepool-org/vitals/errors"
	"github.com/tidepool-org/vitals/monitor"
	"github.com/tidepool-org/vitals/readings"
	"github.com/tidepool-org/vitals/series"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBufferSize = 8
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Sessions are bearer tokens passed explicitly, never cookies
	CheckOrigin: func(r *http.Request) bool { return true },
}

// LiveMessage is sent to the browser after every poll
type LiveMessage struct {
	Series *monitor.Series `json:"series,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// WindowRequest is sent by the browser to change the window of the live series
type WindowRequest struct {
	Window string     `json:"window"`
	From   *time.Time `json:"from,omitempty"`
	To     *time.Time `json:"to,omitempty"`
}

// GetLiveSeries streams the series of the patient over a websocket until the client
// disconnects. Browsers cannot set headers on websockets, the session token is passed
// in the token query parameter.
func (h *Handler) GetLiveSeries(ec echo.Context) error {
	req := ec.Request()
	patientId, metric := seriesParams(ec)
	if !readings.IsSupported(metric) {
		return fmt.Errorf("%w: %w: %s", errs.BadRequest, readings.ErrUnsupportedMetric, metric)
	}
	window, err := parseWindow(ec)
	if err != nil {
		return err
	}

	conn, err := upgrader.Upgrade(ec.Response(), req, nil)
	if err != nil {
		// The upgrader already replied with an error
		h.logger.Warnw("unable to upgrade connection", "patientId", patientId, zap.Error(err))
		return nil
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(requestContext(ec))
	defer cancel()

	send := make(chan LiveMessage, sendBufferSize)
	enqueue := func(message LiveMessage) {
		select {
		case send <- message:
		default:
			h.logger.Warnw("dropping live series update of a slow client", "patientId", patientId, "metric", metric)
		}
	}

	watch, err := h.monitor.Watch(ctx, patientId, metric, window, func(s *monitor.Series, err error) {
		message := LiveMessage{Series: s}
		if err != nil {
			message.Error = mapError(err).Error()
		}
		enqueue(message)
	})
	if err != nil {
		closeMessage := websocket.FormatCloseMessage(websocket.CloseInternalServerErr, mapError(err).Error())
		_ = conn.WriteControl(websocket.CloseMessage, closeMessage, time.Now().Add(writeWait))
		return nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.writePump(ctx, conn, send)
	}()

	h.readPump(conn, watch, enqueue)

	cancel()
	watch.Stop()
	<-done

	h.logger.Infow("live series closed", "patientId", patientId, "metric", metric)
	return nil
}

func (h *Handler) readPump(conn *websocket.Conn, watch *monitor.Watch, enqueue func(LiveMessage)) {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warnw("websocket read error", zap.Error(err))
			}
			return
		}

		request := WindowRequest{}
		if err := json.Unmarshal(message, &request); err != nil {
			enqueue(LiveMessage{Error: fmt.Sprintf("invalid message: %v", err)})
			continue
		}
		window, err := series.ParseWindow(request.Window, request.From, request.To)
		if err != nil {
			enqueue(LiveMessage{Error: err.Error()})
			continue
		}
		watch.SetWindow(window)
	}
}

func (h *Handler) writePump(ctx context.Context, conn *websocket.Conn, send <-chan LiveMessage) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		// Unblocks the reader
		_ = conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case message := <-send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(message); err != nil {
				h.logger.Warnw("websocket write error", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.logger.Warnw("websocket ping error", zap.Error(err))
				return
			}
		}
	}
}
