package server

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/kkrugley/MemePulseAI/internal/app"
	"github.com/kkrugley/MemePulseAI/internal/page"
	"github.com/kkrugley/MemePulseAI/internal/training"
)

const wsWriteTimeout = 5 * time.Second

// HealthResponse はヘルスチェックのレスポンス
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorResponse はエラー時のレスポンス
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// SubjectRequest は対象ID変更リクエスト
type SubjectRequest struct {
	MemeID string `json:"meme_id" binding:"required"`
}

// TrainResponse は学習ボタン押下のレスポンス
type TrainResponse struct {
	Status string     `json:"status"`
	Page   page.State `json:"page"`
}

// handleHealth はヘルスチェックエンドポイント
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
	})
}

// handleStatus はページ状態の取得エンドポイント
func (s *Server) handleStatus(c *gin.Context) {
	status, err := s.app.Status()
	if err != nil {
		respondError(c, http.StatusServiceUnavailable, "page_not_loaded", err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// handleSetSubject は隠しフィールドの値を変更する
func (s *Server) handleSetSubject(c *gin.Context) {
	var req SubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	if err := s.app.SetSubject(req.MemeID); err != nil {
		respondError(c, http.StatusServiceUnavailable, "page_not_loaded", err)
		return
	}

	p, _ := s.app.Page()
	c.JSON(http.StatusOK, p.Snapshot())
}

// handleTrain は学習ボタンを押す
func (s *Server) handleTrain(c *gin.Context) {
	err := s.app.Train(c.Request.Context())
	switch {
	case errors.Is(err, training.ErrBusy):
		respondError(c, http.StatusConflict, "button_disabled", err)
		return
	case err != nil:
		respondError(c, http.StatusServiceUnavailable, "page_not_loaded", err)
		return
	}

	p, _ := s.app.Page()
	c.JSON(http.StatusAccepted, TrainResponse{
		Status: "accepted",
		Page:   p.Snapshot(),
	})
}

// handleFrame は映像面の現在のフレームを左右反転したJPEGで返す
func (s *Server) handleFrame(c *gin.Context) {
	data, err := s.app.Preview()
	if err != nil {
		if errors.Is(err, app.ErrSurfaceNotReady) {
			respondError(c, http.StatusServiceUnavailable, "surface_not_ready", err)
			return
		}
		respondError(c, http.StatusInternalServerError, "encode_failed", err)
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Data(http.StatusOK, "image/jpeg", data)
}

// handleWebSocket はページ状態の変化をWebSocketで配信する
func (s *Server) handleWebSocket(c *gin.Context) {
	p, err := s.app.Page()
	if err != nil {
		respondError(c, http.StatusServiceUnavailable, "page_not_loaded", err)
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocketのアップグレードに失敗しました: %v", err)
		return
	}
	defer conn.Close()

	updates, unsubscribe := p.Subscribe()
	defer unsubscribe()

	// クライアント切断を検知するための読み込みループ
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := writeState(conn, p.Snapshot()); err != nil {
		return
	}

	for {
		select {
		case <-closed:
			return
		case state, ok := <-updates:
			if !ok {
				return
			}
			if err := writeState(conn, state); err != nil {
				return
			}
		}
	}
}

// handleRoot はビューアHTMLを返す
func (s *Server) handleRoot(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(indexHTML))
}

// ヘルパー関数

func writeState(conn *websocket.Conn, state page.State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}

func respondError(c *gin.Context, status int, code string, err error) {
	c.JSON(status, ErrorResponse{
		Error:     code,
		Message:   err.Error(),
		Timestamp: time.Now(),
	})
}
