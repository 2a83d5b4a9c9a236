// Package analysis はスナップショットを遠隔の感情解析エンドポイントへ送る
package analysis

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/kkrugley/MemePulseAI/internal/frame"
)

// ErrAnalysis は解析呼び出しの失敗を表す
// ステータス異常・通信エラー・不正なレスポンスを区別しない
var ErrAnalysis = errors.New("解析に失敗しました")

// DefaultEndpoint は解析エンドポイントの既定値
const DefaultEndpoint = "http://127.0.0.1:5000/analyze"

// Request は解析エンドポイントへのリクエスト本文
type Request struct {
	Image  string `json:"image"`
	MemeID string `json:"meme_id"`
}

// Response は解析エンドポイントの成功レスポンス
type Response struct {
	Emotion string `json:"emotion" validate:"required"`
}

// Client は解析エンドポイントのクライアント
type Client struct {
	endpoint   string
	httpClient *http.Client
	validate   *validator.Validate
}

// NewClient は新しいClientを作成する
func NewClient(endpoint string, timeout time.Duration) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
		validate:   validator.New(),
	}
}

// Endpoint は送信先URLを返す
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Analyze はスナップショットと対象IDを送り、ラベルを返す
// 再試行は行わず、呼び出し1回につき1リクエストだけ送る
func (c *Client) Analyze(ctx context.Context, snapshot frame.Snapshot, subjectID string) (string, error) {
	body, err := json.Marshal(Request{Image: string(snapshot), MemeID: subjectID})
	if err != nil {
		return "", fmt.Errorf("%w: リクエストの作成に失敗: %v", ErrAnalysis, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: リクエストの作成に失敗: %v", ErrAnalysis, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: 通信エラー: %v", ErrAnalysis, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("%w: サーバーエラー: %d", ErrAnalysis, resp.StatusCode)
	}

	var result Response
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("%w: レスポンスのデコードに失敗: %v", ErrAnalysis, err)
	}
	if err := c.validate.Struct(result); err != nil {
		return "", fmt.Errorf("%w: レスポンスが不正です: %v", ErrAnalysis, err)
	}

	return result.Emotion, nil
}
