package training

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

// ErrTraining は学習エンドポイント呼び出しの失敗を表す
var ErrTraining = errors.New("学習の開始に失敗しました")

// DefaultEndpoint は学習エンドポイントの既定値
const DefaultEndpoint = "http://127.0.0.1:5000/train"

// Response は学習エンドポイントのレスポンス
type Response struct {
	Message string `json:"message" validate:"required"`
}

// Client は学習エンドポイントのクライアント
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

// Train は本文なしのGETで学習を依頼し、返されたメッセージを返す
func (c *Client) Train(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTraining, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: 通信エラー: %v", ErrTraining, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("%w: サーバーエラー: %d", ErrTraining, resp.StatusCode)
	}

	var result Response
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("%w: レスポンスのデコードに失敗: %v", ErrTraining, err)
	}
	if err := c.validate.Struct(result); err != nil {
		return "", fmt.Errorf("%w: レスポンスが不正です: %v", ErrTraining, err)
	}

	return result.Message, nil
}
