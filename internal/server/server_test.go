package server

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/kkrugley/MemePulseAI/internal/app"
	"github.com/kkrugley/MemePulseAI/internal/camera"
	"github.com/kkrugley/MemePulseAI/internal/config"
	"github.com/kkrugley/MemePulseAI/internal/frame"
	"github.com/kkrugley/MemePulseAI/internal/observability"
	"github.com/kkrugley/MemePulseAI/internal/page"
	"github.com/kkrugley/MemePulseAI/internal/poller"
	"github.com/kkrugley/MemePulseAI/internal/training"
)

type stubAnalyzer struct{}

func (stubAnalyzer) Analyze(context.Context, frame.Snapshot, string) (string, error) {
	return "happy", nil
}

type stubTrainer struct{}

func (stubTrainer) Train(context.Context) (string, error) {
	return "Модель обучена", nil
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	cfg.Page.SubjectID = "abc123"
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config, metrics *observability.Metrics, ticks chan time.Time, load bool) *app.App {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 32, 24))
	for x := 0; x < 32; x++ {
		img.Set(x, 0, color.RGBA{0, 255, 0, 255})
	}

	acquirer := camera.NewAcquirer("", camera.Settings{FPS: 15, Width: 32, Height: 24},
		camera.WithDiscovery(camera.NewMockDiscovery([]string{"/dev/video0"})),
		camera.WithLookPath(func(string) (string, error) { return "/usr/bin/ffmpeg", nil }),
		camera.WithStreamFactory(func(string, camera.Settings) camera.Stream {
			return camera.NewMockStream(img)
		}),
	)

	a := app.New(cfg, metrics,
		app.WithAcquirer(acquirer),
		app.WithAnalyzer(stubAnalyzer{}),
		app.WithTrainer(stubTrainer{}),
		app.WithPollerOptions(poller.WithTickSource(ticks)),
		app.WithTriggerOptions(training.WithClock(training.NewManualClock())),
	)
	if load {
		if err := a.Load(context.Background()); err != nil {
			t.Fatalf("ページの読み込みに失敗しました: %v", err)
		}
		t.Cleanup(func() { _ = a.Close(context.Background()) })
	}
	return a
}

func newTestServer(t *testing.T, load bool) (*httptest.Server, *app.App, chan time.Time) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := testConfig()
	metrics := observability.NewMetrics(cfg.Metrics.Namespace)
	ticks := make(chan time.Time)
	a := newTestApp(t, cfg, metrics, ticks, load)

	srv := New(cfg, a, metrics)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, a, ticks
}

// TestServerStartAndShutdown はサーバーの起動とシャットダウンをテストする
func TestServerStartAndShutdown(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cfg := testConfig()
	srv := New(cfg, newTestApp(t, cfg, nil, make(chan time.Time), true), nil)

	// テスト用のコンテキスト（タイムアウト付き）
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// サーバーを別ゴルーチンで起動
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	// サーバーが起動するまで少し待つ
	time.Sleep(100 * time.Millisecond)

	// コンテキストをキャンセルしてサーバーを停止
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("サーバーの起動/停止でエラーが発生しました: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("サーバーの停止がタイムアウトしました")
	}
}

// TestServerEndpoints はサーバーのエンドポイントをテストする
func TestServerEndpoints(t *testing.T) {
	ts, _, _ := newTestServer(t, true)

	testCases := []struct {
		name        string
		path        string
		status      int
		contentType string
		contains    string
	}{
		{
			name:        "ルートパス",
			path:        "/",
			status:      http.StatusOK,
			contentType: "text/html",
			contains:    "Обучить модель",
		},
		{
			name:        "ヘルスチェック",
			path:        "/health",
			status:      http.StatusOK,
			contentType: "application/json",
			contains:    "healthy",
		},
		{
			name:        "ステータス",
			path:        "/api/status",
			status:      http.StatusOK,
			contentType: "application/json",
			contains:    `"meme_id":"abc123"`,
		},
		{
			name:        "フレーム",
			path:        "/api/frame",
			status:      http.StatusOK,
			contentType: "image/jpeg",
		},
		{
			name:        "メトリクス",
			path:        "/metrics",
			status:      http.StatusOK,
			contains:    "memepulse_camera_bound 1",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := http.Get(ts.URL + tc.path)
			if err != nil {
				t.Fatalf("リクエストに失敗しました: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tc.status {
				t.Errorf("ステータスコードが一致しません: got %d, want %d", resp.StatusCode, tc.status)
			}
			if tc.contentType != "" && !strings.HasPrefix(resp.Header.Get("Content-Type"), tc.contentType) {
				t.Errorf("Content-Typeが一致しません: got %s, want %s", resp.Header.Get("Content-Type"), tc.contentType)
			}
			if tc.contains != "" {
				body, _ := io.ReadAll(resp.Body)
				if !strings.Contains(string(body), tc.contains) {
					t.Errorf("レスポンスに %q が含まれていません: %s", tc.contains, body)
				}
			}
		})
	}
}

// TestServerNotLoaded はページ読み込み前の応答をテストする
func TestServerNotLoaded(t *testing.T) {
	ts, _, _ := newTestServer(t, false)

	for _, path := range []string{"/api/status", "/api/frame"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("リクエストに失敗しました: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("%s: Expected 503, got %d", path, resp.StatusCode)
		}
	}
}

// TestSetSubject は対象IDの変更をテストする
func TestSetSubject(t *testing.T) {
	ts, a, _ := newTestServer(t, true)

	testCases := []struct {
		name   string
		body   string
		status int
	}{
		{name: "正常", body: `{"meme_id":"meme-9"}`, status: http.StatusOK},
		{name: "IDなし", body: `{}`, status: http.StatusBadRequest},
		{name: "不正なJSON", body: `{`, status: http.StatusBadRequest},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodPut, ts.URL+"/api/subject", bytes.NewBufferString(tc.body))
			if err != nil {
				t.Fatalf("リクエストの作成に失敗しました: %v", err)
			}
			req.Header.Set("Content-Type", "application/json")

			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("リクエストに失敗しました: %v", err)
			}
			resp.Body.Close()

			if resp.StatusCode != tc.status {
				t.Errorf("Expected %d, got %d", tc.status, resp.StatusCode)
			}
		})
	}

	p, _ := a.Page()
	if p.Subject.Value() != "meme-9" {
		t.Errorf("Expected meme-9, got %s", p.Subject.Value())
	}
}

// TestTrainEndpoint は学習ボタンの押下をテストする
func TestTrainEndpoint(t *testing.T) {
	ts, _, _ := newTestServer(t, true)

	resp, err := http.Post(ts.URL+"/api/train", "application/json", nil)
	if err != nil {
		t.Fatalf("リクエストに失敗しました: %v", err)
	}
	var body TrainResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("レスポンスのデコードに失敗しました: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		t.Errorf("Expected 202, got %d", resp.StatusCode)
	}
	if !body.Page.ButtonDisabled {
		t.Error("Expected button to be disabled after click")
	}

	// クールダウン中は押せない
	resp, err = http.Post(ts.URL+"/api/train", "application/json", nil)
	if err != nil {
		t.Fatalf("リクエストに失敗しました: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("Expected 409, got %d", resp.StatusCode)
	}
}

// TestWebSocketPushesState はWebSocketでの状態配信をテストする
func TestWebSocketPushesState(t *testing.T) {
	ts, _, ticks := newTestServer(t, true)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("WebSocket接続に失敗しました: %v", err)
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))

	var state page.State
	if err := conn.ReadJSON(&state); err != nil {
		t.Fatalf("初期状態の受信に失敗しました: %v", err)
	}
	if state.Result != page.DefaultResultText {
		t.Errorf("Expected initial result %q, got %q", page.DefaultResultText, state.Result)
	}

	// ティックを1回進めると解析結果が配信される
	ticks <- time.Now()

	for {
		if err := conn.ReadJSON(&state); err != nil {
			t.Fatalf("状態の受信に失敗しました: %v", err)
		}
		if state.Result == "Радость 😄" {
			break
		}
	}
}
