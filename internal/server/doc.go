// Package server は、ページ状態を公開するHTTPサーバーとWebSocket通信を管理します。
//
// このパッケージは、HTTPサーバーの起動、ルーティング、
// WebSocket接続の管理、ビューアHTMLの配信を担当します。
//
// 責務:
//   - HTTPサーバーの起動と管理
//   - ページ状態（結果テキスト、学習ボタン、隠しフィールド）の公開
//   - 学習ボタン押下と対象ID変更のリクエスト処理
//   - WebSocketによる状態変化の配信
//   - Prometheusメトリクスの公開
//
// 仕様:
//   - ルーティングはginを使用
//   - WebSocketはgorilla/websocketを使用
//   - グレースフルシャットダウンに対応
//   - 複数クライアントの同時接続をサポート
package server
