// Package camera はWebカメラの取得と映像面へのバインドを担う
//
// # 責務
// - 起動時に一度だけ映像デバイス（音声なし）へのアクセスを要求する
// - 取得したストリームを映像面（Video）にバインドして再生する
// - 映像面から現在のフレームを読み出す
//
// # 仕様
// - Acquirer: 環境チェック、デバイス選択、テストキャプチャ、バインドまでを行う
// - 失敗は全て ErrMediaAccess として扱い、再試行はしない
// - ストリームの開始・停止はこのパッケージだけが行い、他は読み取りのみ
// - V4L2 Capturer: ffmpeg経由での画像キャプチャ
//
// # 前提要件
//   - v4l-utils: カメラ名の取得に使用
//     Ubuntu/Debian: sudo apt install v4l-utils
//   - ffmpeg: 画像キャプチャとストリーミングに使用
//     Ubuntu/Debian: sudo apt install ffmpeg
//   - videoグループへの参加: デバイスアクセス権限
//     sudo usermod -a -G video $USER
package camera
