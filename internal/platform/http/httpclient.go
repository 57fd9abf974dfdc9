// Package http は外部呼び出し用のHTTPクライアントを提供します。
package http

import (
	"net"
	"net/http"
	"time"
)

// newTransport は接続の安定性とリソース管理のために明示的に設定したTransportを返します。
//
// 設定:
//   - Proxy: 環境変数（HTTP_PROXYなど）が設定されている場合に使用
//   - Dialer.Timeout: TCP接続タイムアウト（デフォルトより短い）
//   - Dialer.KeepAlive: 再利用可能なTCP接続の維持期間
//   - MaxIdleConns: 最大アイドル接続数
//   - IdleConnTimeout: アイドル接続の維持期間
//   - TLSHandshakeTimeout: HTTPSハンドシェイクの最大時間
func newTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
	}
}

// NewHTTPClient はAPI呼び出し用のHTTPクライアントを作成します。
// timeout はリクエスト全体（ボディ読み込みを含む）の上限です。
//
// 注意:
//   - http.DefaultClientにはタイムアウトがないため、常にカスタムクライアントを使用すること
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout, Transport: newTransport()}
}

// NewStreamingClient はSSEのような長時間のレスポンス用クライアントを作成します。
// Client.Timeout を設定するとストリームが途中で切断されるため、
// 接続・ヘッダー受信のタイムアウトのみを適用し、終了は呼び出し元のcontextで制御します。
func NewStreamingClient() *http.Client {
	return &http.Client{Transport: newTransport()}
}
