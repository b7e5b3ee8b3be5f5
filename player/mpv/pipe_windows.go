//go:build windows

package mpv

import (
	"context"
	"net"

	"github.com/Microsoft/go-winio"
)

// dialWindowsPipe dials an MPV named pipe, the Windows counterpart to the
// Unix-socket path in dial(), grounded on original_source's
// mpv_ipc.rs ClientOptions::open for the Windows named-pipe branch.
func dialWindowsPipe(ctx context.Context, path string) (net.Conn, error) {
	return winio.DialPipeContext(ctx, path)
}
