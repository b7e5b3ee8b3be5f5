//go:build !windows

package mpv

import (
	"context"
	"net"

	"github.com/syncplay-go/client/syncerr"
)

// dialWindowsPipe is unreachable outside a Windows build (dial() only
// calls it when runtime.GOOS == "windows"); this stub exists purely so
// the package compiles for cross-platform CI.
func dialWindowsPipe(ctx context.Context, path string) (net.Conn, error) {
	return nil, syncerr.New(syncerr.PlayerIpc, "named pipes unsupported on this platform")
}
