// Package privacy implements the filename/filesize privacy transforms and
// URL trust enforcement from spec §4.M. The hashing style (sha256, hex
// encoding) mirrors LanternOps-breeze's internal/audit hash-chaining idiom.
package privacy

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Mode selects how a locally-playing file's name/size is shared with peers.
type Mode int

const (
	SendRaw Mode = iota
	SendHashed
	DoNotSend
)

// HiddenFilename is the sentinel TransformFilename sends in place of a
// filename when Mode is DoNotSend (spec §4.M). SendHashed never yields it.
const HiddenFilename = "PRIVACY_HIDDEN_FILENAME"

// TransformFilename applies Mode to a local filename before it is placed on
// the wire in a Set.file message.
func TransformFilename(mode Mode, name string) string {
	switch mode {
	case SendRaw:
		return name
	case SendHashed:
		return hashString(name)
	default:
		return HiddenFilename
	}
}

// TransformSize applies Mode to a file size in bytes. DoNotSend and
// SendHashed both report 0 — Syncplay never hides size alone while hiding
// the name, but it also never reveals size once the name is hidden.
func TransformSize(mode Mode, size int64) int64 {
	if mode == SendRaw {
		return size
	}
	return 0
}

func hashString(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// IsURL reports whether s looks like a URL Syncplay would treat as a
// streamable media reference rather than a local path: it begins with
// "http://" or "https://". Anything else, including other schemes, is a
// local filename.
func IsURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// HostOf extracts the host component from a "scheme://host[:port]/path" URL
// without pulling in net/url's full parsing surface, which rejects some
// loosely-formed Syncplay media URLs. Returns "" if s contains no "://";
// the scheme is not checked, so non-http(s) URLs yield a host too.
func HostOf(s string) string {
	idx := strings.Index(s, "://")
	if idx < 0 {
		return ""
	}
	rest := s[idx+3:]
	if end := strings.IndexAny(rest, "/?#"); end >= 0 {
		rest = rest[:end]
	}
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		rest = rest[at+1:]
	}
	if colon := strings.LastIndex(rest, ":"); colon >= 0 {
		rest = rest[:colon]
	}
	return rest
}

// IsTrusted reports whether host matches one of trustedDomains exactly or
// as a suffix of a dot-separated label boundary (e.g. "cdn.example.com" is
// trusted by a "example.com" entry, but "evilexample.com" is not).
func IsTrusted(host string, trustedDomains []string) bool {
	host = strings.ToLower(host)
	for _, d := range trustedDomains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" {
			continue
		}
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// EnforceURLTrust applies spec §4.M's gating: non-URL file references are
// always allowed (they are local paths); URL references are allowed only
// when trust enforcement is off or the URL's host is in trustedDomains.
func EnforceURLTrust(fileRef string, enforce bool, trustedDomains []string) error {
	if !IsURL(fileRef) {
		return nil
	}
	if !enforce {
		return nil
	}
	host := HostOf(fileRef)
	if host == "" || !IsTrusted(host, trustedDomains) {
		return fmt.Errorf("untrusted URL host %q", host)
	}
	return nil
}
