package player

import "testing"

func TestDetectKind(t *testing.T) {
	cases := map[string]Kind{
		"/usr/bin/mpv":                     MPV,
		`C:\Program Files\mpv.net\mpvnet.exe`: MPVNet,
		"/usr/bin/vlc":                     VLC,
		"/Applications/IINA.app/IINA":       IINA,
		`C:\MPC-HC\mpc-hc64.exe`:            MPCHC,
		`C:\MPC-BE\mpc-be64.exe`:            MPCBE,
		"/usr/bin/mplayer":                  MPlayer,
		"/usr/bin/totem":                    Unknown,
	}
	for path, want := range cases {
		if got := DetectKind(path); got != want {
			t.Errorf("DetectKind(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestDetectInstalledUsesLookPathOverride(t *testing.T) {
	origLook, origStat := lookPath, statExists
	defer func() { lookPath, statExists = origLook, origStat }()

	lookPath = func(file string) (string, error) {
		if file == "mpv" {
			return "/fake/mpv", nil
		}
		return "", errNotFound
	}
	statExists = func(string) bool { return false }

	found := DetectInstalled()
	if len(found) != 1 || found[0].Path != "/fake/mpv" {
		t.Fatalf("expected only mpv detected via PATH, got %+v", found)
	}
}

func TestDetectInstalledFallsBackToCandidatePaths(t *testing.T) {
	origLook, origStat := lookPath, statExists
	defer func() { lookPath, statExists = origLook, origStat }()

	lookPath = func(string) (string, error) { return "", errNotFound }
	statExists = func(path string) bool { return true }

	found := DetectInstalled()
	if len(found) == 0 {
		t.Fatalf("expected candidate-path fallback to find something")
	}
}

type fakeErr string

func (e fakeErr) Error() string { return string(e) }

var errNotFound = fakeErr("not found")
