package theme

import "os"

// IconsEnv switches to plain ASCII icons when set to "ascii".
const IconsEnv = "LIVESYNC_ICONS"

const (
	unicodeIconConnected    = "●"
	unicodeIconConnecting   = "◐"
	unicodeIconDisconnected = "○"
	unicodeIconSuccess      = "✓"
	unicodeIconError        = "✗"
	unicodeIconWarning      = "⚠"
	unicodeIconBullet       = "•"

	asciiIconConnected    = "[+]"
	asciiIconConnecting   = "[~]"
	asciiIconDisconnected = "[-]"
	asciiIconSuccess      = "ok"
	asciiIconError        = "x"
	asciiIconWarning      = "!"
	asciiIconBullet       = "*"
)

var (
	IconConnected    string
	IconConnecting   string
	IconDisconnected string
	IconSuccess      string
	IconError        string
	IconWarning      string
	IconBullet       string
)

func init() {
	if os.Getenv(IconsEnv) == "ascii" {
		IconConnected = asciiIconConnected
		IconConnecting = asciiIconConnecting
		IconDisconnected = asciiIconDisconnected
		IconSuccess = asciiIconSuccess
		IconError = asciiIconError
		IconWarning = asciiIconWarning
		IconBullet = asciiIconBullet
		return
	}
	IconConnected = unicodeIconConnected
	IconConnecting = unicodeIconConnecting
	IconDisconnected = unicodeIconDisconnected
	IconSuccess = unicodeIconSuccess
	IconError = unicodeIconError
	IconWarning = unicodeIconWarning
	IconBullet = unicodeIconBullet
}
