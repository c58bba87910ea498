//go:build !linux

package sysinfo

import "errors"

func UptimeSeconds() (int64, error) {
	return 0, errors.New("uptime not supported on this platform")
}
