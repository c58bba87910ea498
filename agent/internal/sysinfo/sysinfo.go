// Package sysinfo collects the host facts reported on every poll and the
// full snapshot returned by FETCH_INFO.
package sysinfo

import (
	"net"
	"os"
	"runtime"
	"strings"
)

func Hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
}

// PrimaryIP finds the outbound interface address without sending traffic.
func PrimaryIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "127.0.0.1"
	}
	defer conn.Close()
	if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
		return addr.IP.String()
	}
	return "127.0.0.1"
}

// RebootRequired checks the distro marker file.
func RebootRequired() bool {
	_, err := os.Stat("/var/run/reboot-required")
	return err == nil
}

// Collect builds the FETCH_INFO snapshot.
func Collect() map[string]any {
	info := map[string]any{
		"hostname": Hostname(),
		"ip":       PrimaryIP(),
		"os":       runtime.GOOS,
		"arch":     runtime.GOARCH,
		"cpus":     runtime.NumCPU(),
	}
	if uptime, err := UptimeSeconds(); err == nil {
		info["uptimeSeconds"] = uptime
	}
	if release := osRelease(); release != "" {
		info["osRelease"] = release
	}
	info["rebootRequired"] = RebootRequired()
	return info
}

func osRelease() string {
	b, err := os.ReadFile("/etc/os-release")
	if err != nil {
		return ""
	}
	for _, line := range strings.Split(string(b), "\n") {
		if v, ok := strings.CutPrefix(line, "PRETTY_NAME="); ok {
			return strings.Trim(v, `"`)
		}
	}
	return ""
}
