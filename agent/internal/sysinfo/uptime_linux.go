package sysinfo

import "golang.org/x/sys/unix"

func UptimeSeconds() (int64, error) {
	var si unix.Sysinfo_t
	if err := unix.Sysinfo(&si); err != nil {
		return 0, err
	}
	return int64(si.Uptime), nil
}
