package camera

import (
	"fmt"
	"os"

	"vision-backend/internal/models"
)

// maxProbeIndex bounds the /dev/video* scan.
const maxProbeIndex = 10

// ListDevices probes for video device nodes. On platforms without
// /dev/video* the list is empty; callers fall back to the synthetic
// source.
func ListDevices() []models.CameraDevice {
	var devices []models.CameraDevice
	for i := 0; i < maxProbeIndex; i++ {
		path := fmt.Sprintf("/dev/video%d", i)
		if _, err := os.Stat(path); err == nil {
			devices = append(devices, models.CameraDevice{
				Index: i,
				Name:  fmt.Sprintf("camera %d", i),
				Path:  path,
			})
		}
	}
	return devices
}

// Troubleshoot collects diagnostic hints for a camera index that
// failed to open. Surfaced to the StartMonitoring caller instead of a
// bare failure.
func Troubleshoot(index int) []string {
	path := fmt.Sprintf("/dev/video%d", index)
	var hints []string

	info, err := os.Stat(path)
	if err != nil {
		hints = append(hints,
			fmt.Sprintf("camera device not found: %s", path),
			"check if camera is connected: ls -l /dev/video*")
		return hints
	}

	hints = append(hints, fmt.Sprintf("camera device exists: %s", path))
	hints = append(hints, fmt.Sprintf("device permissions: %o", info.Mode().Perm()))
	hints = append(hints, "if permission denied, add user to the video group: sudo usermod -a -G video $USER")
	return hints
}
