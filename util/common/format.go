package common

import (
	"fmt"
)

// FormatTraffic renders a byte count with a binary unit, e.g. 5000000000 -> "4.66GB".
func FormatTraffic(trafficBytes uint64) string {
	units := []string{"B", "KB", "MB", "GB", "TB", "PB", "EB"}
	unitIndex := 0
	size := float64(trafficBytes)

	for size >= 1024 && unitIndex < len(units)-1 {
		size /= 1024
		unitIndex++
	}
	return fmt.Sprintf("%.2f%s", size, units[unitIndex])
}
