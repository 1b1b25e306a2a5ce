package humanize

import "fmt"

var units = []string{"B", "KB", "MB", "GB", "TB"}

// Size renders a byte count in the largest unit that keeps the value >= 1.
func Size(bytes int64) string {
	if bytes == 0 {
		return "0 B"
	}

	value := float64(bytes)
	i := 0
	for value >= 1024 && i < len(units)-1 {
		value /= 1024
		i++
	}

	return fmt.Sprintf("%.2f %s", value, units[i])
}
