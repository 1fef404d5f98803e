package caption

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var timestampRe = regexp.MustCompile(`(\d{2}:\d{2}:\d{2}[.,]\d{3})\s*-->\s*(\d{2}:\d{2}:\d{2}[.,]\d{3})`)

// ParseVTT parses WebVTT content into caption fragments.
func ParseVTT(content string) []Fragment {
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	var fragments []Fragment
	var current *Fragment

	for _, line := range lines {
		line = strings.TrimSpace(line)

		// Skip WEBVTT header and empty lines
		if line == "WEBVTT" || line == "" {
			if current != nil && current.Text != "" {
				fragments = append(fragments, *current)
				current = nil
			}
			continue
		}

		// Check for timestamp line
		if matches := timestampRe.FindStringSubmatch(line); len(matches) == 3 {
			if current != nil && current.Text != "" {
				fragments = append(fragments, *current)
			}
			current = &Fragment{
				Start: parseTimestamp(matches[1]),
				End:   parseTimestamp(matches[2]),
			}
			continue
		}

		// Skip cue index numbers (pure digits)
		if _, err := strconv.Atoi(line); err == nil && current == nil {
			continue
		}

		// Text line
		if current != nil {
			if current.Text != "" {
				current.Text += "\n"
			}
			current.Text += line
		}
	}

	if current != nil && current.Text != "" {
		fragments = append(fragments, *current)
	}

	return fragments
}

// WriteVTT converts fragments back to WebVTT format.
func WriteVTT(fragments []Fragment) string {
	var sb strings.Builder
	sb.WriteString("WEBVTT\n\n")

	for i, f := range fragments {
		sb.WriteString(fmt.Sprintf("%d\n", i+1))
		sb.WriteString(fmt.Sprintf("%s --> %s\n", formatTimestamp(f.Start), formatTimestamp(f.End)))
		sb.WriteString(f.Text)
		sb.WriteString("\n\n")
	}

	return sb.String()
}

func parseTimestamp(ts string) float64 {
	ts = strings.Replace(ts, ",", ".", 1)
	var h, m, s int
	var ms int
	fmt.Sscanf(ts, "%d:%d:%d.%d", &h, &m, &s, &ms)
	return float64(h*3600+m*60+s) + float64(ms)/1000.0
}

func formatTimestamp(seconds float64) string {
	totalMs := int(seconds * 1000)
	h := totalMs / 3600000
	totalMs %= 3600000
	m := totalMs / 60000
	totalMs %= 60000
	s := totalMs / 1000
	ms := totalMs % 1000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}
