// internal/ua/ua.go
//
// User-Agent fingerprinting for the audit trail.
//
// The wrapper keeps github.com/avct/uasurfer enums out of the rest of the
// codebase.  Audit lines only need a short label ("Firefox 128 on Linux")
// and a bot flag, so that is all Agent exposes beyond the raw header.
package ua

import (
	"strconv"
	"strings"

	surfer "github.com/avct/uasurfer"
)

// Agent is the parsed form of one User-Agent header.
type Agent struct {
	Browser string // "Chrome", "Firefox", ... or "" when unknown
	Version string // dotted, trailing zeros trimmed
	OS      string
	Device  string // "Desktop", "Mobile", "Tablet", or "Other"
	IsBot   bool
	Raw     string
}

// Parse converts a raw header.  An empty header yields an empty Agent.
func Parse(raw string) Agent {
	if strings.TrimSpace(raw) == "" {
		return Agent{}
	}
	u := surfer.Parse(raw)

	a := Agent{
		Browser: strings.TrimPrefix(u.Browser.Name.String(), "Browser"),
		Version: version(u.Browser.Version),
		OS:      strings.TrimPrefix(u.OS.Name.String(), "OS"),
		IsBot:   u.IsBot(),
		Raw:     raw,
	}
	if a.Browser == "Unknown" {
		a.Browser = ""
	}
	if a.OS == "Unknown" {
		a.OS = ""
	}

	switch u.DeviceType {
	case surfer.DeviceComputer:
		a.Device = "Desktop"
	case surfer.DeviceTablet:
		a.Device = "Tablet"
	case surfer.DevicePhone, surfer.DeviceWearable:
		a.Device = "Mobile"
	default:
		a.Device = "Other"
	}
	return a
}

// Label renders "Browser Major on OS" for log lines, dropping unknown parts.
func (a Agent) Label() string {
	if a.IsBot {
		return "bot"
	}
	var parts []string
	if a.Browser != "" {
		b := a.Browser
		if major, _, _ := strings.Cut(a.Version, "."); major != "" {
			b += " " + major
		}
		parts = append(parts, b)
	}
	if a.OS != "" {
		parts = append(parts, "on "+a.OS)
	}
	if len(parts) == 0 {
		return "unknown"
	}
	return strings.Join(parts, " ")
}

// version renders 17.0.0 as "17", 17.3.0 as "17.3", and 17.3.1 as "17.3.1".
func version(v surfer.Version) string {
	if v.Major == 0 && v.Minor == 0 && v.Patch == 0 {
		return ""
	}
	out := strconv.Itoa(v.Major)
	if v.Minor != 0 || v.Patch != 0 {
		out += "." + strconv.Itoa(v.Minor)
	}
	if v.Patch != 0 {
		out += "." + strconv.Itoa(v.Patch)
	}
	return out
}
