// SPDX-License-Identifier: Unlicense OR MIT

package device

import (
	"encoding/hex"
	"strings"

	"github.com/gen2brain/malgo"
)

// Info describes an audio device as reported by miniaudio.
type Info struct {
	Index   int
	Name    string
	ID      string // decoded backend ID, e.g. ":1,0" on ALSA
	Default bool

	raw *malgo.DeviceInfo
}

func (i Info) String() string {
	if i.ID == "" {
		return i.Name
	}
	return i.Name + " (" + i.ID + ")"
}

func describe(infos []malgo.DeviceInfo) []Info {
	out := make([]Info, 0, len(infos))
	for i := range infos {
		name := infos[i].Name()
		if strings.Contains(name, "Discard all samples") {
			continue
		}
		id, err := hexToASCII(infos[i].ID.String())
		if err != nil {
			id = infos[i].ID.String()
		}
		out = append(out, Info{
			Index:   i,
			Name:    name,
			ID:      id,
			Default: infos[i].IsDefault == 1,
			raw:     &infos[i],
		})
	}
	return out
}

// Select picks a device by preference: the system default for an empty
// name, then exact name, decoded ID, and finally a name substring.
func Select(devices []Info, want string) (Info, bool) {
	if len(devices) == 0 {
		return Info{}, false
	}

	if want == "" || want == "default" || want == "sysdefault" {
		for _, d := range devices {
			if d.Default {
				return d, true
			}
		}
		return devices[0], true
	}

	for _, d := range devices {
		if d.Name == want {
			return d, true
		}
	}
	for _, d := range devices {
		if d.ID == want {
			return d, true
		}
	}
	for _, d := range devices {
		if strings.Contains(d.Name, want) {
			return d, true
		}
	}
	return Info{}, false
}

func hexToASCII(s string) (string, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(b), "\x00"), nil
}
