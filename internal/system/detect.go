// Package system probes the host for accelerator hardware and collects
// the environment summary recorded with each run.
package system

import (
	"os/exec"
	"strings"

	"github.com/jaypipes/ghw"
	"github.com/rs/zerolog/log"
)

// Accelerator describes detected accelerator hardware.
type Accelerator struct {
	Available bool   `json:"available"`
	Detail    string `json:"detail"`
}

// Prober detects accelerator hardware. The zero value probes the real
// host; tests substitute a stub through the registry's Detector interface.
type Prober struct{}

// Detect reports whether a CUDA-capable accelerator is present.
// It first walks the PCI graphics devices, then falls back to asking the
// NVIDIA driver directly, so detection works in containers where the PCI
// database is unavailable.
func (Prober) Detect() (bool, string) {
	if ok, detail := probePCI(); ok {
		return true, detail
	}
	return probeNvidiaSMI()
}

func probePCI() (bool, string) {
	gpu, err := ghw.GPU()
	if err != nil {
		log.Debug().Err(err).Msg("gpu probe failed")
		return false, ""
	}
	for _, card := range gpu.GraphicsCards {
		if card.DeviceInfo == nil || card.DeviceInfo.Vendor == nil {
			continue
		}
		vendor := card.DeviceInfo.Vendor.Name
		if strings.Contains(strings.ToLower(vendor), "nvidia") {
			name := card.DeviceInfo.Product.Name
			log.Debug().Str("gpu", name).Msg("accelerator found via pci scan")
			return true, name
		}
	}
	return false, ""
}

func probeNvidiaSMI() (bool, string) {
	out, err := exec.Command("nvidia-smi", "--query-gpu=name", "--format=csv,noheader").Output()
	if err != nil {
		return false, "no NVIDIA driver or accelerator detected"
	}
	name := strings.TrimSpace(string(out))
	if name == "" {
		return false, "nvidia-smi found but no accelerator name reported"
	}
	// Multi-GPU hosts report one name per line; the first is enough.
	if idx := strings.IndexByte(name, '\n'); idx >= 0 {
		name = name[:idx]
	}
	log.Debug().Str("gpu", name).Msg("accelerator found via nvidia-smi")
	return true, name
}
