package system

import (
	"runtime"

	sysinfo "github.com/elastic/go-sysinfo"
)

// Summary is the host capability report shown by `maskd system` and
// embedded in diagnostics.
type Summary struct {
	OSName        string      `json:"os_name"`
	OSVersion     string      `json:"os_version"`
	KernelVersion string      `json:"kernel_version"`
	Architecture  string      `json:"architecture"`
	Hostname      string      `json:"hostname"`
	NumCPU        int         `json:"num_cpu"`
	Accelerator   Accelerator `json:"accelerator"`
}

// Summarize collects the host summary. Fields that cannot be determined
// are left at their zero values rather than failing the whole report.
func Summarize() Summary {
	s := Summary{
		Architecture: runtime.GOARCH,
		OSName:       runtime.GOOS,
		NumCPU:       runtime.NumCPU(),
	}
	if host, err := sysinfo.Host(); err == nil {
		info := host.Info()
		s.Hostname = info.Hostname
		s.KernelVersion = info.KernelVersion
		s.Architecture = info.Architecture
		if info.OS != nil {
			s.OSName = info.OS.Name
			s.OSVersion = info.OS.Version
		}
	}
	s.Accelerator.Available, s.Accelerator.Detail = Prober{}.Detect()
	return s
}
