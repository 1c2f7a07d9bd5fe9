package version

import (
	_ "embed"
	"encoding/json"
	"log"
	"runtime"
)

//go:embed version.json
var raw []byte

// Info identifies the running build. The release version is baked into the
// binary at compile time; the Go runtime is reported alongside it.
type Info struct {
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
}

func Load() Info {
	info := Info{Version: "0.0.0"}
	if err := json.Unmarshal(raw, &info); err != nil {
		log.Printf("warning: could not parse embedded version.json: %v", err)
	}
	info.GoVersion = runtime.Version()
	return info
}
