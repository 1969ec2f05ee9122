package version

import (
	"encoding/json"
	"log"
	"os"
)

type Info struct {
	Version string `json:"version"`
	Commit  string `json:"commit,omitempty"`
}

// Load reads version.json from the working directory. A missing or broken
// file is not fatal; the service reports 0.0.0-dev instead.
func Load() Info {
	data, err := os.ReadFile("version.json")
	if err != nil {
		log.Printf("warning: could not read version.json: %v", err)
		return Info{Version: "0.0.0-dev"}
	}
	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		log.Printf("warning: could not parse version.json: %v", err)
		return Info{Version: "0.0.0-dev"}
	}
	return info
}
